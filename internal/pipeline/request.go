package pipeline

import (
	"strings"
)

// Request is the immutable input of a pipeline run. The zero Until runs to
// the mesh.
type Request struct {
	Prompt     string
	ImageModel ImageModel
	Image      []byte
	Until      Stage
}

// NewPromptRequest builds a text-to-3D request.
func NewPromptRequest(prompt string, model ImageModel) Request {
	return Request{Prompt: prompt, ImageModel: model}
}

// NewImageRequest builds an image-to-3D request. The image is copied.
func NewImageRequest(image []byte) Request {
	return Request{Image: append([]byte(nil), image...)}
}

// WithUntil returns a copy that stops after stage.
func (r Request) WithUntil(stage Stage) Request {
	r.Until = stage
	return r
}

// FromImage reports whether the run starts from an image.
func (r Request) FromImage() bool {
	return len(r.Image) > 0
}

// Validate checks that the request names something to generate.
func (r Request) Validate() error {
	if !r.FromImage() && strings.TrimSpace(r.Prompt) == "" {
		return ErrEmptyRequest
	}
	if r.Until != "" && !r.Until.Valid() {
		return ErrInvalidUntil
	}
	return nil
}

// plan returns the stages this request runs, in order.
func (r Request) plan() []Stage {
	first := StageGenerateImage
	if r.FromImage() {
		first = StageRemoveBackground
	}
	until := r.Until
	if until == "" {
		until = StageGenerate3DModel
	}

	var stages []Stage
	for _, s := range []Stage{first, StageGenerate3DView, StageGenerate3DModel} {
		if s.phase() > until.phase() {
			break
		}
		stages = append(stages, s)
	}
	return stages
}

type imageRequest struct {
	Prompt     string `json:"prompt"`
	ImageModel string `json:"image_model"`
}

func (r Request) imageRequest() imageRequest {
	model := r.ImageModel
	if model == "" {
		model = DefaultImageModel
	}
	return imageRequest{Prompt: strings.TrimSpace(r.Prompt), ImageModel: string(model)}
}
