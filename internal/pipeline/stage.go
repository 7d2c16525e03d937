package pipeline

import (
	"fmt"
	"strings"

	"github.com/GriffinCanCode/arch3d/internal/artifact"
)

// Stage is a backend operation, named by its WebSocket endpoint.
type Stage string

const (
	StageRemoveBackground Stage = "remove-background"
	StageGenerateImage    Stage = "generate-image"
	StageGenerate3DView   Stage = "generate-3d-view"
	StageGenerate3DModel  Stage = "generate-3d-model"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{
	StageRemoveBackground,
	StageGenerateImage,
	StageGenerate3DView,
	StageGenerate3DModel,
}

var stageTypes = map[Stage]artifact.Type{
	StageRemoveBackground: {MIME: "image/png", Ext: ".png"},
	StageGenerateImage:    {MIME: "image/webp", Ext: ".webp"},
	StageGenerate3DView:   {MIME: "application/x-ply", Ext: ".ply"},
	StageGenerate3DModel:  {MIME: "model/gltf-binary", Ext: ".glb"},
}

var stageAliases = map[string]Stage{
	"image": StageGenerateImage,
	"view":  StageGenerate3DView,
	"model": StageGenerate3DModel,
	"mesh":  StageGenerate3DModel,
}

func (s Stage) String() string {
	return string(s)
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	_, ok := stageTypes[s]
	return ok
}

// Type is the artifact type the stage produces when sniffing is inconclusive.
func (s Stage) Type() artifact.Type {
	return stageTypes[s]
}

// phase groups the two image-producing stages together.
func (s Stage) phase() int {
	switch s {
	case StageRemoveBackground, StageGenerateImage:
		return 0
	case StageGenerate3DView:
		return 1
	default:
		return 2
	}
}

// ParseStage accepts an endpoint name or one of "image", "view", "model".
func ParseStage(s string) (Stage, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if alias, ok := stageAliases[s]; ok {
		return alias, nil
	}
	if st := Stage(s); st.Valid() {
		return st, nil
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

// ImageModel selects the backend's text-to-image model.
type ImageModel string

const (
	ModelDalle3 ImageModel = "dalle3"
	ModelSana   ImageModel = "sana"
)

// DefaultImageModel is used when a request names none.
const DefaultImageModel = ModelDalle3

// ParseImageModel normalizes a model name. "sama" is accepted for "sana".
func ParseImageModel(s string) (ImageModel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultImageModel, nil
	case "dalle3", "dall-e-3":
		return ModelDalle3, nil
	case "sana", "sama":
		return ModelSana, nil
	default:
		return "", fmt.Errorf("unknown image model %q", s)
	}
}
