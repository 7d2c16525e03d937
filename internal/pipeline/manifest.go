package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// Job is one entry of a batch manifest. Image is a file path, resolved
// against the manifest's directory when relative.
type Job struct {
	Name   string `yaml:"name" toml:"name"`
	Prompt string `yaml:"prompt" toml:"prompt"`
	Image  string `yaml:"image" toml:"image"`
	Model  string `yaml:"model" toml:"model"`
	Until  string `yaml:"until" toml:"until"`
}

// Manifest is a batch of jobs.
type Manifest struct {
	Jobs []Job `yaml:"jobs" toml:"jobs"`

	dir string
}

// ErrUnknownFormat is returned for manifest files that are neither YAML nor TOML.
var ErrUnknownFormat = errors.New("pipeline: manifest must be .yaml, .yml or .toml")

// LoadManifest reads a YAML or TOML manifest, chosen by file extension.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := ParseManifest(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.dir = filepath.Dir(path)
	return m, nil
}

// ParseManifest decodes data in the given format ("yaml", "yml" or "toml",
// with or without a leading dot).
func ParseManifest(data []byte, format string) (*Manifest, error) {
	var m Manifest
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case "toml":
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}
	default:
		return nil, ErrUnknownFormat
	}

	if len(m.Jobs) == 0 {
		return nil, errors.New("manifest has no jobs")
	}
	for i, j := range m.Jobs {
		if strings.TrimSpace(j.Prompt) == "" && j.Image == "" {
			return nil, fmt.Errorf("job %d (%s): %w", i, j.Label(i), ErrEmptyRequest)
		}
	}
	return &m, nil
}

// Label returns the job name, or "job-<i>" when unnamed.
func (j Job) Label(i int) string {
	if j.Name != "" {
		return j.Name
	}
	return fmt.Sprintf("job-%d", i+1)
}

// Request builds the pipeline request for job i, reading its image file.
func (m *Manifest) Request(i int, defaultModel ImageModel) (Request, error) {
	if i < 0 || i >= len(m.Jobs) {
		return Request{}, fmt.Errorf("job index %d out of range", i)
	}
	j := m.Jobs[i]

	model := defaultModel
	if j.Model != "" {
		parsed, err := ParseImageModel(j.Model)
		if err != nil {
			return Request{}, err
		}
		model = parsed
	}
	req := Request{Prompt: j.Prompt, ImageModel: model}

	if j.Until != "" {
		until, err := ParseStage(j.Until)
		if err != nil {
			return Request{}, err
		}
		req.Until = until
	}

	if j.Image != "" {
		path := j.Image
		if !filepath.IsAbs(path) && m.dir != "" {
			path = filepath.Join(m.dir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return Request{}, fmt.Errorf("read image: %w", err)
		}
		req.Image = data
	}
	return req, nil
}
