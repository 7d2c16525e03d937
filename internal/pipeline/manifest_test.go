package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlManifest = `
jobs:
  - name: cottage
    prompt: a brick cottage
    model: sama
  - image: sketches/chair.png
    until: view
`

const tomlManifest = `
[[jobs]]
name = "cottage"
prompt = "a brick cottage"
model = "sana"

[[jobs]]
image = "sketches/chair.png"
until = "view"
`

func TestParseManifest(t *testing.T) {
	for _, tc := range []struct{ format, data string }{
		{"yaml", yamlManifest},
		{".yml", yamlManifest},
		{"toml", tomlManifest},
	} {
		t.Run(tc.format, func(t *testing.T) {
			m, err := ParseManifest([]byte(tc.data), tc.format)
			require.NoError(t, err)
			require.Len(t, m.Jobs, 2)

			assert.Equal(t, "cottage", m.Jobs[0].Label(0))
			assert.Equal(t, "a brick cottage", m.Jobs[0].Prompt)
			assert.Equal(t, "job-2", m.Jobs[1].Label(1))
			assert.Equal(t, "sketches/chair.png", m.Jobs[1].Image)
		})
	}
}

func TestParseManifestErrors(t *testing.T) {
	_, err := ParseManifest([]byte(yamlManifest), "json")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = ParseManifest([]byte("jobs: []\n"), "yaml")
	assert.Error(t, err)

	_, err = ParseManifest([]byte("jobs:\n  - name: nothing\n"), "yaml")
	assert.ErrorIs(t, err, ErrEmptyRequest)

	_, err = ParseManifest([]byte("[[jobs]\n"), "toml")
	assert.Error(t, err)
}

func TestLoadManifestResolvesImages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sketches"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sketches", "chair.png"), pngBytes, 0o644))
	path := filepath.Join(dir, "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlManifest), 0o644))

	m, err := LoadManifest(path)
	require.NoError(t, err)

	first, err := m.Request(0, ModelDalle3)
	require.NoError(t, err)
	assert.Equal(t, ModelSana, first.ImageModel)
	assert.False(t, first.FromImage())

	second, err := m.Request(1, ModelDalle3)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, second.Image)
	assert.Equal(t, StageGenerate3DView, second.Until)
	assert.Equal(t, ModelDalle3, second.ImageModel)

	_, err = m.Request(2, ModelDalle3)
	assert.Error(t, err)
}
