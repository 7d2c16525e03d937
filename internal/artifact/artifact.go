// Package artifact types and stores the binary results of pipeline stages.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Type is a MIME type with its file extension.
type Type struct {
	MIME string
	Ext  string
}

// Artifact is a stage result with its resolved type.
type Artifact struct {
	Stage string
	Type  Type
	Data  []byte
}

// ErrEmpty is returned when a stage produced no bytes.
var ErrEmpty = errors.New("artifact: empty payload")

// New wraps data produced by stage. The bytes are sniffed first; when the
// sniffer cannot tell (generic binary or text) the fallback type is used.
func New(stage string, fallback Type, data []byte) (Artifact, error) {
	if len(data) == 0 {
		return Artifact{}, fmt.Errorf("%s: %w", stage, ErrEmpty)
	}
	return Artifact{Stage: stage, Type: Detect(data, fallback), Data: data}, nil
}

// Detect returns the sniffed type of data, or fallback if inconclusive.
func Detect(data []byte, fallback Type) Type {
	m := mimetype.Detect(data)
	if m.Is("application/octet-stream") || strings.HasPrefix(m.String(), "text/plain") {
		return fallback
	}
	mime := m.String()
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return Type{MIME: mime, Ext: m.Extension()}
}

// Size returns the payload length.
func (a Artifact) Size() int {
	return len(a.Data)
}

// Filename returns "<stage><ext>".
func (a Artifact) Filename() string {
	return a.Stage + a.Type.Ext
}

// Store writes artifacts below a root directory, one subdirectory per run.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir. The directory is created lazily.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes a to <dir>/<runID>/<stage><ext> and returns the path.
func (s *Store) Save(runID string, a Artifact) (string, error) {
	if runID == "" || strings.ContainsAny(runID, `/\`) || runID == "." || runID == ".." {
		return "", fmt.Errorf("artifact: invalid run id %q", runID)
	}

	dir := filepath.Join(s.dir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create run dir: %w", err)
	}

	path := filepath.Join(dir, a.Filename())
	tmp := path + ".part"
	if err := os.WriteFile(tmp, a.Data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", a.Filename(), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("finalize %s: %w", a.Filename(), err)
	}
	return path, nil
}
