// Package index manages persisted index artifacts: one directory per
// document, published atomically, rebuilt when the source content changes.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"pdfquery/internal/engine"
)

const (
	namePrefix   = "index_"
	chunksFile   = "chunks.json"
	manifestFile = "manifest.json"
)

var ErrArtifactNotFound = errors.New("index artifact not found")

// Manifest records which document content an artifact was built from.
type Manifest struct {
	DocumentID  uint      `json:"document_id"`
	ContentHash string    `json:"content_hash"`
	BuiltAt     time.Time `json:"built_at"`
}

// Name returns the deterministic artifact name for a document. Keyed by the
// document's ID so two uploads sharing a filename never collide.
func Name(documentID uint) string {
	return fmt.Sprintf("%s%d", namePrefix, documentID)
}

// ParseName extracts the document ID from an artifact name.
func ParseName(name string) (uint, bool) {
	raw, ok := strings.CutPrefix(name, namePrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// Registry owns the artifact directory. All builds for a given name are
// funneled through singleflight, so at most one build runs per name.
type Registry struct {
	dir    string
	engine engine.Engine
	group  singleflight.Group
}

func NewRegistry(dir string, eng engine.Engine) (*Registry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir failed: %w", err)
	}
	return &Registry{dir: dir, engine: eng}, nil
}

// Ensure returns the artifact name for the document, building the artifact
// if it is absent or was built from different content. Concurrent calls for
// the same document share a single build.
func (r *Registry) Ensure(ctx context.Context, documentID uint, text string) (string, error) {
	name := Name(documentID)
	hash := contentHash(text)

	_, err, _ := r.group.Do(name, func() (interface{}, error) {
		if r.upToDate(name, hash) {
			return nil, nil
		}
		return nil, r.build(ctx, name, documentID, hash, text)
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

// Load reads a persisted artifact back into memory.
func (r *Registry) Load(name string) (*engine.Artifact, error) {
	raw, err := os.ReadFile(filepath.Join(r.path(name), chunksFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("read artifact %s failed: %w", name, err)
	}
	var artifact engine.Artifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, fmt.Errorf("decode artifact %s failed: %w", name, err)
	}
	return &artifact, nil
}

// Remove deletes the artifact directory. Removing an absent artifact is not
// an error.
func (r *Registry) Remove(name string) error {
	if err := os.RemoveAll(r.path(name)); err != nil {
		return fmt.Errorf("remove artifact %s failed: %w", name, err)
	}
	return nil
}

// build delegates to the engine, writes into a temp directory, and
// publishes with a rename so a half-written artifact is never discoverable.
func (r *Registry) build(ctx context.Context, name string, documentID uint, hash, text string) error {
	artifact, err := r.engine.BuildIndex(ctx, text)
	if err != nil {
		return fmt.Errorf("build index %s failed: %w", name, err)
	}

	tmp, err := os.MkdirTemp(r.dir, "."+name+"-")
	if err != nil {
		return fmt.Errorf("create temp artifact dir failed: %w", err)
	}
	defer os.RemoveAll(tmp)

	if err := writeJSON(filepath.Join(tmp, chunksFile), artifact); err != nil {
		return err
	}
	manifest := Manifest{
		DocumentID:  documentID,
		ContentHash: hash,
		BuiltAt:     time.Now().UTC(),
	}
	if err := writeJSON(filepath.Join(tmp, manifestFile), manifest); err != nil {
		return err
	}

	final := r.path(name)
	// Stale artifacts from a previous build are replaced, not appended to.
	if err := os.RemoveAll(final); err != nil {
		return fmt.Errorf("remove stale artifact %s failed: %w", name, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("publish artifact %s failed: %w", name, err)
	}
	return nil
}

func (r *Registry) upToDate(name, hash string) bool {
	raw, err := os.ReadFile(filepath.Join(r.path(name), manifestFile))
	if err != nil {
		return false
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return false
	}
	return m.ContentHash == hash
}

func (r *Registry) path(name string) string {
	return filepath.Join(r.dir, filepath.Base(name))
}

func writeJSON(path string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s failed: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s failed: %w", filepath.Base(path), err)
	}
	return nil
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
