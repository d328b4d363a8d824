package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const manifestFile = "manifest.json"

// manifest records which embedding model produced the persisted indexes.
// Vectors from different models are not comparable, so the store refuses to
// start when its configured model disagrees with the manifest.
type manifest struct {
	EmbeddingModel string `json:"embedding_model"`
	Dimensions     int    `json:"dimensions"`
}

func (s *Store) manifestPath() string {
	return filepath.Join(s.dir, manifestFile)
}

// checkManifest validates the persisted manifest against the configured model.
// No manifest means a fresh store; that is fine.
func (s *Store) checkManifest() error {
	if s.dir == "" {
		return nil
	}
	data, err := os.ReadFile(s.manifestPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read index manifest: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parse index manifest: %w", err)
	}
	if m.EmbeddingModel != s.modelID || m.Dimensions != s.dims {
		return fmt.Errorf("%w: indexes built with %q (%d dims), configured %q (%d dims)",
			ErrModelMismatch, m.EmbeddingModel, m.Dimensions, s.modelID, s.dims)
	}
	return nil
}

func (s *Store) writeManifest() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}
	data, err := json.MarshalIndent(manifest{EmbeddingModel: s.modelID, Dimensions: s.dims}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.manifestPath(), data, 0o644)
}
