package out

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"evseg/internal/modules/plugin/domain"
	pluginout "evseg/internal/modules/plugin/port/out"
)

// FileManifestStore reads plugins.json. Relative binary paths resolve against
// the directory holding the manifest.
type FileManifestStore struct {
	path string
}

func NewFileManifestStore(path string) pluginout.ManifestStore {
	return &FileManifestStore{path: path}
}

func (s *FileManifestStore) Load(_ context.Context) ([]domain.Manifest, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.Manifest{}, nil
		}
		return nil, fmt.Errorf("read plugin manifests: %w", err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return []domain.Manifest{}, nil
	}
	var manifests []domain.Manifest
	decoder := json.NewDecoder(bytes.NewReader(b))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&manifests); err != nil {
		return nil, fmt.Errorf("decode plugin manifests: %w", err)
	}
	dir := filepath.Dir(s.path)
	for i := range manifests {
		if manifests[i].Binary != "" && !filepath.IsAbs(manifests[i].Binary) {
			manifests[i].Binary = filepath.Clean(filepath.Join(dir, manifests[i].Binary))
		}
	}
	return manifests, nil
}
