package projection

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Save writes the fitted reducer to path via gob, creating parent
// directories as needed.
func (r *Reducer) Save(path string) error {
	if !r.Fitted() {
		return fmt.Errorf("refusing to persist an unfitted reducer")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create reducer directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create reducer file: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(r); err != nil {
		return fmt.Errorf("failed to encode reducer: %w", err)
	}
	return nil
}

// LoadReducer reads a fitted reducer back from disk.
func LoadReducer(path string) (*Reducer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var reducer Reducer
	if err := gob.NewDecoder(file).Decode(&reducer); err != nil {
		return nil, fmt.Errorf("failed to decode reducer at %s: %w", path, err)
	}
	return &reducer, nil
}

// ReducerStore resolves the deterministic artifact paths for fitted
// visualization reducers and caches loaded instances so repeated jobs on the
// same aspect skip the disk round trip.
type ReducerStore struct {
	root  string
	cache *cache.Cache
}

func NewReducerStore(root string) *ReducerStore {
	return &ReducerStore{
		root:  root,
		cache: cache.New(30*time.Minute, 10*time.Minute),
	}
}

func sanitizeModelName(model string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")
	return replacer.Replace(model)
}

// Path is deterministic in (project, aspect, embedding model) so re-runs
// find the artifact a previous run persisted.
func (s *ReducerStore) Path(projectId, aspectId uuid.UUID, model string) string {
	return filepath.Join(
		s.root,
		fmt.Sprintf("project-%s", projectId),
		fmt.Sprintf("aspect-%s", aspectId),
		sanitizeModelName(model)+".umap",
	)
}

// ThumbnailPath is where the rendered PNG map preview of an aspect lives.
func (s *ReducerStore) ThumbnailPath(projectId, aspectId uuid.UUID) string {
	return filepath.Join(
		s.root,
		fmt.Sprintf("project-%s", projectId),
		fmt.Sprintf("aspect-%s", aspectId),
		"thumbnail.png",
	)
}

// Load returns the persisted reducer for the key, or (nil, false, nil) when
// none has been fitted yet.
func (s *ReducerStore) Load(projectId, aspectId uuid.UUID, model string) (*Reducer, bool, error) {
	path := s.Path(projectId, aspectId, model)

	if cached, found := s.cache.Get(path); found {
		return cached.(*Reducer), true, nil
	}

	reducer, err := LoadReducer(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	s.cache.Set(path, reducer, cache.DefaultExpiration)
	return reducer, true, nil
}

// Store persists the reducer and primes the cache.
func (s *ReducerStore) Store(projectId, aspectId uuid.UUID, model string, reducer *Reducer) error {
	path := s.Path(projectId, aspectId, model)
	if err := reducer.Save(path); err != nil {
		return err
	}
	s.cache.Set(path, reducer, cache.DefaultExpiration)
	return nil
}

// DeleteAspect removes every persisted artifact of the aspect (used by
// model reset and aspect teardown).
func (s *ReducerStore) DeleteAspect(projectId, aspectId uuid.UUID) error {
	dir := filepath.Join(
		s.root,
		fmt.Sprintf("project-%s", projectId),
		fmt.Sprintf("aspect-%s", aspectId),
	)
	s.cache.Flush()
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove aspect artifacts: %w", err)
	}
	return nil
}
