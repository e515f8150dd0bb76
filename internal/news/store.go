package news

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Snapshot is an immutable view of the store at one instant. The slice and
// map are never mutated after publication; derived computations (clusters,
// rankings, summaries) run over a Snapshot without further locking.
type Snapshot struct {
	Articles  []Article            // sorted by publish time, newest first
	Clusters  map[string][]Article // ClusterKey -> members
	UpdatedAt time.Time
}

// Store owns the process-wide article state and its persisted cache file.
// Mutations rebuild the article slice and cluster index wholesale, so
// previously handed-out Snapshots stay valid.
type Store struct {
	mu         sync.RWMutex
	articles   []Article
	seen       map[string]struct{} // fingerprints
	clusters   map[string][]Article
	updatedAt  time.Time
	generation uint64

	cachePath string
	log       *slog.Logger
}

// NewStore creates an empty store persisting to cachePath. Call Load to
// warm it from a previous run's cache.
func NewStore(cachePath string, log *slog.Logger) *Store {
	return &Store{
		seen:      make(map[string]struct{}),
		clusters:  make(map[string][]Article),
		cachePath: cachePath,
		log:       log.With("component", "newsstore"),
	}
}

type cacheFile struct {
	UpdatedAt time.Time `json:"updated_at"`
	Articles  []Article `json:"articles"`
}

// Load replaces the store contents with the persisted cache. A missing or
// corrupt cache degrades to an empty store with a logged warning; a fresh
// scan then repopulates it. Load never fails the caller.
func (s *Store) Load() {
	data, err := os.ReadFile(s.cachePath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("cache unreadable, starting empty", "path", s.cachePath, "error", err)
		}
		return
	}

	var cache cacheFile
	if err := json.Unmarshal(data, &cache); err != nil {
		s.log.Warn("cache corrupt, starting empty", "path", s.cachePath, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(cache.Articles, cache.UpdatedAt)
	s.log.Info("cache loaded", "articles", len(s.articles), "updated_at", cache.UpdatedAt)
}

// MergeFetched folds a scan cycle's articles into the store: fingerprint
// dedup against existing content, merge, re-sort, cluster rebuild, cache
// save. It returns the number of genuinely new articles. A cache write
// failure is returned for logging but leaves the in-memory state merged.
func (s *Store) MergeFetched(batch []Article) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := append([]Article(nil), s.articles...)
	added := 0
	for _, a := range batch {
		if a.Fingerprint == "" {
			continue
		}
		if _, dup := s.seen[a.Fingerprint]; dup {
			continue
		}
		s.seen[a.Fingerprint] = struct{}{}
		merged = append(merged, a)
		added++
	}

	s.replaceLocked(merged, time.Now())
	return added, s.saveLocked()
}

// ReplaceAll discards current contents in favour of batch (cold reload) and
// persists the result.
func (s *Store) ReplaceAll(batch []Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(batch, time.Now())
	return s.saveLocked()
}

// replaceLocked installs articles as the new store state: dedup by
// fingerprint, sort newest first, rebuild the cluster index.
func (s *Store) replaceLocked(articles []Article, updatedAt time.Time) {
	seen := make(map[string]struct{}, len(articles))
	deduped := make([]Article, 0, len(articles))
	for _, a := range articles {
		if a.Fingerprint == "" {
			continue
		}
		if _, dup := seen[a.Fingerprint]; dup {
			continue
		}
		seen[a.Fingerprint] = struct{}{}
		deduped = append(deduped, a)
	}
	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Published.After(deduped[j].Published)
	})

	s.articles = deduped
	s.seen = seen
	s.clusters = Cluster(deduped)
	s.updatedAt = updatedAt
	s.generation++
}

// saveLocked persists the store to the cache file, writing to a temp file
// in the same directory and renaming over the previous cache so a crash
// mid-write cannot destroy the last good copy.
func (s *Store) saveLocked() error {
	if s.cachePath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.cachePath), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	data, err := json.MarshalIndent(cacheFile{UpdatedAt: s.updatedAt, Articles: s.articles}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.cachePath), ".cache-*.json")
	if err != nil {
		return fmt.Errorf("create temp cache: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.cachePath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace cache: %w", err)
	}
	return nil
}

// Snapshot returns the current immutable view.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Articles: s.articles, Clusters: s.clusters, UpdatedAt: s.updatedAt}
}

// Len returns the number of stored articles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.articles)
}

// Generation increments on every mutation; response caches key on it.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// UpdatedAt returns the time of the last successful mutation.
func (s *Store) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}
