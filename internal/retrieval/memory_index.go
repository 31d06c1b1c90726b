package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
)

// MemoryIndex is an immutable in-memory snapshot. Build a new one to change it.
type MemoryIndex struct {
	entries []Entry
}

func NewMemoryIndex(entries []Entry) *MemoryIndex {
	return &MemoryIndex{entries: append([]Entry(nil), entries...)}
}

func (m *MemoryIndex) Len() int {
	return len(m.entries)
}

func (m *MemoryIndex) Search(_ context.Context, query []float64, k int, f Filter) ([]Candidate, error) {
	if k <= 0 {
		return nil, nil
	}
	var hits []Candidate
	for _, e := range m.entries {
		if e.TenantID != f.TenantID || e.UserID != f.UserID {
			continue
		}
		hits = append(hits, Candidate{Entry: e, Distance: CosineDistance(query, e.Embedding)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *MemoryIndex) MMRSearch(ctx context.Context, query []float64, k, fetchK int, lambda float64, f Filter) ([]Candidate, error) {
	if fetchK < k {
		fetchK = k
	}
	pool, err := m.Search(ctx, query, fetchK, f)
	if err != nil {
		return nil, err
	}
	out := mmrFromCandidates(query, pool, k, lambda)
	for i := range out {
		out[i].Distance = 0
	}
	return out, nil
}

type snapshotFile struct {
	Version int     `json:"version"`
	Entries []Entry `json:"entries"`
}

// LoadMemoryIndex reads a JSON snapshot written by MemoryStore.Save.
func LoadMemoryIndex(path string) (*MemoryIndex, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap snapshotFile
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode vault snapshot %s: %w", path, err)
	}
	return &MemoryIndex{entries: snap.Entries}, nil
}

// MemoryStore holds the process-wide snapshot. Readers never lock; writers
// build a complete new snapshot and swap the pointer.
type MemoryStore struct {
	current atomic.Pointer[MemoryIndex]
	// writeMu serialises read-modify-swap so concurrent ingests are not lost.
	writeMu sync.Mutex
	path    string
}

// NewMemoryStore starts empty. path, when set, is where ingests persist.
func NewMemoryStore(path string) *MemoryStore {
	return &MemoryStore{path: path}
}

// Current returns nil when no snapshot has been loaded or ingested.
func (s *MemoryStore) Current() VectorIndex {
	idx := s.current.Load()
	if idx == nil {
		return nil
	}
	return idx
}

func (s *MemoryStore) Replace(idx *MemoryIndex) {
	s.current.Store(idx)
}

func (s *MemoryStore) ReplaceUserDocuments(_ context.Context, tenantID, userID string, entries []Entry) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var kept []Entry
	if old := s.current.Load(); old != nil {
		kept = make([]Entry, 0, len(old.entries)+len(entries))
		for _, e := range old.entries {
			if e.TenantID == tenantID && e.UserID == userID {
				continue
			}
			kept = append(kept, e)
		}
	}
	for _, e := range entries {
		e.TenantID = tenantID
		e.UserID = userID
		kept = append(kept, e)
	}

	next := &MemoryIndex{entries: kept}
	if s.path != "" {
		if err := writeSnapshot(s.path, next); err != nil {
			return err
		}
	}
	s.current.Store(next)
	return nil
}

// Save writes the current snapshot to path.
func (s *MemoryStore) Save(path string) error {
	idx := s.current.Load()
	if idx == nil {
		idx = &MemoryIndex{}
	}
	return writeSnapshot(path, idx)
}

func writeSnapshot(path string, idx *MemoryIndex) error {
	raw, err := json.Marshal(snapshotFile{Version: 1, Entries: idx.entries})
	if err != nil {
		return fmt.Errorf("encode vault snapshot: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".vault-*.json")
	if err != nil {
		return fmt.Errorf("create vault snapshot: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write vault snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close vault snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("publish vault snapshot: %w", err)
	}
	return nil
}
