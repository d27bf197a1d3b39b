package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"SignalSentinel/internal/model"
)

// MemoryStore keeps recommendations in memory, optionally mirrored to a JSON
// state file so history survives restarts without a database.
type MemoryStore struct {
	mu       sync.Mutex
	recs     map[string]*model.Recommendation
	filePath string
}

type memoryState struct {
	Recommendations []model.Recommendation `json:"recommendations"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// NewMemoryStore loads state from filePath if it exists. An empty path keeps
// everything in memory.
func NewMemoryStore(filePath string) (*MemoryStore, error) {
	s := &MemoryStore{recs: make(map[string]*model.Recommendation), filePath: filePath}
	if filePath == "" {
		return s, nil
	}
	state, err := loadState(filePath)
	if err != nil {
		return nil, wrap("load", err)
	}
	for i := range state.Recommendations {
		rec := state.Recommendations[i]
		s.recs[rec.ID] = &rec
	}
	return s, nil
}

func loadState(filePath string) (*memoryState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &memoryState{}, nil
		}
		return nil, err
	}
	var state memoryState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// save must be called with mu held.
func (s *MemoryStore) save() error {
	if s.filePath == "" {
		return nil
	}
	state := memoryState{Recommendations: s.sorted(), UpdatedAt: time.Now().UTC()}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.filePath)
}

// sorted returns copies of all records oldest first. Caller holds mu.
func (s *MemoryStore) sorted() []model.Recommendation {
	out := make([]model.Recommendation, 0, len(s.recs))
	for _, r := range s.recs {
		out = append(out, copyRec(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func copyRec(r *model.Recommendation) model.Recommendation {
	c := *r
	c.Reasoning = append([]string(nil), r.Reasoning...)
	if r.EvaluatedAt != nil {
		t := *r.EvaluatedAt
		c.EvaluatedAt = &t
	}
	return c
}

func (s *MemoryStore) Insert(_ context.Context, rec *model.Recommendation) error {
	if err := validateInsert(rec); err != nil {
		return wrap("insert", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recs[rec.ID]; ok {
		return wrap("insert", os.ErrExist)
	}
	c := copyRec(rec)
	s.recs[rec.ID] = &c
	if err := s.save(); err != nil {
		delete(s.recs, rec.ID)
		return wrap("insert", err)
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*model.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recs[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := copyRec(r)
	return &c, nil
}

func (s *MemoryStore) ListByStatus(_ context.Context, status model.Status) ([]model.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Recommendation
	for _, r := range s.sorted() {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListRecent(_ context.Context, status model.Status, limit int) ([]model.Recommendation, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.sorted()
	var out []model.Recommendation
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		if status == "" || all[i].Status == status {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (s *MemoryStore) ListAll(_ context.Context) ([]model.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(), nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id string, status model.Status, evaluatedAt time.Time) error {
	if err := validateUpdate(status); err != nil {
		return wrap("update", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recs[id]
	if !ok {
		return ErrNotFound
	}
	if r.Status != model.StatusPending {
		return ErrNotPending
	}
	prev := *r
	at := evaluatedAt.UTC()
	r.Status = status
	r.EvaluatedAt = &at
	if err := s.save(); err != nil {
		*r = prev
		return wrap("update", err)
	}
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return wrap("close", s.save())
}
