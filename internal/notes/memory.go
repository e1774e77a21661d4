// Package notes provides brew note persistence implementations.
package notes

import (
	"context"
	"sort"
	"sync"

	"github.com/chu3/brewpilot/internal/domain"
	"github.com/chu3/brewpilot/internal/logger"
)

// Compile-time interface check.
var _ domain.NoteStore = (*MemoryStore)(nil)

// MemoryStore is an in-memory note store. Safe for concurrent access.
type MemoryStore struct {
	mu    sync.RWMutex
	notes map[string]*domain.BrewNote
	log   *logger.Logger
}

// NewMemoryStore creates an empty in-memory note store.
func NewMemoryStore(log *logger.Logger) *MemoryStore {
	return &MemoryStore{
		notes: make(map[string]*domain.BrewNote),
		log:   log,
	}
}

// Save persists a note. Overwrites if it already exists.
func (s *MemoryStore) Save(ctx context.Context, note *domain.BrewNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Debug("saving note %s (method=%s, skipped=%t)", note.ID, note.MethodID, note.Skipped)
	cp := *note
	s.notes[note.ID] = &cp
	return nil
}

// Get retrieves a note by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.BrewNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notes[id]
	if !ok {
		s.log.Debug("note not found: %s", id)
		return nil, domain.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

// List returns all notes, most recent first.
func (s *MemoryStore) List(ctx context.Context) ([]*domain.BrewNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.BrewNote, 0, len(s.notes))
	for _, n := range s.notes {
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	s.log.Debug("listing notes, count=%d", len(out))
	return out, nil
}

// Rate attaches a rating, taste breakdown and comment to an existing
// note. Rating must be 1-5; taste components are 0 (unset) or 1-5.
func (s *MemoryStore) Rate(ctx context.Context, id string, rating int, taste domain.TasteRatings, comment string) error {
	if rating < 1 || rating > 5 {
		return domain.ErrInvalidRating
	}
	for _, v := range []int{taste.Acidity, taste.Sweetness, taste.Bitterness, taste.Body} {
		if v < 0 || v > 5 {
			return domain.ErrInvalidRating
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[id]
	if !ok {
		return domain.ErrNotFound
	}
	n.Rating = rating
	n.Taste = taste
	n.Comment = comment
	s.log.Info("note %s rated %d/5", id, rating)
	return nil
}
