package notes

import (
	"context"
	"testing"
	"time"

	"github.com/chu3/brewpilot/internal/domain"
	"github.com/chu3/brewpilot/internal/logger"
)

func noteFixture(id string, created time.Time) *domain.BrewNote {
	return &domain.BrewNote{
		ID:         id,
		MethodID:   "v60-simple",
		MethodName: "V60 Single Pour",
		TotalTime:  150 * time.Second,
		CreatedAt:  created,
	}
}

func TestMemoryStoreSaveGet(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	store := NewMemoryStore(log)
	ctx := context.Background()

	note := noteFixture("note-1", time.Now())
	if err := store.Save(ctx, note); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Get(ctx, "note-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.MethodID != "v60-simple" {
		t.Fatalf("unexpected method %q", got.MethodID)
	}
	if got.Rated() {
		t.Fatal("fresh note should be unrated")
	}

	// Mutating the returned copy must not leak into the store.
	got.Rating = 5
	again, err := store.Get(ctx, "note-1")
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if again.Rating != 0 {
		t.Fatal("store handed out a shared pointer")
	}

	if _, err := store.Get(ctx, "nonexistent"); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreListOrder(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	store := NewMemoryStore(log)
	ctx := context.Background()

	base := time.Now()
	for i, id := range []string{"old", "mid", "new"} {
		n := noteFixture(id, base.Add(time.Duration(i)*time.Minute))
		if err := store.Save(ctx, n); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 notes, got %d", len(list))
	}
	if list[0].ID != "new" || list[2].ID != "old" {
		t.Fatalf("expected newest first, got %s..%s", list[0].ID, list[2].ID)
	}
}

func TestMemoryStoreRate(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	store := NewMemoryStore(log)
	ctx := context.Background()

	if err := store.Save(ctx, noteFixture("note-1", time.Now())); err != nil {
		t.Fatalf("save: %v", err)
	}

	taste := domain.TasteRatings{Acidity: 3, Sweetness: 4, Bitterness: 2, Body: 3}
	if err := store.Rate(ctx, "note-1", 4, taste, "juicy, a bit fast"); err != nil {
		t.Fatalf("rate: %v", err)
	}

	got, err := store.Get(ctx, "note-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Rated() || got.Rating != 4 {
		t.Fatalf("expected rating 4, got %d", got.Rating)
	}
	if got.Taste != taste {
		t.Fatalf("taste not stored: %+v", got.Taste)
	}
	if got.Comment != "juicy, a bit fast" {
		t.Fatalf("comment not stored: %q", got.Comment)
	}
}

func TestMemoryStoreRateValidation(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	store := NewMemoryStore(log)
	ctx := context.Background()

	if err := store.Save(ctx, noteFixture("note-1", time.Now())); err != nil {
		t.Fatalf("save: %v", err)
	}

	tests := []struct {
		name    string
		id      string
		rating  int
		taste   domain.TasteRatings
		wantErr error
	}{
		{"rating too low", "note-1", 0, domain.TasteRatings{}, domain.ErrInvalidRating},
		{"rating too high", "note-1", 6, domain.TasteRatings{}, domain.ErrInvalidRating},
		{"taste out of range", "note-1", 3, domain.TasteRatings{Body: 7}, domain.ErrInvalidRating},
		{"missing note", "nope", 3, domain.TasteRatings{}, domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.Rate(ctx, tt.id, tt.rating, tt.taste, ""); err != tt.wantErr {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
