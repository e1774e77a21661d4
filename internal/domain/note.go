package domain

import "time"

// BrewNote is the session summary produced when a brew completes. It is
// the engine's sole output payload to the rest of the application — the
// taste and rating fields start empty and are filled in afterwards by
// the user.
type BrewNote struct {
	ID          string
	EquipmentID string
	MethodID    string
	MethodName  string
	TotalTime   time.Duration
	Params      BrewParams
	Skipped     bool
	Rating      int // 1..5, 0 while unrated
	Taste       TasteRatings
	Comment     string
	CreatedAt   time.Time
}

// TasteRatings holds the four taste attributes, each 0..5 with 0
// meaning unrated.
type TasteRatings struct {
	Acidity    int
	Sweetness  int
	Bitterness int
	Body       int
}

// Rated reports whether the note has received an overall rating.
func (n *BrewNote) Rated() bool {
	return n.Rating > 0
}
