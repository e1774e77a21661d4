package schedule

import (
	"reflect"
	"testing"
	"time"

	"github.com/chu3/brewpilot/internal/domain"
)

func secs(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func durPtr(d time.Duration) *time.Duration {
	return &d
}

func TestExpandTwoStageMethod(t *testing.T) {
	stages := []domain.Stage{
		{Label: "Bloom", Time: secs(10), Water: "50g"},
		{Label: "Main pour", Time: secs(40), Water: "200g"},
	}

	got := Expand(stages)
	if len(got) != 4 {
		t.Fatalf("expected 4 expanded stages, got %d", len(got))
	}

	want := []struct {
		kind  domain.StageKind
		start int
		end   int
		water string
	}{
		{domain.StagePour, 0, 3, "50g"},   // ⌊10/3⌋
		{domain.StageWait, 3, 10, "50g"},
		{domain.StagePour, 10, 20, "200g"}, // ⌊30/3⌋
		{domain.StageWait, 20, 40, "200g"},
	}
	for i, w := range want {
		st := got[i]
		if st.Kind != w.kind {
			t.Errorf("stage %d: kind %s, want %s", i, st.Kind, w.kind)
		}
		if st.Start != secs(w.start) || st.End != secs(w.end) {
			t.Errorf("stage %d: span [%s,%s], want [%ds,%ds]", i, st.Start, st.End, w.start, w.end)
		}
		if st.Water != w.water {
			t.Errorf("stage %d: water %q, want %q", i, st.Water, w.water)
		}
	}

	// Waits derived from a pour take the generic waiting label.
	if got[1].Label != WaitLabel {
		t.Errorf("trailing wait label %q, want %q", got[1].Label, WaitLabel)
	}
	// Back-references point at the producing macro stage.
	if got[2].OriginalIndex != 1 || got[3].OriginalIndex != 1 {
		t.Errorf("stage 2/3 original index = %d/%d, want 1/1", got[2].OriginalIndex, got[3].OriginalIndex)
	}
}

func TestExpandExplicitZeroPourKeepsLabel(t *testing.T) {
	stages := []domain.Stage{
		{Label: "Swirl", Detail: "Gentle circular swirl", Time: secs(5), Water: "30g", PourTime: durPtr(0)},
	}

	got := Expand(stages)
	if len(got) != 1 {
		t.Fatalf("expected single wait stage, got %d stages", len(got))
	}
	st := got[0]
	if st.Kind != domain.StageWait {
		t.Fatalf("expected wait, got %s", st.Kind)
	}
	if st.Start != 0 || st.End != secs(5) {
		t.Errorf("span [%s,%s], want [0s,5s]", st.Start, st.End)
	}
	if st.Label != "Swirl" {
		t.Errorf("label %q, want %q — explicit-zero pours keep the author's label", st.Label, "Swirl")
	}
	if st.Detail != "Gentle circular swirl" {
		t.Errorf("detail %q not preserved", st.Detail)
	}
}

func TestExpandInferredZeroPourGetsWaitLabel(t *testing.T) {
	// A 2-second stage infers ⌊2/3⌋ = 0 pour without an explicit zero.
	stages := []domain.Stage{
		{Label: "Quick rest", Time: secs(2), Water: "0g"},
	}

	got := Expand(stages)
	if len(got) != 1 {
		t.Fatalf("expected single stage, got %d", len(got))
	}
	if got[0].Kind != domain.StageWait {
		t.Fatalf("expected wait, got %s", got[0].Kind)
	}
	if got[0].Label != WaitLabel {
		t.Errorf("label %q, want the generic %q", got[0].Label, WaitLabel)
	}
}

func TestExpandEdgeCases(t *testing.T) {
	tests := []struct {
		name   string
		stages []domain.Stage
		want   int // expanded stage count
	}{
		{"empty input", nil, 0},
		{
			"zero-duration stage contributes nothing",
			[]domain.Stage{
				{Label: "Pour", Time: secs(10), Water: "50g"},
				{Label: "Ghost", Time: secs(10), Water: "50g"},
				{Label: "Pour 2", Time: secs(20), Water: "100g"},
			},
			4, // 2 per surviving macro stage
		},
		{
			"pour exactly fills the stage",
			[]domain.Stage{
				{Label: "Pour", Time: secs(10), Water: "50g", PourTime: durPtr(secs(10))},
			},
			1, // no trailing wait
		},
		{
			"explicit pour longer than span is clamped",
			[]domain.Stage{
				{Label: "Pour", Time: secs(10), Water: "50g", PourTime: durPtr(secs(30))},
			},
			1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Expand(tt.stages)
			if len(got) != tt.want {
				t.Fatalf("got %d expanded stages, want %d", len(got), tt.want)
			}
			for i, st := range got {
				if st.Start == st.End {
					t.Errorf("stage %d is zero-width at %s", i, st.Start)
				}
			}
		})
	}
}

func TestExpandTotalDurationInvariant(t *testing.T) {
	inputs := [][]domain.Stage{
		{
			{Label: "Bloom", Time: secs(30), Water: "45g"},
			{Label: "First pour", Time: secs(75), Water: "130g"},
			{Label: "Second pour", Time: secs(120), Water: "225g"},
		},
		{
			{Label: "Swirl", Time: secs(5), Water: "30g", PourTime: durPtr(0)},
			{Label: "Pour", Time: secs(65), Water: "180g"},
		},
		{
			{Label: "Only", Time: secs(1), Water: "10g"},
		},
	}

	for _, stages := range inputs {
		got := Expand(stages)
		if len(got) == 0 {
			t.Fatal("expected non-empty expansion")
		}
		last := got[len(got)-1]
		if last.End != stages[len(stages)-1].Time {
			t.Errorf("last end %s != last macro time %s", last.End, stages[len(stages)-1].Time)
		}
	}
}

func TestExpandDeterminism(t *testing.T) {
	stages := []domain.Stage{
		{Label: "Bloom", Time: secs(30), Water: "45g"},
		{Label: "Swirl", Time: secs(35), Water: "45g", PourTime: durPtr(0)},
		{Label: "Main", Time: secs(120), Water: "225g"},
	}

	a := Expand(stages)
	b := Expand(stages)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("expansion is not deterministic for identical input")
	}
}

func TestExpandWithDivisor(t *testing.T) {
	stages := []domain.Stage{
		{Label: "Pour", Time: secs(40), Water: "200g"},
	}

	got := ExpandWith(stages, 4)
	if got[0].End != secs(10) { // ⌊40/4⌋
		t.Errorf("pour end %s, want 10s with divisor 4", got[0].End)
	}

	// Invalid divisors fall back to the default.
	got = ExpandWith(stages, 0)
	if got[0].End != secs(13) { // ⌊40/3⌋
		t.Errorf("pour end %s, want 13s with default divisor", got[0].End)
	}
}

func TestParseWater(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"150g", 150},
		{"90.5g", 90.5},
		{"225 g", 225},
		{" 45g ", 45},
		{"300", 300},
		{"", 0},
		{"g", 0},
		{"lots", 0},
		{"..", 0},
	}

	for _, tt := range tests {
		if got := ParseWater(tt.in); got != tt.want {
			t.Errorf("ParseWater(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
