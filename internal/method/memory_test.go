package method

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chu3/brewpilot/internal/domain"
	"github.com/chu3/brewpilot/internal/logger"
)

func TestMemorySourceList(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	src := NewMemorySource(log)
	ctx := context.Background()

	methods, err := src.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(methods) < 5 {
		t.Fatalf("expected at least 5 methods, got %d", len(methods))
	}
	for i := 1; i < len(methods); i++ {
		if methods[i-1].Name > methods[i].Name {
			t.Fatalf("list not sorted by name: %q before %q", methods[i-1].Name, methods[i].Name)
		}
	}
}

func TestMemorySourceGet(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	src := NewMemorySource(log)
	ctx := context.Background()

	tests := []struct {
		id      string
		wantErr error
	}{
		{"v60-simple", nil},
		{"kasuya-4-6", nil},
		{"clever-dripper", nil},
		{"nonexistent", domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			m, err := src.Get(ctx, tt.id)
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.ID != tt.id {
				t.Fatalf("expected ID %s, got %s", tt.id, m.ID)
			}
			if len(m.Stages) == 0 {
				t.Fatal("method has no stages")
			}
			if m.Params.WaterGrams <= 0 {
				t.Fatal("method has no water target")
			}
		})
	}
}

func TestMemorySourceSearch(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	src := NewMemorySource(log)
	ctx := context.Background()

	tests := []struct {
		query    string
		minCount int
	}{
		{"v60", 3},
		{"immersion", 1},
		{"kasuya", 1},
		{"nonexistent-query-xyz", 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := src.Search(ctx, tt.query)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(got) < tt.minCount {
				t.Fatalf("expected at least %d results for %q, got %d", tt.minCount, tt.query, len(got))
			}
		})
	}
}

func TestMemorySourceAdd(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	src := NewMemorySource(log)

	m := &domain.Method{
		ID:   "custom",
		Name: "Custom Brew",
		Stages: []domain.Stage{
			{Label: "Pour", Time: time.Minute, Water: "200g"},
		},
	}
	if err := src.Add(m); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := src.Add(m); err != domain.ErrAlreadyExists {
		t.Fatalf("expected ErrAlreadyExists on duplicate, got %v", err)
	}

	got, err := src.Get(context.Background(), "custom")
	if err != nil {
		t.Fatalf("get after add: %v", err)
	}
	if got.Name != "Custom Brew" {
		t.Fatalf("unexpected name %q", got.Name)
	}
}

func TestSeededStageTimesAdvance(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	src := NewMemorySource(log)
	ctx := context.Background()

	summaries, err := src.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, sum := range summaries {
		m, err := src.Get(ctx, sum.ID)
		if err != nil {
			t.Fatalf("get %s: %v", sum.ID, err)
		}
		var prev time.Duration
		for i, st := range m.Stages {
			if st.Time <= prev {
				t.Fatalf("%s stage %d: time %s does not advance past %s", m.ID, i, st.Time, prev)
			}
			prev = st.Time
		}
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aero.yaml")
	content := `id: aeropress-basic
name: AeroPress Basic
description: Inverted, two minute steep.
tags: [aeropress, immersion]
params:
  coffee_grams: 15
  water_grams: 220
  ratio: "1:14.7"
  grind: fine
  temp_celsius: 85
stages:
  - label: Fill
    time: 20s
    water: 220g
    pour_time: 20s
    detail: Pour all the water in.
  - label: Steep
    time: 2m
    water: 220g
    pour_time: 0s
    detail: Stir once, cap it.
  - label: Press
    time: 2m30s
    water: 220g
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	m, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.ID != "aeropress-basic" {
		t.Fatalf("unexpected id %q", m.ID)
	}
	if len(m.Stages) != 3 {
		t.Fatalf("expected 3 stages, got %d", len(m.Stages))
	}
	if m.Stages[0].PourTime == nil || *m.Stages[0].PourTime != 20*time.Second {
		t.Fatal("first stage pour_time not parsed")
	}
	if m.Stages[1].PourTime == nil || *m.Stages[1].PourTime != 0 {
		t.Fatal("explicit zero pour_time should survive as non-nil zero")
	}
	if m.Stages[2].PourTime != nil {
		t.Fatal("absent pour_time should stay nil")
	}
}

func TestLoadFileRejectsNonAdvancingTimes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	content := `name: Broken
stages:
  - label: A
    time: 1m
    water: 100g
  - label: B
    time: 30s
    water: 200g
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for non-advancing stage times")
	}
}

func TestLoadDirSkipsMalformed(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	dir := t.TempDir()

	good := `name: Good Method
stages:
  - label: Pour
    time: 1m
    water: 200g
`
	if err := os.WriteFile(filepath.Join(dir, "good.yaml"), []byte(good), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("{not yaml"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	methods, err := LoadDir(dir, log)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	if len(methods) != 1 {
		t.Fatalf("expected 1 method, got %d", len(methods))
	}
	if methods[0].ID != "good-method" {
		t.Fatalf("expected slug id, got %q", methods[0].ID)
	}
}

func TestLoadDirMissingIsNotError(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	methods, err := LoadDir(filepath.Join(t.TempDir(), "nope"), log)
	if err != nil {
		t.Fatalf("missing dir should not error, got %v", err)
	}
	if methods != nil {
		t.Fatalf("expected nil methods, got %v", methods)
	}
}
