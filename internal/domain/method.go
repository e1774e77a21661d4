// Package domain defines the core types and interfaces for the brewing
// companion. All other packages depend on domain; domain depends on nothing.
package domain

import "time"

// Method represents a complete pour-over brewing method: a set of global
// parameters plus an ordered list of macro stages.
type Method struct {
	ID          string
	Name        string
	Description string
	Params      BrewParams
	Stages      []Stage
	Tags        []string
	Version     int
}

// MethodSummary is a lightweight view of a method for listing.
type MethodSummary struct {
	ID          string
	Name        string
	Description string
	Tags        []string
}

// BrewParams carries the global recipe parameters for a method.
type BrewParams struct {
	CoffeeGrams float64
	WaterGrams  float64
	Ratio       string // e.g. "1:15"
	Grind       string // e.g. "medium-fine"
	TempCelsius float64
}

// Stage is a user-authored macro recipe step.
//
// Time is the cumulative offset from recipe start at which this stage
// ends; stages are ordered by ascending Time and the first stage starts
// at zero. Water is the cumulative target at Time, kept in its authored
// string form ("150g") — parsing degrades to 0 on malformed values.
//
// PourTime distinguishes three cases: nil means the pour duration is
// unspecified and gets inferred, a non-nil zero means the stage
// deliberately has no pour (a swirl or rest step), and a positive value
// is used as-is.
type Stage struct {
	Label       string
	Time        time.Duration
	Water       string
	PourTime    *time.Duration
	Detail      string
	PourType    string
	ValveStatus string
}

// PrevTime returns the start offset of the stage at index i within
// stages: the prior stage's Time, or 0 for the first stage.
func PrevTime(stages []Stage, i int) time.Duration {
	if i <= 0 {
		return 0
	}
	return stages[i-1].Time
}
