package ladder

import (
	"context"
	"fmt"
)

// Rendition is one target output of the encoding ladder.
type Rendition struct {
	Label   string `yaml:"label"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	Bitrate int    `yaml:"bitrate"`
	Profile string `yaml:"profile,omitempty"`
	Level   string `yaml:"level,omitempty"`
}

func (r Rendition) Resolution() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Default returns the fixed ladder, lowest quality first.
func Default() []Rendition {
	return []Rendition{
		{Label: "360p", Width: 640, Height: 360, Bitrate: 400000, Profile: "baseline", Level: "3.0"},
		{Label: "480p", Width: 854, Height: 480, Bitrate: 800000, Profile: "baseline", Level: "3.0"},
		{Label: "720p", Width: 1280, Height: 720, Bitrate: 1500000, Profile: "baseline", Level: "3.0"},
	}
}

type Planner interface {
	Plan(ctx context.Context, source string) ([]Rendition, error)
}

// Static always plans the same ladder regardless of the source.
type Static struct {
	ladder []Rendition
}

func NewStatic(ladder []Rendition) (*Static, error) {
	if err := Validate(ladder); err != nil {
		return nil, err
	}

	return &Static{ladder: clone(ladder)}, nil
}

func (s *Static) Plan(_ context.Context, _ string) ([]Rendition, error) {
	if s == nil || len(s.ladder) == 0 {
		return Default(), nil
	}

	return clone(s.ladder), nil
}

// PlanningError is returned when a ladder cannot be used to drive a run.
type PlanningError struct {
	Reason string
}

func (e *PlanningError) Error() string {
	return "planning: " + e.Reason
}

// Validate checks that labels are unique, dimensions are positive and
// bitrates never decrease along the ladder.
func Validate(ladder []Rendition) error {
	if len(ladder) == 0 {
		return &PlanningError{Reason: "empty ladder"}
	}

	seen := make(map[string]struct{}, len(ladder))
	previous := 0

	for i, r := range ladder {
		if r.Label == "" {
			return &PlanningError{Reason: fmt.Sprintf("rendition #%d has no label", i)}
		}

		if _, ok := seen[r.Label]; ok {
			return &PlanningError{Reason: fmt.Sprintf("duplicate rendition label '%s'", r.Label)}
		}
		seen[r.Label] = struct{}{}

		if r.Width <= 0 || r.Height <= 0 || r.Bitrate <= 0 {
			return &PlanningError{Reason: fmt.Sprintf("rendition '%s' has invalid dimensions or bitrate", r.Label)}
		}

		if r.Bitrate < previous {
			return &PlanningError{Reason: fmt.Sprintf("rendition '%s' breaks ascending bitrate order", r.Label)}
		}
		previous = r.Bitrate
	}

	return nil
}

func clone(ladder []Rendition) []Rendition {
	out := make([]Rendition, len(ladder))
	copy(out, ladder)
	return out
}
