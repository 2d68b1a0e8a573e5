package ladder

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func TestDefaultLadder(t *testing.T) {
	want := []Rendition{
		{Label: "360p", Width: 640, Height: 360, Bitrate: 400000, Profile: "baseline", Level: "3.0"},
		{Label: "480p", Width: 854, Height: 480, Bitrate: 800000, Profile: "baseline", Level: "3.0"},
		{Label: "720p", Width: 1280, Height: 720, Bitrate: 1500000, Profile: "baseline", Level: "3.0"},
	}

	if diff := cmp.Diff(want, Default()); diff != "" {
		t.Errorf("unexpected default ladder (-want +got):\n%s", diff)
	}

	if err := Validate(Default()); err != nil {
		t.Errorf("default ladder should be valid, got %v", err)
	}
}

func TestStaticPlanIsDeterministic(t *testing.T) {
	planner, err := NewStatic(Default())
	if err != nil {
		t.Fatal(err)
	}

	first, err := planner.Plan(context.Background(), "/tmp/a.mp4")
	if err != nil {
		t.Fatal(err)
	}

	for _, source := range []string{"/tmp/a.mp4", "/tmp/b.mkv", ""} {
		got, err := planner.Plan(context.Background(), source)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(first, got); diff != "" {
			t.Errorf("plan for %q differs (-first +got):\n%s", source, diff)
		}
	}
}

func TestStaticPlanReturnsCopy(t *testing.T) {
	planner, err := NewStatic(Default())
	if err != nil {
		t.Fatal(err)
	}

	plan, _ := planner.Plan(context.Background(), "")
	plan[0].Label = "mutated"

	again, _ := planner.Plan(context.Background(), "")
	if again[0].Label != "360p" {
		t.Errorf("planner state leaked through returned slice: %q", again[0].Label)
	}
}

func TestZeroStaticFallsBackToDefault(t *testing.T) {
	var planner *Static

	got, err := planner.Plan(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Default(), got); diff != "" {
		t.Errorf("unexpected plan (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	var tests = []struct {
		name    string
		ladder  []Rendition
		wantErr string
	}{
		{"empty", nil, "planning: empty ladder"},
		{"missing label", []Rendition{{Width: 1, Height: 1, Bitrate: 1}}, "planning: rendition #0 has no label"},
		{
			"duplicate label",
			[]Rendition{{Label: "a", Width: 1, Height: 1, Bitrate: 1}, {Label: "a", Width: 1, Height: 1, Bitrate: 2}},
			"planning: duplicate rendition label 'a'",
		},
		{"zero width", []Rendition{{Label: "a", Height: 1, Bitrate: 1}}, "planning: rendition 'a' has invalid dimensions or bitrate"},
		{
			"descending",
			[]Rendition{{Label: "hi", Width: 2, Height: 2, Bitrate: 20}, {Label: "lo", Width: 1, Height: 1, Bitrate: 10}},
			"planning: rendition 'lo' breaks ascending bitrate order",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := Validate(test.ladder)
			if err == nil {
				t.Fatalf("expected error %q", test.wantErr)
			}
			if err.Error() != test.wantErr {
				t.Errorf("wrong error\nWant %q\nGot  %q", test.wantErr, err.Error())
			}

			var planningErr *PlanningError
			if !errors.As(err, &planningErr) {
				t.Errorf("expected *PlanningError, got %T", err)
			}
		})
	}
}

func TestResolution(t *testing.T) {
	if got := Default()[1].Resolution(); got != "854x480" {
		t.Errorf("Resolution() = %q, want 854x480", got)
	}
}
