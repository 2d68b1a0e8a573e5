package pipeline

import (
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestTransitions(t *testing.T) {
	var tests = []struct {
		from, to State
		ok       bool
	}{
		{Pending, Running, true},
		{Running, Succeeded, true},
		{Running, Failed, true},
		{Pending, Succeeded, false},
		{Pending, Failed, false},
		{Succeeded, Running, false},
		{Failed, Running, false},
		{Succeeded, Failed, false},
	}

	for _, test := range tests {
		job := &Job{ID: "j", State: test.from}
		err := job.transition(test.to)

		if test.ok && err != nil {
			t.Errorf("%s -> %s: unexpected error %v", test.from, test.to, err)
		}
		if !test.ok && errors.Cause(err) != ErrInvalidTransition {
			t.Errorf("%s -> %s: expected ErrInvalidTransition, got %v", test.from, test.to, err)
		}
		if !test.ok && job.State != test.from {
			t.Errorf("%s -> %s: state changed to %s", test.from, test.to, job.State)
		}
	}
}

func TestParseCleanupPolicy(t *testing.T) {
	var tests = []struct {
		in      string
		want    CleanupPolicy
		wantErr bool
	}{
		{"", CleanupKeep, false},
		{"keep", CleanupKeep, false},
		{" REMOVE ", CleanupRemove, false},
		{"shred", "", true},
	}

	for _, test := range tests {
		got, err := ParseCleanupPolicy(test.in)
		if (err != nil) != test.wantErr || got != test.want {
			t.Errorf("ParseCleanupPolicy(%q) = %q, %v", test.in, got, err)
		}
	}
}

func TestAssetLocks(t *testing.T) {
	locks := newAssetLocks()

	var mu sync.Mutex
	active, maxActive := 0, 0

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock(1)
			defer unlock()

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxActive)
	}
	if len(locks.locks) != 0 {
		t.Errorf("locks not released: %d left", len(locks.locks))
	}

	// distinct assets do not block each other
	unlockA := locks.lock(1)
	unlockB := locks.lock(2)
	unlockB()
	unlockA()
}
