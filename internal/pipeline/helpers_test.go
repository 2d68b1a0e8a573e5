package pipeline

import (
	"context"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"vodpack/internal/database"
	"vodpack/internal/exceptions"
	"vodpack/internal/ladder"
	"vodpack/internal/layout"
	"vodpack/internal/transcode"
)

const testBaseURL = "https://cdn.example.com/vod"

type fakeEngine struct {
	mu        sync.Mutex
	failOn    string
	delay     time.Duration
	segments  int
	release   chan struct{}
	after     func(label, dir string)
	calls     []string
	active    int
	maxActive int
}

func (f *fakeEngine) Execute(_ context.Context, source string, r ladder.Rendition, dir string) (*transcode.Output, error) {
	f.mu.Lock()
	f.calls = append(f.calls, r.Label)
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.release != nil {
		<-f.release
	}

	if err := layout.EnsureDir(dir); err != nil {
		return nil, err
	}

	if r.Label == f.failOn {
		return nil, &transcode.EngineError{
			Rendition:  r.Label,
			ExitCode:   1,
			Diagnostic: "Invalid data found when processing input",
			Err:        errors.New("ffmpeg exited with code 1"),
		}
	}

	playlist := filepath.Join(dir, layout.PlaylistName)
	if err := ioutil.WriteFile(playlist, []byte("#EXTM3U\n# "+source+"\n"), 0o644); err != nil {
		return nil, err
	}
	segments := f.segments
	if segments <= 0 {
		segments = 1
	}
	for i := 0; i < segments; i++ {
		name := filepath.Join(dir, fmt.Sprintf("segment_%03d.ts", i))
		if err := ioutil.WriteFile(name, []byte{0x47}, 0o644); err != nil {
			return nil, err
		}
	}

	if f.after != nil {
		f.after(r.Label, dir)
	}

	return &transcode.Output{Rendition: r, Dir: dir, Playlist: playlist, Segments: segments}, nil
}

func (f *fakeEngine) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type failingStore struct {
	*database.Memory
}

func (f *failingStore) UpsertManifestPath(context.Context, int64, string) error {
	return errors.New("connection refused")
}

type recordingReporter struct {
	mu      sync.Mutex
	reports []error
	tags    []exceptions.Tags
}

func (r *recordingReporter) ReportException(err error, tags exceptions.Tags) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, err)
	r.tags = append(r.tags, tags)
}

type testEnv struct {
	root     string
	engine   *fakeEngine
	store    *database.Memory
	reporter *recordingReporter
	hook     *logtest.Hook
	runner   *Runner
}

func newTestEnv(t *testing.T, cfg Config, engine *fakeEngine) *testEnv {
	t.Helper()

	env := &testEnv{
		root:     t.TempDir(),
		engine:   engine,
		store:    database.NewMemory(),
		reporter: &recordingReporter{},
	}

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	env.hook = hook

	cfg.AssetRoot = env.root
	cfg.BaseURL = testBaseURL

	runner, err := NewRunner(cfg, Deps{
		Engine:   engine,
		Store:    env.store,
		Reporter: env.reporter,
		Logger:   log.NewEntry(logger),
	})
	if err != nil {
		t.Fatal(err)
	}
	env.runner = runner

	return env
}

func (e *testEnv) errorEntries() []*log.Entry {
	var entries []*log.Entry
	for _, entry := range e.hook.AllEntries() {
		if entry.Level == log.ErrorLevel {
			entries = append(entries, entry)
		}
	}
	return entries
}
