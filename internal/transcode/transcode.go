package transcode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"vodpack/internal/executor"
	"vodpack/internal/ladder"
	"vodpack/internal/layout"
)

const (
	DefaultSegmentDuration = 10

	segmentPattern = "segment_%03d.ts"
)

type Config struct {
	FFmpeg  string
	FFprobe string
	// Timeout bounds one engine invocation. Zero means the engine runs until
	// it exits on its own.
	Timeout         time.Duration
	SegmentDuration int
}

// Output is a rendition confirmed on disk.
type Output struct {
	Rendition ladder.Rendition
	Dir       string
	Playlist  string
	Segments  int
	Elapsed   time.Duration
}

// EngineError carries the engine diagnostic for a failed rendition.
type EngineError struct {
	Rendition  string
	ExitCode   int
	Diagnostic string
	Err        error
}

func (e *EngineError) Error() string {
	msg := fmt.Sprintf("transcode %s", e.Rendition)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

type Transcoder struct {
	cfg    Config
	runner executor.Runner
	logger *log.Entry

	mu           sync.Mutex
	probedSource string
	probed       *Metadata
}

func New(cfg Config, runner executor.Runner, logger *log.Entry) *Transcoder {
	if cfg.FFmpeg == "" {
		cfg.FFmpeg = "ffmpeg"
	}
	if cfg.FFprobe == "" {
		cfg.FFprobe = "ffprobe"
	}
	if cfg.SegmentDuration <= 0 {
		cfg.SegmentDuration = DefaultSegmentDuration
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	if runner == nil {
		runner = executor.NewExecutor(logger)
	}

	return &Transcoder{cfg: cfg, runner: runner, logger: logger}
}

// Command builds the ffmpeg invocation producing one HLS rendition in
// outputDir.
func (t *Transcoder) Command(source string, r ladder.Rendition, outputDir string) *executor.Cmd {
	profile := r.Profile
	if profile == "" {
		profile = "baseline"
	}
	level := r.Level
	if level == "" {
		level = "3.0"
	}

	bitrate := strconv.Itoa(r.Bitrate/1000) + "k"

	ffmpeg := &executor.Cmd{Binary: t.cfg.FFmpeg}
	ffmpeg.Add("-y", "-hide_banner")
	ffmpeg.Add("-i", source)
	ffmpeg.Add("-c:v", "libx264")
	ffmpeg.Add("-profile:v", profile)
	ffmpeg.Add("-level", level)
	ffmpeg.Add("-vf", fmt.Sprintf("scale=%d:%d", r.Width, r.Height))
	ffmpeg.Add("-b:v", bitrate)
	ffmpeg.Add("-maxrate", bitrate)
	ffmpeg.Add("-bufsize", strconv.Itoa(2*r.Bitrate/1000)+"k")
	ffmpeg.Add("-c:a", "aac")
	ffmpeg.Add("-start_number", "0")
	ffmpeg.Add("-hls_time", strconv.Itoa(t.cfg.SegmentDuration))
	ffmpeg.Add("-hls_list_size", "0") // keep every segment in the playlist
	ffmpeg.Add("-hls_segment_filename", filepath.Join(outputDir, segmentPattern))
	ffmpeg.Add("-f", "hls")
	ffmpeg.Add(filepath.Join(outputDir, layout.PlaylistName))

	return ffmpeg
}

// Execute transcodes source into one segmented rendition under outputDir and
// blocks until the engine exits. Existing output in outputDir is overwritten.
func (t *Transcoder) Execute(ctx context.Context, source string, r ladder.Rendition, outputDir string) (*Output, error) {
	if err := layout.EnsureDir(outputDir); err != nil {
		return nil, err
	}

	logger := t.logger.WithFields(log.Fields{
		"rendition": r.Label,
		"source":    source,
	})

	var total float64
	if metadata := t.probeSource(ctx, source); metadata != nil {
		total = metadata.Seconds()
		if video, ok := metadata.Video(); ok {
			logger = logger.WithField("resolution", fmt.Sprintf("%dx%d", video.Width, video.Height))
			if video.Height > 0 && video.Height < r.Height {
				logger.Warn("source is smaller than the rendition, upscaling")
			}
		}
	}

	cmd := t.Command(source, r, outputDir)
	cmd.Watch(func(line string) {
		progress, ok := ParseProgress(line, total)
		if !ok {
			return
		}
		logger.WithFields(log.Fields{
			"current":  progress.CurrentDuration,
			"duration": progress.CompleteDuration,
			"progress": fmt.Sprintf("%05.2f%%", progress.Progress),
			"speed":    progress.Speed,
		}).Debug(progress.CurrentTime)
	})

	runCtx := ctx
	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	started := time.Now()
	res, err := t.runner.Run(runCtx, cmd)

	if err != nil {
		engineErr := &EngineError{Rendition: r.Label, ExitCode: -1, Err: err}
		if res != nil {
			engineErr.ExitCode = res.ExitCode
			engineErr.Diagnostic = res.Stderr
		}
		return nil, engineErr
	}

	playlist := filepath.Join(outputDir, layout.PlaylistName)
	if _, err := os.Stat(playlist); err != nil {
		return nil, &EngineError{
			Rendition:  r.Label,
			Diagnostic: res.Stderr,
			Err:        errors.Wrap(err, "engine finished without a playlist"),
		}
	}

	segments, _ := filepath.Glob(filepath.Join(outputDir, "segment_*.ts"))

	logger.WithField("segments", len(segments)).Info("rendition transcoded")

	return &Output{
		Rendition: r,
		Dir:       outputDir,
		Playlist:  playlist,
		Segments:  len(segments),
		Elapsed:   time.Since(started),
	}, nil
}

// probeSource returns the source metadata, or nil when the source cannot be
// probed. The last result is kept since every rendition of a run probes the
// same source.
func (t *Transcoder) probeSource(ctx context.Context, source string) *Metadata {
	t.mu.Lock()
	if t.probedSource == source {
		m := t.probed
		t.mu.Unlock()
		return m
	}
	t.mu.Unlock()

	metadata, err := t.Probe(ctx, source)
	if err != nil {
		t.logger.WithError(err).Debug("source probe failed, progress percentage unavailable")
		return nil
	}

	t.mu.Lock()
	t.probedSource, t.probed = source, metadata
	t.mu.Unlock()

	return metadata
}

type Metadata struct {
	Format  Format   `json:"format"`
	Streams []Stream `json:"streams"`
}

type Format struct {
	Duration string `json:"duration"`
}

type Stream struct {
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

func (m *Metadata) Seconds() float64 {
	d, _ := strconv.ParseFloat(m.Format.Duration, 64)
	return d
}

// Video returns the first video stream, if any.
func (m *Metadata) Video() (Stream, bool) {
	for _, s := range m.Streams {
		if s.CodecType == "video" {
			return s, true
		}
	}
	return Stream{}, false
}

// Probe reads container and stream metadata of source with ffprobe.
func (t *Transcoder) Probe(ctx context.Context, source string) (*Metadata, error) {
	var outb, errb bytes.Buffer
	var metadata Metadata

	ffprobeCommand := []string{"-i", source, "-print_format", "json", "-show_format", "-show_streams", "-show_error"}

	cmd := exec.CommandContext(ctx, t.cfg.FFprobe, ffprobeCommand...)
	cmd.Stdout = &outb
	cmd.Stderr = &errb

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "ffprobe %s: %s", source, strings.TrimSpace(errb.String()))
	}

	if err := json.Unmarshal(outb.Bytes(), &metadata); err != nil {
		return nil, errors.Wrap(err, "unable to decode ffprobe output")
	}

	return &metadata, nil
}
