package transcode

import (
	"regexp"
	"strings"
	"time"

	"vodpack/internal/util"
)

type Progress struct {
	FramesProcessed  string
	CurrentTime      string
	CurrentDuration  time.Duration
	CompleteDuration time.Duration
	CurrentBitrate   string
	Progress         float64
	Speed            string
}

var statsSpaces = regexp.MustCompile(`=\s+`)

// ParseProgress decodes an ffmpeg stats line such as
// "frame=  120 fps= 60 q=28.0 size=  512kB time=00:00:04.00 bitrate=1048.6kbits/s speed=2.0x".
// total is the source duration in seconds; 0 leaves the percentage unset.
func ParseProgress(line string, total float64) (Progress, bool) {
	var progress Progress

	if !strings.Contains(line, "frame=") || !strings.Contains(line, "time=") || !strings.Contains(line, "bitrate=") {
		return progress, false
	}

	st := statsSpaces.ReplaceAllString(line, `=`)

	for _, field := range strings.Fields(st) {
		kv := strings.SplitN(field, "=", 2)
		if len(kv) != 2 {
			continue
		}

		switch kv[0] {
		case "frame":
			progress.FramesProcessed = kv[1]
		case "time":
			progress.CurrentTime = kv[1]
		case "bitrate":
			progress.CurrentBitrate = kv[1]
		case "speed":
			progress.Speed = kv[1]
		}
	}

	current := util.DurationToSec(progress.CurrentTime)
	progress.CurrentDuration = seconds(current)

	// live sources report no duration
	if total > 0 {
		progress.Progress = current * 100 / total
		progress.CompleteDuration = seconds(total)
	}

	return progress, true
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
