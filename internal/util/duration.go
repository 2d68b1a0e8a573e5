package util

import (
	"strconv"
	"strings"
)

// DurationToSec converts an ffmpeg "HH:MM:SS.mmm" timestamp to seconds.
// Malformed input yields 0.
func DurationToSec(dur string) float64 {
	parts := strings.Split(strings.TrimSpace(dur), ":")
	if len(parts) != 3 {
		return 0
	}

	hours, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}

	minutes, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0
	}

	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0
	}

	sec := hours*3600 + minutes*60 + seconds
	if sec < 0 {
		return 0
	}
	return sec
}
