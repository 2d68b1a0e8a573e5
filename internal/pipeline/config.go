package pipeline

import (
	"strings"

	"github.com/pkg/errors"
)

// CleanupPolicy decides what happens to the staged output of a failed run.
type CleanupPolicy string

const (
	CleanupKeep   CleanupPolicy = "keep"
	CleanupRemove CleanupPolicy = "remove"
)

func ParseCleanupPolicy(s string) (CleanupPolicy, error) {
	switch p := CleanupPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return CleanupKeep, nil
	case CleanupKeep, CleanupRemove:
		return p, nil
	default:
		return "", errors.Errorf("unknown cleanup policy %q", s)
	}
}

type Config struct {
	AssetRoot    string
	BaseURL      string
	Cleanup      CleanupPolicy
	RemoveSource bool
	// Workers is the number of runs executed concurrently. Runs of the same
	// asset are always serialized.
	Workers int
}

func (c Config) validate() (Config, error) {
	if c.AssetRoot == "" {
		return c, errors.New("asset root is required")
	}
	if c.BaseURL == "" {
		return c, errors.New("base url is required")
	}
	if c.Cleanup == "" {
		c.Cleanup = CleanupKeep
	}
	if c.Cleanup != CleanupKeep && c.Cleanup != CleanupRemove {
		return c, errors.Errorf("unknown cleanup policy %q", c.Cleanup)
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	return c, nil
}
