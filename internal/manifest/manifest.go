package manifest

import (
	"bufio"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"vodpack/internal/ladder"
	"vodpack/internal/layout"
)

const (
	header    = "#EXTM3U"
	version   = "#EXT-X-VERSION:3"
	streamTag = "#EXT-X-STREAM-INF:"
)

var ErrNoRenditions = errors.New("no renditions to reference")

// Variant is one stream entry of a master playlist.
type Variant struct {
	Bandwidth  int
	Resolution string
	URI        string
}

// Build renders a master playlist referencing, in planner order, every
// rendition whose label is listed in confirmed.
func Build(renditions []ladder.Rendition, confirmed []string) (string, error) {
	ok := make(map[string]bool, len(confirmed))
	for _, label := range confirmed {
		ok[label] = true
	}

	var b strings.Builder
	b.WriteString(header + "\n")
	b.WriteString(version + "\n")

	count := 0
	for _, r := range renditions {
		if !ok[r.Label] {
			continue
		}

		fmt.Fprintf(&b, "%sBANDWIDTH=%d,RESOLUTION=%s\n", streamTag, r.Bitrate, r.Resolution())
		b.WriteString(layout.RelPlaylistPath(r.Label) + "\n")
		count++
	}

	if count == 0 {
		return "", ErrNoRenditions
	}

	return b.String(), nil
}

// Write stores the playlist at path through a temporary file and a rename,
// so readers never observe a partially written manifest.
func Write(path string, text string) error {
	tmp, err := ioutil.TempFile(filepath.Dir(path), ".manifest-*")
	if err != nil {
		return errors.Wrap(err, "unable to create temporary manifest")
	}

	defer os.Remove(tmp.Name())

	if _, err = tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "unable to write manifest")
	}

	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "unable to close manifest")
	}

	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.Wrap(err, "unable to set manifest permissions")
	}

	return errors.Wrap(os.Rename(tmp.Name(), path), "unable to move manifest in place")
}

// Parse reads the stream entries of a master playlist.
func Parse(text string) ([]Variant, error) {
	scanner := bufio.NewScanner(strings.NewReader(text))

	if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != header {
		return nil, errors.New("missing " + header + " header")
	}

	var variants []Variant
	var pending *Variant

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, streamTag):
			v, err := parseStreamInf(strings.TrimPrefix(line, streamTag))
			if err != nil {
				return nil, err
			}
			pending = &v
		case strings.HasPrefix(line, "#"):
			continue
		default:
			if pending == nil {
				return nil, errors.Errorf("uri '%s' without stream info", line)
			}
			pending.URI = line
			variants = append(variants, *pending)
			pending = nil
		}
	}

	if pending != nil {
		return nil, errors.New("stream info without uri")
	}

	return variants, scanner.Err()
}

func parseStreamInf(attrs string) (Variant, error) {
	var v Variant

	for _, attr := range strings.Split(attrs, ",") {
		kv := strings.SplitN(attr, "=", 2)
		if len(kv) != 2 {
			continue
		}

		switch kv[0] {
		case "BANDWIDTH":
			if _, err := fmt.Sscanf(kv[1], "%d", &v.Bandwidth); err != nil {
				return v, errors.Wrapf(err, "invalid bandwidth '%s'", kv[1])
			}
		case "RESOLUTION":
			v.Resolution = kv[1]
		}
	}

	if v.Bandwidth <= 0 {
		return v, errors.New("stream info without bandwidth")
	}

	return v, nil
}

// Ascending reports whether bandwidths never decrease in listed order.
func Ascending(variants []Variant) bool {
	for i := 1; i < len(variants); i++ {
		if variants[i].Bandwidth < variants[i-1].Bandwidth {
			return false
		}
	}
	return true
}
