package layout

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	ManifestName = "master.m3u8"
	PlaylistName = "playlist.m3u8"

	stagingPrefix = ".staging-"
)

// Layout maps asset ids to their directory tree under a storage root and to
// the URL under which that tree is served.
type Layout struct {
	root    string
	baseURL string
}

func New(root, baseURL string) *Layout {
	return &Layout{root: filepath.Clean(root), baseURL: baseURL}
}

func (l *Layout) RootFor(assetID int64) string {
	return filepath.Join(l.root, strconv.FormatInt(assetID, 10))
}

func (l *Layout) RenditionDirFor(assetID int64, label string) string {
	return filepath.Join(l.RootFor(assetID), label)
}

func (l *Layout) ManifestPath(assetID int64) string {
	return filepath.Join(l.RootFor(assetID), ManifestName)
}

// StagingDirFor is where a run writes renditions before they are promoted.
// It lives inside the asset root so promotion is a same-filesystem rename.
func (l *Layout) StagingDirFor(assetID int64, runID string) string {
	return filepath.Join(l.RootFor(assetID), stagingPrefix+runID)
}

// RelManifestPath is the manifest location relative to the storage root,
// always slash separated.
func (l *Layout) RelManifestPath(assetID int64) string {
	return strconv.FormatInt(assetID, 10) + "/" + ManifestName
}

// RelPlaylistPath is the rendition playlist reference used inside the master
// manifest.
func RelPlaylistPath(label string) string {
	return label + "/" + PlaylistName
}

func (l *Layout) URLFor(assetID int64) string {
	return JoinURL(l.baseURL, l.RelManifestPath(assetID))
}

// JoinURL concatenates base and parts with single slashes between them.
func JoinURL(base string, parts ...string) string {
	out := strings.TrimRight(strings.TrimSpace(base), "/")

	for _, part := range parts {
		part = strings.Trim(part, "/")
		if part == "" {
			continue
		}
		if out == "" {
			out = part
			continue
		}
		out += "/" + part
	}

	return out
}

// DirectoryError is returned when a directory of the asset tree cannot be
// created or replaced.
type DirectoryError struct {
	Path string
	Err  error
}

func (e *DirectoryError) Error() string {
	return "directory '" + e.Path + "': " + e.Err.Error()
}

func (e *DirectoryError) Unwrap() error {
	return e.Err
}

// EnsureDir creates path and its parents when missing. An existing directory
// is not an error.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return &DirectoryError{Path: path, Err: err}
	}

	return nil
}

// Swap moves src to dst. Whatever dst held before is moved to backup rather
// than deleted, so the caller can put it back. When src cannot be moved the
// previous dst is restored before returning.
func Swap(src, dst, backup string) (hadPrevious bool, err error) {
	if _, err := os.Stat(dst); err == nil {
		if err := EnsureDir(filepath.Dir(backup)); err != nil {
			return false, err
		}
		if err := os.RemoveAll(backup); err != nil {
			return false, &DirectoryError{Path: backup, Err: err}
		}
		if err := os.Rename(dst, backup); err != nil {
			return false, &DirectoryError{Path: dst, Err: err}
		}
		hadPrevious = true
	} else if !os.IsNotExist(err) {
		return false, &DirectoryError{Path: dst, Err: err}
	} else if err := EnsureDir(filepath.Dir(dst)); err != nil {
		return false, err
	}

	if err := os.Rename(src, dst); err != nil {
		if hadPrevious {
			_ = os.Rename(backup, dst)
		}
		return false, &DirectoryError{Path: dst, Err: err}
	}

	return hadPrevious, nil
}
