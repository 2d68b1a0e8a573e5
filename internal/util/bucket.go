package util

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"vodpack/internal/storage"
)

var contentTypes = map[string]string{
	".m3u8": "application/vnd.apple.mpegurl",
	".ts":   "video/mp2t",
	".m4s":  "video/iso.segment",
	".mp4":  "video/mp4",
}

// UploadTree mirrors every regular file under dir to the bucket under
// prefix. Hidden entries (staging directories, temporary manifests) are
// skipped. The master manifest, if present, is uploaded last so remote
// readers never see it before the playlists it references.
func UploadTree(ctx context.Context, bucket storage.Bucket, dir string, prefix string, manifestName string) (int, error) {
	var files []string
	var manifest string

	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if p != dir && strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			return nil
		}

		if filepath.Dir(p) == dir && info.Name() == manifestName {
			manifest = p
			return nil
		}

		files = append(files, p)
		return nil
	})

	if err != nil {
		return 0, errors.Wrapf(err, "unable to walk '%s'", dir)
	}

	if manifest != "" {
		files = append(files, manifest)
	}

	for i, file := range files {
		if err := Upload(ctx, bucket, key(dir, prefix, file), file); err != nil {
			return i, err
		}
	}

	return len(files), nil
}

func Upload(ctx context.Context, bucket storage.Bucket, key string, file string) error {
	log.Debugf("upload '%s' to '%s'", file, key)

	f, err := os.Open(file)

	if err != nil {
		return errors.Wrapf(err, "unable to open '%s'", file)
	}

	defer f.Close()

	return errors.Wrapf(bucket.Write(ctx, key, f, contentTypes[filepath.Ext(file)]), "unable to upload '%s'", key)
}

func key(dir, prefix, file string) string {
	rel, _ := filepath.Rel(dir, file)
	return strings.TrimLeft(path.Join(prefix, filepath.ToSlash(rel)), "/")
}
