package storage

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalBucket(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	bucket, err := Open(ctx, "file://"+dir, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer bucket.Close()

	for key, content := range map[string]string{
		"42/master.m3u8":        "#EXTM3U\n",
		"42/360p/playlist.m3u8": "pl",
		"43/master.m3u8":        "other",
	} {
		if err = bucket.Write(ctx, key, strings.NewReader(content), ""); err != nil {
			t.Fatal(err)
		}
	}

	data, err := ioutil.ReadFile(filepath.Join(dir, "42", "360p", "playlist.m3u8"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "pl" {
		t.Errorf("unexpected content %q", data)
	}

	if err = bucket.Delete(ctx, "42/"); err != nil {
		t.Fatal(err)
	}
	if _, err = os.Stat(filepath.Join(dir, "42", "master.m3u8")); !os.IsNotExist(err) {
		t.Errorf("expected 42/master.m3u8 to be deleted, stat = %v", err)
	}
	if _, err = os.Stat(filepath.Join(dir, "42", "360p", "playlist.m3u8")); !os.IsNotExist(err) {
		t.Errorf("expected 42/360p/playlist.m3u8 to be deleted, stat = %v", err)
	}
	if _, err = os.Stat(filepath.Join(dir, "43", "master.m3u8")); err != nil {
		t.Errorf("43/master.m3u8 should survive a 42/ delete: %v", err)
	}
}

func TestOpenUnsupportedScheme(t *testing.T) {
	if _, err := Open(context.Background(), "ftp://bucket", Options{}); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}

func TestS3Config(t *testing.T) {
	cfg := S3Options{Region: "eu-west-1", Endpoint: "http://minio:9000", ID: "id", Secret: "secret"}.config()

	if *cfg.Region != "eu-west-1" || *cfg.Endpoint != "http://minio:9000" || !*cfg.S3ForcePathStyle {
		t.Errorf("unexpected aws config %+v", cfg)
	}
	if cfg.Credentials == nil {
		t.Error("static credentials not set")
	}

	if empty := (S3Options{}).config(); empty.Region != nil || empty.Credentials != nil {
		t.Errorf("empty options should leave defaults, got %+v", empty)
	}
}
