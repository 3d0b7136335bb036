package tools

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

func buildFFmpegZip(t *testing.T, withBinary bool) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if withBinary {
		w, err := zw.Create("ffmpeg-build/bin/" + muxerBinaryName())
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte("fake ffmpeg")); err != nil {
			t.Fatal(err)
		}
	}
	w, err := zw.Create("ffmpeg-build/README.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("docs")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newToolServer(t *testing.T, archive []byte) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var requests atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/yt-dlp", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = w.Write([]byte("fake engine"))
	})
	mux.HandleFunc("/ffmpeg.zip", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = w.Write(archive)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &requests
}

func newTestProvisioner(t *testing.T, server *httptest.Server, cache string) *Provisioner {
	t.Helper()
	return New(
		WithCacheDir(cache),
		WithEngineURL(server.URL+"/yt-dlp"),
		WithMuxerURL(server.URL+"/ffmpeg.zip"),
		WithLookPath(func(string) (string, error) { return "", errors.New("not on path") }),
	)
}

func TestEnsureFetchesAndCaches(t *testing.T) {
	server, requests := newToolServer(t, buildFFmpegZip(t, true))
	cache := t.TempDir()
	p := newTestProvisioner(t, server, cache)

	paths, err := p.Ensure(context.Background(), nil)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if paths.YtdlpPath != filepath.Join(cache, engineBinaryName()) {
		t.Fatalf("engine path = %q", paths.YtdlpPath)
	}
	if paths.FFmpegDir != filepath.Join(cache, "ffmpeg-bin") {
		t.Fatalf("muxer dir = %q", paths.FFmpegDir)
	}
	if _, err := os.Stat(filepath.Join(paths.FFmpegDir, muxerBinaryName())); err != nil {
		t.Fatalf("muxer binary missing: %v", err)
	}
	if runtime.GOOS != "windows" {
		info, err := os.Stat(paths.YtdlpPath)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm()&0o111 == 0 {
			t.Fatalf("engine not executable: %v", info.Mode())
		}
	}
	if requests.Load() != 2 {
		t.Fatalf("expected 2 fetches, saw %d", requests.Load())
	}

	// Scratch dir and archive must not survive provisioning.
	if _, err := os.Stat(filepath.Join(cache, "ffmpeg-extract")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("extract scratch left behind: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cache, "ffmpeg-archive.zip")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("archive left behind: %v", err)
	}
}

func TestEnsureIdempotentWithWarmCache(t *testing.T) {
	server, requests := newToolServer(t, buildFFmpegZip(t, true))
	cache := t.TempDir()
	p := newTestProvisioner(t, server, cache)

	if _, err := p.Ensure(context.Background(), nil); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	before := requests.Load()

	if _, err := p.Ensure(context.Background(), nil); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if requests.Load() != before {
		t.Fatalf("warm cache performed network I/O: %d -> %d requests", before, requests.Load())
	}
}

func TestEnsureSerializesOnCacheLock(t *testing.T) {
	server, requests := newToolServer(t, buildFFmpegZip(t, true))
	cache := t.TempDir()

	// Two provisioners over the same cache, as two vget processes would be.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		p := newTestProvisioner(t, server, cache)
		wg.Add(1)
		go func(i int, p *Provisioner) {
			defer wg.Done()
			_, errs[i] = p.Ensure(context.Background(), nil)
		}(i, p)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("ensure %d: %v", i, err)
		}
	}
	if requests.Load() != 2 {
		t.Fatalf("tools fetched more than once across concurrent ensures: %d requests", requests.Load())
	}
	if _, err := os.Stat(filepath.Join(cache, ".provision.lock")); err != nil {
		t.Fatalf("provisioning lock file missing: %v", err)
	}
}

func TestEnsurePrefersMuxerOnPath(t *testing.T) {
	server, requests := newToolServer(t, buildFFmpegZip(t, true))
	cache := t.TempDir()
	fakeBin := filepath.Join(t.TempDir(), muxerBinaryName())
	if err := os.WriteFile(fakeBin, []byte("system ffmpeg"), 0o755); err != nil {
		t.Fatal(err)
	}

	p := New(
		WithCacheDir(cache),
		WithEngineURL(server.URL+"/yt-dlp"),
		WithMuxerURL(server.URL+"/ffmpeg.zip"),
		WithLookPath(func(string) (string, error) { return fakeBin, nil }),
	)

	paths, err := p.Ensure(context.Background(), nil)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if paths.FFmpegDir != filepath.Dir(fakeBin) {
		t.Fatalf("muxer dir = %q, want %q", paths.FFmpegDir, filepath.Dir(fakeBin))
	}
	if requests.Load() != 1 {
		t.Fatalf("expected only the engine fetch, saw %d requests", requests.Load())
	}
}

func TestEnsureFailsWhenArchiveLacksMuxer(t *testing.T) {
	server, _ := newToolServer(t, buildFFmpegZip(t, false))
	cache := t.TempDir()
	p := newTestProvisioner(t, server, cache)

	_, err := p.Ensure(context.Background(), nil)
	var perr *ProvisioningError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProvisioningError, got %v", err)
	}

	if _, statErr := os.Stat(filepath.Join(cache, "ffmpeg-extract")); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("extract scratch left behind after failure: %v", statErr)
	}
	if _, statErr := os.Stat(filepath.Join(cache, "ffmpeg-archive.zip")); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("archive left behind after failure: %v", statErr)
	}
}

func TestFetchFailureLeavesNoPartialFile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/yt-dlp", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cache := t.TempDir()
	p := New(
		WithCacheDir(cache),
		WithEngineURL(server.URL+"/yt-dlp"),
		WithLookPath(func(string) (string, error) { return "", errors.New("not on path") }),
	)

	_, err := p.Ensure(context.Background(), nil)
	var perr *ProvisioningError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProvisioningError, got %v", err)
	}

	entries, readErr := os.ReadDir(cache)
	if readErr != nil {
		t.Fatal(readErr)
	}
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == ".part" {
			t.Fatalf("partial file left behind: %s", entry.Name())
		}
	}
}

func TestArchiveExt(t *testing.T) {
	cases := map[string]string{
		"https://example.com/ffmpeg-master-latest-linux64-gpl.tar.xz": ".tar.xz",
		"https://example.com/ffmpeg-win64.zip":                        ".zip",
		"https://example.com/build.tgz":                               ".tar.gz",
		"https://evermeet.cx/ffmpeg/getrelease/zip":                   ".zip",
	}
	for url, want := range cases {
		if got := archiveExt(url); got != want {
			t.Fatalf("archiveExt(%q) = %q, want %q", url, got, want)
		}
	}
}
