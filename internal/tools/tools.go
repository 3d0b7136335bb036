// Package tools provisions the external binaries vget drives: the yt-dlp
// download engine and the ffmpeg muxer.
//
// Both live in a per-user cache directory and are fetched on first use. A
// resolved Paths value is reused for every download in a batch and never
// re-validated mid-batch; corruption or deletion surfaces at the next
// provisioning check. Repeated calls with both tools cached perform no
// network I/O.
package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gofrs/flock"
)

// Paths locates the provisioned binaries. FFmpegDir is empty when the muxer
// is already discoverable on PATH and the engine can find it itself.
type Paths struct {
	YtdlpPath string
	FFmpegDir string
}

// ProvisioningError reports an irrecoverable failure fetching or unpacking a
// required tool. It aborts the whole operation before any download attempt.
type ProvisioningError struct {
	Op  string
	Err error
}

func (e *ProvisioningError) Error() string {
	if e.Err == nil {
		return "provision " + e.Op
	}
	return fmt.Sprintf("provision %s: %v", e.Op, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

const defaultFetchTimeout = 2 * time.Minute

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithCacheDir overrides the per-user tool cache directory.
func WithCacheDir(dir string) Option {
	return func(p *Provisioner) {
		if dir != "" {
			p.cacheDir = dir
		}
	}
}

// WithEngineURL overrides the engine release endpoint.
func WithEngineURL(url string) Option {
	return func(p *Provisioner) {
		if url != "" {
			p.engineURL = url
		}
	}
}

// WithMuxerURL overrides the muxer archive endpoint.
func WithMuxerURL(url string) Option {
	return func(p *Provisioner) {
		if url != "" {
			p.muxerURL = url
		}
	}
}

// WithFetchTimeout overrides the per-request timeout for provisioning
// fetches.
func WithFetchTimeout(timeout time.Duration) Option {
	return func(p *Provisioner) {
		if timeout > 0 {
			p.client.Timeout = timeout
		}
	}
}

// WithLookPath injects a PATH resolver (primarily for tests).
func WithLookPath(fn func(string) (string, error)) Option {
	return func(p *Provisioner) {
		if fn != nil {
			p.lookPath = fn
		}
	}
}

// Provisioner ensures the engine and muxer binaries exist locally.
type Provisioner struct {
	cacheDir  string
	engineURL string
	muxerURL  string
	client    *http.Client
	lookPath  func(string) (string, error)
}

// New constructs a Provisioner with platform defaults.
func New(opts ...Option) *Provisioner {
	p := &Provisioner{
		engineURL: defaultEngineURL(),
		muxerURL:  defaultMuxerURL(),
		client:    &http.Client{Timeout: defaultFetchTimeout},
		lookPath:  exec.LookPath,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ensure resolves the tool cache and makes both binaries available, fetching
// whatever is missing. Concurrent vget processes serialize on a file lock so
// the same tool is not fetched twice; within one process the cache is
// immutable after this returns.
func (p *Provisioner) Ensure(ctx context.Context, log *slog.Logger) (Paths, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	root, err := p.cacheRoot()
	if err != nil {
		return Paths{}, &ProvisioningError{Op: "resolve cache directory", Err: err}
	}

	lock := flock.New(filepath.Join(root, ".provision.lock"))
	if err := lock.Lock(); err != nil {
		return Paths{}, &ProvisioningError{Op: "lock tool cache", Err: err}
	}
	defer func() { _ = lock.Unlock() }()

	enginePath, err := p.ensureEngine(ctx, root, log)
	if err != nil {
		return Paths{}, err
	}

	muxerDir, err := p.ensureMuxer(ctx, root, log)
	if err != nil {
		return Paths{}, err
	}

	return Paths{YtdlpPath: enginePath, FFmpegDir: muxerDir}, nil
}

// ToolStatus describes where one managed binary currently resolves from.
type ToolStatus struct {
	Name    string
	Path    string
	Present bool
	Source  string
}

// Status reports the tools without fetching anything, so callers can show
// what Ensure would reuse versus download.
func (p *Provisioner) Status() ([]ToolStatus, error) {
	root, err := p.cacheRoot()
	if err != nil {
		return nil, &ProvisioningError{Op: "resolve cache directory", Err: err}
	}

	engine := ToolStatus{Name: engineBinaryName(), Source: "cache"}
	enginePath := filepath.Join(root, engineBinaryName())
	if _, statErr := os.Stat(enginePath); statErr == nil {
		engine.Path = enginePath
		engine.Present = true
	}

	muxer := ToolStatus{Name: muxerBinaryName()}
	if found, lookErr := p.lookPath(muxerBinaryName()); lookErr == nil && found != "" {
		muxer.Path = found
		muxer.Present = true
		muxer.Source = "system"
	} else {
		muxer.Source = "cache"
		cached := filepath.Join(root, "ffmpeg-bin", muxerBinaryName())
		if _, statErr := os.Stat(cached); statErr == nil {
			muxer.Path = cached
			muxer.Present = true
		}
	}

	return []ToolStatus{engine, muxer}, nil
}

// cacheRoot resolves the tool cache directory, creating it if absent. The
// platform cache convention is preferred; a dotfile directory under the home
// directory is the fallback.
func (p *Provisioner) cacheRoot() (string, error) {
	root := p.cacheDir
	if root == "" {
		if base, err := os.UserCacheDir(); err == nil && base != "" {
			root = filepath.Join(base, "vget", "tools")
		} else {
			home, homeErr := os.UserHomeDir()
			if homeErr != nil {
				return "", fmt.Errorf("resolve home directory: %w", homeErr)
			}
			root = filepath.Join(home, ".vget", "tools")
		}
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("create tool cache %q: %w", root, err)
	}
	return root, nil
}

func (p *Provisioner) ensureEngine(ctx context.Context, root string, log *slog.Logger) (string, error) {
	enginePath := filepath.Join(root, engineBinaryName())
	if _, err := os.Stat(enginePath); err == nil {
		return enginePath, nil
	}

	log.Info("download engine not found, fetching official binary", "binary", engineBinaryName())
	if err := p.fetchFile(ctx, p.engineURL, enginePath, log); err != nil {
		return "", &ProvisioningError{Op: "fetch " + engineBinaryName(), Err: err}
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(enginePath, 0o755); err != nil {
			return "", &ProvisioningError{Op: "mark engine executable", Err: err}
		}
	}
	return enginePath, nil
}

func (p *Provisioner) ensureMuxer(ctx context.Context, root string, log *slog.Logger) (string, error) {
	if found, err := p.lookPath(muxerBinaryName()); err == nil && found != "" {
		resolved, err := filepath.Abs(found)
		if err == nil {
			return filepath.Dir(resolved), nil
		}
		return filepath.Dir(found), nil
	}

	localBin := filepath.Join(root, "ffmpeg-bin")
	if _, err := os.Stat(filepath.Join(localBin, muxerBinaryName())); err == nil {
		return localBin, nil
	}

	archivePath := filepath.Join(root, "ffmpeg-archive"+archiveExt(p.muxerURL))
	extractDir := filepath.Join(root, "ffmpeg-extract")

	log.Info("muxer not found, fetching official build", "binary", muxerBinaryName())
	if err := p.fetchFile(ctx, p.muxerURL, archivePath, log); err != nil {
		return "", &ProvisioningError{Op: "fetch ffmpeg archive", Err: err}
	}

	// Scratch dir and archive are removed on every exit path below.
	defer func() {
		_ = os.RemoveAll(extractDir)
		_ = os.Remove(archivePath)
	}()

	if err := os.RemoveAll(extractDir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", &ProvisioningError{Op: "clear extract scratch", Err: err}
	}
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return "", &ProvisioningError{Op: "create extract scratch", Err: err}
	}

	if err := extractArchive(archivePath, extractDir); err != nil {
		return "", &ProvisioningError{Op: "extract ffmpeg archive", Err: err}
	}

	binDir, err := findMuxerDir(extractDir)
	if err != nil {
		return "", &ProvisioningError{Op: "locate muxer", Err: err}
	}
	if binDir == "" {
		return "", &ProvisioningError{Op: "locate muxer", Err: fmt.Errorf("archive did not contain %s", muxerBinaryName())}
	}

	if err := os.RemoveAll(localBin); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", &ProvisioningError{Op: "clear previous muxer copy", Err: err}
	}
	if err := os.Rename(binDir, localBin); err != nil {
		return "", &ProvisioningError{Op: "install muxer", Err: err}
	}

	final := filepath.Join(localBin, muxerBinaryName())
	if _, err := os.Stat(final); err != nil {
		return "", &ProvisioningError{Op: "verify muxer", Err: fmt.Errorf("%s missing after extraction", muxerBinaryName())}
	}
	if runtime.GOOS != "windows" {
		_ = os.Chmod(final, 0o755)
	}
	return localBin, nil
}

// findMuxerDir walks the extracted tree depth-first and returns the directory
// containing the first muxer executable, or "" when none exists.
func findMuxerDir(root string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if entry.Name() == muxerBinaryName() {
			found = filepath.Dir(path)
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return found, nil
}
