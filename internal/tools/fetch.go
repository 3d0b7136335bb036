package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

// userAgent matches what the release endpoints expect from a browser client.
const userAgent = "Mozilla/5.0"

const fetchChunkSize = 1 << 20

// fetchFile streams url into destination via a temporary sibling file,
// renaming atomically on completion. Partial temp files are deleted on any
// error. Fetch progress is logged at 10%-of-total increments when the server
// reports a content length.
func (p *Provisioner) fetchFile(ctx context.Context, url, destination string, log *slog.Logger) (err error) {
	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	tmp := destination + ".part"
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}

	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if err := copyWithProgress(out, resp.Body, resp.ContentLength, log); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp, destination); err != nil {
		return fmt.Errorf("finalize download: %w", err)
	}
	return nil
}

func copyWithProgress(dst io.Writer, src io.Reader, total int64, log *slog.Logger) error {
	buf := make([]byte, fetchChunkSize)
	var downloaded int64
	nextPercent := 10

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("write temp file: %w", writeErr)
			}
			downloaded += int64(n)
			if total > 0 {
				pct := int(downloaded * 100 / total)
				for pct >= nextPercent && nextPercent <= 100 {
					log.Info("downloading tools", "percent", nextPercent)
					nextPercent += 10
				}
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return fmt.Errorf("read response: %w", readErr)
		}
	}
}
