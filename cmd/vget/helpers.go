package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"vget/internal/download"
)

// collectURLs merges positional arguments with the optional batch file. A
// batch file of "-" reads URLs from stdin. Duplicates are dropped, first
// occurrence wins.
func collectURLs(args []string, batchFile string, stdin io.Reader) ([]string, error) {
	var raw strings.Builder
	for _, arg := range args {
		raw.WriteString(arg)
		raw.WriteString("\n")
	}

	if batchFile != "" {
		var reader io.Reader
		if batchFile == "-" {
			reader = stdin
		} else {
			file, err := os.Open(batchFile)
			if err != nil {
				return nil, fmt.Errorf("open batch file: %w", err)
			}
			defer file.Close()
			reader = file
		}
		scanner := bufio.NewScanner(reader)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			raw.WriteString(line)
			raw.WriteString("\n")
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read batch file: %w", err)
		}
	}

	return download.NormalizeURLs(raw.String()), nil
}

func formatBytes(n int64) string {
	if n < 0 {
		return "?"
	}
	return humanize.IBytes(uint64(n))
}

func formatSpeed(bytesPerSecond *float64) string {
	if bytesPerSecond == nil || *bytesPerSecond <= 0 {
		return "--"
	}
	return humanize.IBytes(uint64(*bytesPerSecond)) + "/s"
}

func formatETA(seconds *float64) string {
	if seconds == nil || *seconds < 0 {
		return "--:--"
	}
	d := time.Duration(*seconds) * time.Second
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func formatElapsed(d time.Duration) string {
	return d.Round(time.Second).String()
}

// shortURL trims long URLs so progress descriptions stay on one line.
func shortURL(url string) string {
	const max = 60
	if len(url) <= max {
		return url
	}
	return url[:max-3] + "..."
}
