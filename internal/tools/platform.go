package tools

import (
	"path"
	"runtime"
	"strings"
)

const (
	ytdlpReleaseBase = "https://github.com/yt-dlp/yt-dlp/releases/latest/download/"
	ffmpegBuildsBase = "https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/"
	ffmpegMacURL     = "https://evermeet.cx/ffmpeg/getrelease/zip"
)

func engineBinaryName() string {
	if runtime.GOOS == "windows" {
		return "yt-dlp.exe"
	}
	return "yt-dlp"
}

func muxerBinaryName() string {
	if runtime.GOOS == "windows" {
		return "ffmpeg.exe"
	}
	return "ffmpeg"
}

func defaultEngineURL() string {
	switch runtime.GOOS {
	case "windows":
		return ytdlpReleaseBase + "yt-dlp.exe"
	case "darwin":
		return ytdlpReleaseBase + "yt-dlp_macos"
	default:
		return ytdlpReleaseBase + "yt-dlp"
	}
}

func defaultMuxerURL() string {
	switch runtime.GOOS {
	case "windows":
		return ffmpegBuildsBase + "ffmpeg-master-latest-win64-gpl.zip"
	case "darwin":
		return ffmpegMacURL
	default:
		return ffmpegBuildsBase + "ffmpeg-master-latest-linux64-gpl.tar.xz"
	}
}

// archiveExt derives the archive extension from a fetch URL so the extractor
// can pick the right decoder. Endpoints without a recognizable suffix (the
// macOS build service) default to zip.
func archiveExt(url string) string {
	p := strings.ToLower(path.Base(url))
	switch {
	case strings.HasSuffix(p, ".tar.xz"):
		return ".tar.xz"
	case strings.HasSuffix(p, ".tar.gz"), strings.HasSuffix(p, ".tgz"):
		return ".tar.gz"
	default:
		return ".zip"
	}
}
