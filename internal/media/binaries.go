package media

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
)

var ErrBinaryNotFound = errors.New("ffmpeg binary not found")

// resolved ffmpeg and ffprobe executables
type Binaries struct {
	FFmpeg  string
	FFprobe string
}

var (
	locateOnce sync.Once
	located    Binaries
	locateErr  error
)

// Locate finds ffmpeg and ffprobe once per process.
// CUETRACK_FFMPEG_PATH and CUETRACK_FFPROBE_PATH override the PATH lookup.
func Locate() (Binaries, error) {
	locateOnce.Do(func() {
		located, locateErr = locate(os.Getenv, exec.LookPath)
	})
	return located, locateErr
}

func locate(
	getenv func(string) string,
	lookPath func(string) (string, error),
) (Binaries, error) {
	ffmpegPath, err := resolveBinary("ffmpeg", getenv("CUETRACK_FFMPEG_PATH"), lookPath)
	if err != nil {
		return Binaries{}, err
	}
	ffprobePath, err := resolveBinary("ffprobe", getenv("CUETRACK_FFPROBE_PATH"), lookPath)
	if err != nil {
		return Binaries{}, err
	}
	return Binaries{FFmpeg: ffmpegPath, FFprobe: ffprobePath}, nil
}

func resolveBinary(
	name, override string,
	lookPath func(string) (string, error),
) (string, error) {
	if override != "" {
		info, err := os.Stat(override)
		if err != nil || info.IsDir() {
			return "", fmt.Errorf("%w: %s override %q is not a file", ErrBinaryNotFound, name, override)
		}
		return override, nil
	}

	path, err := lookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrBinaryNotFound, name, err)
	}
	return path, nil
}
