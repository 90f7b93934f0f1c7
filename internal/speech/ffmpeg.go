package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Converter transcodes audio to MP3 by piping it through ffmpeg.
type Converter struct {
	path string
}

func NewConverter(path string) *Converter {
	if strings.TrimSpace(path) == "" {
		path = "ffmpeg"
	}
	return &Converter{path: path}
}

// ToMP3 converts any ffmpeg-readable input to MP3 (libmp3lame).
func (c *Converter) ToMP3(ctx context.Context, input []byte) ([]byte, error) {
	if len(input) == 0 {
		return nil, errors.New("convert audio: empty input")
	}
	cmd := exec.CommandContext(ctx, c.path,
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-vn", "-acodec", "libmp3lame", "-f", "mp3",
		"pipe:1",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("convert audio: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, errors.New("convert audio: ffmpeg produced no output")
	}
	return stdout.Bytes(), nil
}
