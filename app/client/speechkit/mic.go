package speechkit

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
)

// MicStream captures the default input device through ffmpeg as 16kHz mono
// LINEAR16 PCM, the format the recognizer session is configured for.
type MicStream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser
	mu     sync.Mutex
}

func NewMicStream(ctx context.Context) (*MicStream, error) {
	args := []string{
		"-loglevel", "warning",
		"-f", "pulse",
		"-i", "default",
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", "16000",
		"-f", "s16le",
		"-",
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	return &MicStream{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
	}, nil
}

func (m *MicStream) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	go m.logStderr()

	return nil
}

func (m *MicStream) AudioStream() io.ReadCloser {
	return m.stdout
}

func (m *MicStream) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cmd.Process != nil {
		return m.cmd.Process.Kill()
	}
	return nil
}

func (m *MicStream) logStderr() {
	scanner := bufio.NewScanner(m.stderr)
	for scanner.Scan() {
		slog.Debug("ffmpeg", "stderr", scanner.Text())
	}
}
