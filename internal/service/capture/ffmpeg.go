package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	startupProbe = 250 * time.Millisecond
	stopGrace    = 1200 * time.Millisecond
)

// RecorderConfig describes how ffmpeg reads the microphone.
type RecorderConfig struct {
	Command     string
	InputFormat string
	InputDevice string
	SampleRate  int
}

func (c RecorderConfig) withDefaults() RecorderConfig {
	if c.Command == "" {
		c.Command = "ffmpeg"
	}
	if c.InputFormat == "" {
		c.InputFormat = "pulse"
	}
	if c.InputDevice == "" {
		c.InputDevice = "default"
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	return c
}

// earlyExitError is returned when ffmpeg dies before audio starts flowing,
// which almost always means the device could not be opened.
type earlyExitError struct {
	err    error
	stderr string
}

func (e *earlyExitError) Error() string {
	if e.err == nil {
		return "ffmpeg exited before capture started: " + e.stderr
	}
	return fmt.Sprintf("ffmpeg exited before capture started: %v: %s", e.err, e.stderr)
}

func (e *earlyExitError) Unwrap() error { return e.err }

// pcmBuffer collects ffmpeg stdout. exec copies into it from its own
// goroutine, and Wait returns only after that copy has drained the pipe.
type pcmBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *pcmBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *pcmBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes())
}

// recording is one ffmpeg process producing s16le mono PCM on stdout.
type recording struct {
	pcm     *pcmBuffer
	stderr  *bytes.Buffer
	process *os.Process

	// exited is closed once Wait has returned and waitErr is set.
	exited  chan struct{}
	waitErr error

	stopOnce sync.Once
	stopErr  error
}

func startRecording(ctx context.Context, cfg RecorderConfig) (*recording, error) {
	cfg = cfg.withDefaults()

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", "1",
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	}

	r := &recording{
		pcm:    &pcmBuffer{},
		stderr: &bytes.Buffer{},
		exited: make(chan struct{}),
	}

	cmd := exec.CommandContext(ctx, cfg.Command, args...)
	cmd.Stdout = r.pcm
	cmd.Stderr = r.stderr
	cmd.WaitDelay = stopGrace

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	r.process = cmd.Process

	go func() {
		r.waitErr = cmd.Wait()
		close(r.exited)
	}()

	select {
	case <-r.exited:
		return nil, &earlyExitError{err: r.waitErr, stderr: strings.TrimSpace(r.stderr.String())}
	case <-time.After(startupProbe):
	}

	return r, nil
}

// Exited is closed when ffmpeg has exited and all of its output is buffered.
func (r *recording) Exited() <-chan struct{} {
	return r.exited
}

// PCM returns everything ffmpeg wrote. Complete only after Exited.
func (r *recording) PCM() []byte {
	return r.pcm.Bytes()
}

// Diagnostics returns ffmpeg's stderr. Only safe after Exited.
func (r *recording) Diagnostics() string {
	return r.stderr.String()
}

// stop interrupts ffmpeg so it flushes, then kills it after stopGrace.
func (r *recording) stop() error {
	r.stopOnce.Do(func() {
		_ = r.process.Signal(os.Interrupt)

		select {
		case <-r.exited:
		case <-time.After(stopGrace):
			_ = r.process.Kill()
			<-r.exited
		}
		r.stopErr = ignoreExitStatus(r.waitErr)
	})
	return r.stopErr
}

func ignoreExitStatus(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

// classifyDeviceError maps ffmpeg diagnostics to a recognition error code.
func classifyDeviceError(diagnostic string) ErrorCode {
	lower := strings.ToLower(diagnostic)
	for _, hint := range []string{"permission", "denied", "not allowed", "not permitted"} {
		if strings.Contains(lower, hint) {
			return ErrorNotAllowed
		}
	}
	return ErrorAudioCapture
}
