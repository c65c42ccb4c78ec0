package playback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultPlayerCommand reads mp3 from stdin and exits when playback ends.
const DefaultPlayerCommand = "ffplay -nodisp -autoexit -loglevel quiet -"

// Player plays a complete audio clip and returns when it finishes or ctx is
// cancelled. A cancelled play returns ctx.Err().
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

// ExecPlayer pipes audio into an external player process.
type ExecPlayer struct {
	name string
	args []string
}

var _ Player = (*ExecPlayer)(nil)

// NewExecPlayer parses command into a program and its arguments; an empty
// command uses DefaultPlayerCommand.
func NewExecPlayer(command string) *ExecPlayer {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		fields = strings.Fields(DefaultPlayerCommand)
	}
	return &ExecPlayer{name: fields[0], args: fields[1:]}
}

// Available reports whether the player binary can be found.
func (p *ExecPlayer) Available() bool {
	_, err := exec.LookPath(p.name)
	return err == nil
}

func (p *ExecPlayer) Play(ctx context.Context, audio []byte) error {
	cmd := exec.CommandContext(ctx, p.name, p.args...)
	cmd.Stdin = bytes.NewReader(audio)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", p.name, err, msg)
		}
		return fmt.Errorf("%s: %w", p.name, err)
	}
	return nil
}

// DiscardPlayer accepts audio and returns immediately.
type DiscardPlayer struct{}

var _ Player = DiscardPlayer{}

func (DiscardPlayer) Play(ctx context.Context, audio []byte) error {
	if len(audio) == 0 {
		return errors.New("no audio to play")
	}
	return ctx.Err()
}
