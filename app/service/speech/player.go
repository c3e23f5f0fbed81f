package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// ErrPlaybackUnavailable signals that the audio device could not be opened.
// The condition is surfaced to the user once, visually, since speaking about
// it would itself be impossible.
var ErrPlaybackUnavailable = errors.New("audio playback unavailable")

// Player renders one synthesized utterance. Play blocks until playback
// finishes, fails, or ctx is cancelled.
type Player interface {
	Play(ctx context.Context, mp3Data []byte) error
}

// BeepPlayer plays MP3 audio through the system speaker.
type BeepPlayer struct {
	initOnce sync.Once
	initErr  error
}

func NewBeepPlayer() *BeepPlayer {
	return &BeepPlayer{}
}

func (p *BeepPlayer) Play(ctx context.Context, mp3Data []byte) error {
	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(mp3Data)))
	if err != nil {
		return fmt.Errorf("failed to decode audio: %w", err)
	}
	defer streamer.Close()

	p.initOnce.Do(func() {
		p.initErr = speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10))
	})
	if p.initErr != nil {
		return fmt.Errorf("%w: %v", ErrPlaybackUnavailable, p.initErr)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	case <-done:
		return nil
	}
}
