package speechkit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"phoenix/app/service/listen"

	"github.com/yandex-cloud/go-genproto/yandex/cloud/ai/stt/v3"
)

const audioBufferSize = 4096

var _ listen.Stream = (*Handle)(nil)

type Handle struct {
	client stt.Recognizer_RecognizeStreamingClient
	cancel context.CancelFunc
}

func (h *Handle) send(content []byte) error {
	var req stt.StreamingRequest
	req.SetChunk(&stt.AudioChunk{
		Data: content,
	})

	return h.client.Send(&req)
}

func (h *Handle) SendConfig(language string) error {
	var audioFormatOpts stt.AudioFormatOptions
	audioFormatOpts.SetRawAudio(&stt.RawAudio{
		AudioEncoding:     stt.RawAudio_LINEAR16_PCM,
		SampleRateHertz:   16000,
		AudioChannelCount: 1,
	})

	var eouClassifier stt.EouClassifierOptions
	eouClassifier.SetDefaultClassifier(&stt.DefaultEouClassifier{
		Type:                       stt.DefaultEouClassifier_HIGH,
		MaxPauseBetweenWordsHintMs: 500,
	})

	var req stt.StreamingRequest
	req.SetSessionOptions(&stt.StreamingOptions{
		RecognitionModel: &stt.RecognitionModelOptions{
			Model:       "general",
			AudioFormat: &audioFormatOpts,
			LanguageRestriction: &stt.LanguageRestrictionOptions{
				RestrictionType: stt.LanguageRestrictionOptions_WHITELIST,
				LanguageCode:    []string{languageCode(language)},
			},
		},
		EouClassifier: &eouClassifier,
	})

	return h.client.Send(&req)
}

func (h *Handle) pumpAudio(ctx context.Context, audioSrc io.Reader) {
	buffer := make([]byte, audioBufferSize)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := audioSrc.Read(buffer)
		if err != nil {
			if ctx.Err() == nil {
				slog.Debug("Microphone stream ended", "error", err)
			}
			return
		}

		if n == 0 {
			continue
		}

		if err = h.send(buffer[:n]); err != nil {
			if ctx.Err() == nil {
				slog.Debug("Failed to send audio chunk", "error", err)
			}
			return
		}
	}
}

// Recv maps SpeechKit events onto the adapter contract: partial hypotheses
// become interim results, the end-of-utterance event becomes the final one.
func (h *Handle) Recv() (listen.Result, error) {
	for {
		res, err := h.client.Recv()
		if err != nil {
			return listen.Result{}, fmt.Errorf("failed to receive recognition event: %w", err)
		}

		if partial := res.GetPartial(); partial != nil {
			text := joinAlternatives(partial.Alternatives)
			if text == "" {
				continue
			}

			return listen.Result{Transcript: text, Final: false}, nil
		}

		if final := res.GetFinal(); final != nil {
			return listen.Result{
				Transcript: joinAlternatives(final.Alternatives),
				Final:      true,
				Confidence: 1,
			}, nil
		}
	}
}

func (h *Handle) Close() error {
	h.cancel()
	return nil
}

func joinAlternatives(alternatives []*stt.Alternative) string {
	parts := make([]string, 0, len(alternatives))
	for _, alt := range alternatives {
		text := strings.TrimSpace(alt.Text)
		if text == "" {
			continue
		}

		parts = append(parts, text)
		break // the first non-empty hypothesis is the best one
	}

	return strings.Join(parts, " ")
}

func languageCode(language string) string {
	switch language {
	case "en":
		return "en-US"
	case "ru":
		return "ru-RU"
	case "de":
		return "de-DE"
	default:
		return "en-US"
	}
}
