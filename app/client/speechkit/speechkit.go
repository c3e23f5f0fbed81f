package speechkit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"phoenix/app/config"
	"phoenix/app/service/listen"

	"github.com/samber/do"
	ycsdk "github.com/yandex-cloud/go-sdk"
	"github.com/yandex-cloud/go-sdk/iamkey"
)

var _ listen.Recognizer = (*YandexSpeechKit)(nil)

// YandexSpeechKit streams microphone audio to the SpeechKit recognizer and
// exposes the session through the listen.Stream contract.
type YandexSpeechKit struct {
	cfg *config.Config
	sdk *ycsdk.SDK
}

func NewClient(di *do.Injector) (*YandexSpeechKit, error) {
	ctx := do.MustInvoke[context.Context](di)
	cfg := do.MustInvoke[*config.Config](di)

	keyBytes, err := os.ReadFile(cfg.Yandex.ServiceAccountKeyFile)
	if err != nil {
		return nil, fmt.Errorf("could not read service account key: %w", err)
	}

	var key iamkey.Key
	if err = json.Unmarshal(keyBytes, &key); err != nil {
		return nil, fmt.Errorf("could not parse service account key: %w", err)
	}

	creds, err := ycsdk.ServiceAccountKey(&key)
	if err != nil {
		return nil, fmt.Errorf("could not create service account key: %w", err)
	}

	sdk, err := ycsdk.Build(ctx, ycsdk.Config{
		Credentials: creds,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Yandex SDK: %w", err)
	}

	return &YandexSpeechKit{
		cfg: cfg,
		sdk: sdk,
	}, nil
}

// Start opens a streaming recognition session fed by the default microphone.
func (y *YandexSpeechKit) Start(ctx context.Context, language string) (listen.Stream, error) {
	ctx, cancel := context.WithCancel(ctx)

	client, err := y.sdk.AI().STTV3().Recognizer().RecognizeStreaming(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create recognizer stream: %w", err)
	}

	handle := &Handle{
		client: client,
		cancel: cancel,
	}

	if err = handle.SendConfig(language); err != nil {
		handle.Close()
		return nil, fmt.Errorf("failed to send audio config: %w", err)
	}

	mic, err := NewMicStream(ctx)
	if err != nil {
		handle.Close()
		return nil, fmt.Errorf("failed to open microphone: %w", err)
	}

	if err = mic.Start(); err != nil {
		handle.Close()
		return nil, fmt.Errorf("failed to start microphone: %w", err)
	}

	go func() {
		defer mic.Stop()
		handle.pumpAudio(ctx, mic.AudioStream())
	}()

	return handle, nil
}
