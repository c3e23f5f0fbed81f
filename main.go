package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"phoenix/app/client/push"
	"phoenix/app/client/rest"
	"phoenix/app/client/speechkit"
	"phoenix/app/config"
	"phoenix/app/service/butler"
	"phoenix/app/service/cache"
	"phoenix/app/service/command"
	"phoenix/app/service/conversation"
	"phoenix/app/service/dashboard"
	"phoenix/app/service/engine"
	"phoenix/app/service/listen"
	"phoenix/app/service/queue"
	"phoenix/app/service/session"
	"phoenix/app/service/speech"
	"phoenix/app/service/widget"
	"phoenix/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, session.New)
	do.Provide(di, cache.New)
	do.Provide(di, rest.NewClient)
	do.Provide(di, speechkit.NewClient)
	do.Provide(di, func(di *do.Injector) (listen.Recognizer, error) {
		return do.MustInvoke[*speechkit.YandexSpeechKit](di), nil
	})
	do.Provide(di, listen.New)
	do.Provide(di, func(_ *do.Injector) (speech.Player, error) {
		return speech.NewBeepPlayer(), nil
	})
	do.Provide(di, speech.New)
	do.Provide(di, func(di *do.Injector) (butler.Speaker, error) {
		return do.MustInvoke[*speech.Service](di), nil
	})
	do.Provide(di, func(di *do.Injector) (butler.Listener, error) {
		return do.MustInvoke[*listen.Service](di), nil
	})
	do.Provide(di, command.New)
	do.Provide(di, conversation.New)
	do.Provide(di, butler.New)
	do.Provide(di, dashboard.New)
	do.Provide(di, widget.New)
	do.Provide(di, queue.New)
	do.Provide(di, push.New)
	do.Provide(di, engine.New)

	slog.Info("Service started")

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	go do.MustInvoke[*engine.Service](di).Run(appCtx)

	<-appCtx.Done()
}
