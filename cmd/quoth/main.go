package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	commonlog "github.com/keeeal/quoth/server/common/log"
	quothapp "github.com/keeeal/quoth/server/quoth/app"
)

func main() {
	cfg := quothapp.LoadConfig()

	server, err := quothapp.NewServer(cfg)
	if err != nil {
		log.Fatalf("initialize quoth server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		commonlog.Infof("start quoth http server on :%s", cfg.Port)
		if err := server.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("run quoth http server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		commonlog.Errorf("shutdown quoth server gracefully: %v", err)
	}
}
