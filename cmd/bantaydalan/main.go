package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/bantaydalan/bantaydalan-api/internal/pkg/env"
)

func main() {
	env.SetupEnvFile()

	app, shutdown := NewApplication(context.Background())

	go func() {
		addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
		if err := app.Listen(addr); err != nil {
			log.Fatalf("[Server] %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("[Server] Shutting down")
	if err := app.ShutdownWithTimeout(15 * time.Second); err != nil {
		log.Errorf("[Server] Shutdown: %v", err)
	}
	shutdown()
}
