package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CoderLifeNet/colab.coderlife.net/internal/server"
)

func main() {
	log.Println("Starting colab server...")

	config := server.NewConfigFromEnv()
	server.SetConfig(config)

	hub := server.NewHub()
	go hub.Run()

	router := server.SetupRoutes(hub, config.StaticDir)
	httpServer := server.CreateServer(config.Port, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("Server error: %v", err)
	case sig := <-stop:
		log.Printf("Received %s, shutting down", sig)
	}

	if err := server.ShutdownServer(httpServer, 10*time.Second); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	if err := hub.Shutdown(10 * time.Second); err != nil {
		log.Printf("Hub shutdown error: %v", err)
	}
}
