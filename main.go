package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"preset-panels/api"
	"preset-panels/config"
	"preset-panels/macro"
	"preset-panels/xapi"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	var rotator *lumberjack.Logger
	if cfg.Log.File != "" {
		rotator = &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
		}
		log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	}

	// run returns instead of exiting so its deferred cleanup always happens.
	err = run(cfg)
	if err != nil {
		log.Printf("macro %s: %v", cfg.Name, err)
	}
	if rotator != nil {
		rotator.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logger := log.Default()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transport, err := dial(ctx, cfg.Device)
	if err != nil {
		return fmt.Errorf("failed to connect to codec: %w", err)
	}
	client := xapi.NewClient(transport, logger)
	defer client.Close()

	m, err := macro.New(client, logger, macro.Options{
		Name:           cfg.Name,
		CommandTimeout: cfg.Macro.CommandTimeout(),
		PromptTimeout:  cfg.Macro.PromptTimeout(),
		EventQueue:     cfg.Macro.EventQueue,
		Panels:         cfg.Panels,
	})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if err := m.Close(closeCtx); err != nil && !errors.Is(err, xapi.ErrClosed) {
			log.Printf("WARN releasing subscriptions: %v", err)
		}
	}()

	if err := m.Start(ctx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	go m.Run(ctx)

	var httpServer *http.Server
	serverErr := make(chan error, 1)
	if cfg.HTTP.Addr != "" {
		httpServer = &http.Server{
			Addr:         cfg.HTTP.Addr,
			Handler:      api.RegisterRoutes(m, client.Done()),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 45 * time.Second,
		}
		go func() {
			log.Printf("Starting HTTP server on %s", cfg.HTTP.Addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
	}

	// Wait for interrupt signal, a failed server or a lost codec connection.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	var runErr error
	select {
	case <-quit:
		log.Println("Shutting down...")
	case err := <-serverErr:
		runErr = fmt.Errorf("HTTP server failed: %w", err)
	case <-client.Done():
		runErr = fmt.Errorf("codec connection lost: %w", client.Err())
	}
	cancel()

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}
	log.Printf("Macro [%s] stopped", cfg.Name)
	return runErr
}

func dial(ctx context.Context, dev config.DeviceConfig) (xapi.Transport, error) {
	if dev.Transport == "pty" {
		log.Printf("Starting codec bridge: %v", dev.Command)
		return xapi.StartPTY(dev.Command[0], dev.Command[1:]...)
	}

	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	log.Printf("Connecting to codec at %s", dev.Host)
	return xapi.DialWebSocket(dialCtx, xapi.WebSocketConfig{
		Host:     dev.Host,
		Username: dev.Username,
		Password: dev.Password,
		Insecure: dev.Insecure,
	})
}
