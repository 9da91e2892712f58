package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wuhup/obsidian-eml-to-markdown/internal/config"
	"github.com/wuhup/obsidian-eml-to-markdown/internal/converter"
	"github.com/wuhup/obsidian-eml-to-markdown/internal/db"
	"github.com/wuhup/obsidian-eml-to-markdown/internal/server"
	"github.com/wuhup/obsidian-eml-to-markdown/internal/vault"
	"github.com/wuhup/obsidian-eml-to-markdown/internal/watcher"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath(), "path to config file")
	watch := flag.Bool("watch", false, "keep running and convert new files as they arrive")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *watch {
		cfg.Watch = true
	}

	if err := os.MkdirAll(cfg.InboxDir, 0755); err != nil {
		log.Fatalf("Failed to create inbox directory: %v", err)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()
	log.Printf("Conversion ledger opened at: %s", cfg.DBPath)

	v, err := vault.New(cfg.NotesDir, cfg.AttachmentsDir, cfg.MaxAttachmentBytes)
	if err != nil {
		log.Fatalf("Failed to prepare vault: %v", err)
	}

	conv := converter.New(database, v, cfg)

	// Initial pass over whatever is already in the inbox.
	log.Printf("Converting emails from: %s", cfg.InboxDir)
	if _, err := conv.Run(); err != nil {
		log.Printf("Warning: conversion run failed: %v", err)
	}

	if !cfg.Watch && cfg.ServerAddr == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var srv *http.Server
	if cfg.ServerAddr != "" {
		srv = &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      server.New(database, conv).Router(),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			log.Printf("Starting server on http://%s", cfg.ServerAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Server failed: %v", err)
			}
		}()
	}

	if cfg.Watch {
		w := watcher.New(cfg.InboxDir, time.Duration(cfg.RescanIntervalSec)*time.Second, func() {
			if _, err := conv.Run(); err != nil {
				log.Printf("Warning: conversion run failed: %v", err)
			}
		})
		go func() {
			if err := w.Run(ctx); err != nil && err != context.Canceled {
				log.Printf("Watcher stopped: %v", err)
			}
		}()
	}

	<-sigChan
	log.Println("Shutting down gracefully...")
	cancel()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}

	log.Println("Stopped")
}
