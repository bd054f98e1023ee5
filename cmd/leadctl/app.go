package main

import (
	"fmt"
	"time"

	"github.com/coldreach/leadctl/internal/api"
	"github.com/coldreach/leadctl/internal/config"
	"github.com/coldreach/leadctl/internal/session"
	"github.com/coldreach/leadctl/internal/storage"
)

// app bundles the pieces every command needs: config, the persisted
// session, and an API client that reads the token at call time.
type app struct {
	cfg      config.Config
	sessions *session.Manager
	client   *api.Client
}

var newApp = func() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	setupLogging(cfg)

	sessions, err := session.NewManager(session.NewFileStore(session.DefaultPath(cfg.Storage.DataDir)))
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	client := api.New(cfg.API.BaseURL, sessions, config.Duration(cfg.API.Timeout, 30*time.Second))
	return &app{cfg: cfg, sessions: sessions, client: client}, nil
}

// requireAuth fails early when no session exists, before any request
// hits the backend and bounces with a 401.
func (a *app) requireAuth() error {
	if !a.sessions.Current().IsAuthenticated() {
		return fmt.Errorf("not logged in — run 'leadctl login' first")
	}
	return nil
}

func (a *app) openStore() (*storage.Store, error) {
	store, err := storage.Open(a.cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening local cache: %w", err)
	}
	return store, nil
}
