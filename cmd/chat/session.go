package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"pastelchat/internal/client"
	"pastelchat/internal/database"
	"pastelchat/internal/models"
	"pastelchat/internal/repository"
)

const (
	transportHTTP = "http"
	transportWS   = "ws"

	storeFile     = "file"
	storeSQLite   = "sqlite"
	storeRedis    = "redis"
	storePostgres = "postgres"
)

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".pastelchat"
	}
	return filepath.Join(dir, "pastelchat")
}

// openStore returns the selected history store and a function releasing its
// connections.
func openStore(ctx context.Context, opts *options) (repository.StateStore, func(), error) {
	switch opts.Store {
	case storeFile:
		store, err := repository.NewFileStateRepo(opts.StorePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil

	case storeSQLite:
		path := opts.StorePath
		if filepath.Ext(path) == "" {
			if err := os.MkdirAll(path, 0o755); err != nil {
				return nil, nil, err
			}
			path = filepath.Join(path, "history.db")
		}
		db, err := database.OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewSQLiteStateRepo(db), func() { db.Close() }, nil

	case storeRedis:
		rdb, err := database.NewRedisClient(opts.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewRedisStateRepo(rdb), func() { rdb.Close() }, nil

	case storePostgres:
		if opts.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("-database-url is required for the postgres store")
		}
		pool, err := database.NewPostgresPool(opts.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := database.RunMigrations(pool, database.Migrations); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repository.NewPostgresStateRepo(pool), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", opts.Store)
}

func newTransport(opts *options) (client.Transport, error) {
	switch opts.Transport {
	case transportHTTP:
		return client.NewHTTPTransport(opts.Server, opts.Timeout), nil
	case transportWS:
		return client.NewWSTransport(opts.Server, opts.Timeout)
	}
	return nil, fmt.Errorf("unknown transport %q", opts.Transport)
}

type session struct {
	conv      *client.Conversation
	transport client.Transport
	release   func()
}

func openSession(ctx context.Context, opts *options, render func([]models.ChatMessage)) (*session, error) {
	transport, err := newTransport(opts)
	if err != nil {
		return nil, err
	}
	store, release, err := openStore(ctx, opts)
	if err != nil {
		transport.Close()
		return nil, err
	}
	return &session{
		conv:      client.NewConversation(store, transport, render),
		transport: transport,
		release:   release,
	}, nil
}

func (s *session) Close() {
	s.transport.Close()
	s.release()
}
