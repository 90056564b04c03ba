// Package main runs the Battlesnake HTTP server.
//
// It keeps one session per live game, answers each move within the game's
// timeout and, when an archive directory is configured, writes finished
// games to parquet batches that the /games routes query through DuckDB.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fennewald/battle-snakes/config"
	"github.com/fennewald/battle-snakes/decide"
	"github.com/fennewald/battle-snakes/feed"
	"github.com/fennewald/battle-snakes/history"
	"github.com/fennewald/battle-snakes/logging"
	"github.com/fennewald/battle-snakes/server"
	"github.com/fennewald/battle-snakes/session"
	"github.com/fennewald/battle-snakes/store"
)

const (
	historyRefresh  = 30 * time.Second
	shutdownTimeout = 5 * time.Second
)

func main() {
	cfg, err := config.Load(os.Args[1:], ".env", os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	var regOpts []session.Option
	if cfg.History {
		regOpts = append(regOpts, session.WithHistory())
	}
	reg := session.New(regOpts...)
	hub := feed.NewHub(logger)

	opts := server.Options{
		Registry:    reg,
		Decider:     decide.Forager{},
		Budget:      cfg.Budget,
		Appearance:  cfg.Appearance(),
		ShoutPolicy: cfg.ShoutPolicy,
		Feed:        hub,
		Logger:      logger,
	}

	var archiver *store.Archiver
	if cfg.ArchiveDir != "" {
		if err := os.MkdirAll(cfg.ArchiveDir, 0o755); err != nil {
			return fmt.Errorf("archive dir: %w", err)
		}
		archived, err := store.OpenArchivedLog(cfg.ArchiveLog)
		if err != nil {
			return err
		}
		defer archived.Close()
		logger.Info("archive enabled", "dir", cfg.ArchiveDir, "already_archived", archived.Count())

		db := history.Open(cfg.ArchiveDir, historyRefresh, logger)
		defer db.Close()

		archiver = store.NewArchiver(cfg.ArchiveDir, archived, store.ArchiverOptions{
			FlushGames: cfg.FlushGames,
			FlushEvery: cfg.FlushEvery,
			Logger:     logger,
		})
		archiver.OnFlush = func(string) { db.Invalidate() }

		opts.History = db
		opts.Archive = func(rec session.Record) {
			if !archiver.Submit(rec) {
				logger.Warn("archive queue full, game dropped", "game_id", rec.Game.ID)
			}
		}
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.New(opts).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		reg.Run(ctx, cfg.SweepInterval, cfg.IdleTimeout, func(rec session.Record) {
			logger.Info("reclaimed idle session",
				"game_id", rec.Game.ID,
				"turn", rec.Turn,
				"age", rec.Ended.Sub(rec.Started),
			)
			if opts.Archive != nil {
				opts.Archive(rec)
			}
		})
		return nil
	})

	if archiver != nil {
		g.Go(func() error { return archiver.Run(ctx) })
	}

	g.Go(func() error {
		logger.Info("battlesnake server listening",
			"addr", cfg.Listen,
			"history", cfg.History,
			"shout_policy", cfg.ShoutPolicy.String(),
			"idle_timeout", cfg.IdleTimeout,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if archiver != nil {
		logger.Info("archiver stopped", "archived", archiver.Archived(), "dropped", archiver.Dropped())
	}
	return err
}
