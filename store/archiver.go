package store

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/fennewald/battle-snakes/session"
)

// Archiver buffers finished sessions and writes them to parquet batches.
// A batch is flushed when it holds FlushGames games, every FlushEvery, and
// once more when Run's context is cancelled.
type Archiver struct {
	dir        string
	log        *ArchivedLog
	flushGames int
	flushEvery time.Duration
	logger     *slog.Logger
	in         chan session.Record

	// OnFlush, if set, is called with the path of each written batch.
	OnFlush func(path string)

	dropped  atomic.Int64
	archived atomic.Int64
}

type ArchiverOptions struct {
	FlushGames int
	FlushEvery time.Duration
	// Queue is the number of records Submit can buffer ahead of Run.
	Queue  int
	Logger *slog.Logger
}

func NewArchiver(dir string, log *ArchivedLog, opts ArchiverOptions) *Archiver {
	if opts.FlushGames <= 0 {
		opts.FlushGames = 100
	}
	if opts.FlushEvery <= 0 {
		opts.FlushEvery = 10 * time.Minute
	}
	if opts.Queue <= 0 {
		opts.Queue = 1024
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Archiver{
		dir:        dir,
		log:        log,
		flushGames: opts.FlushGames,
		flushEvery: opts.FlushEvery,
		logger:     opts.Logger.With("component", "archiver"),
		in:         make(chan session.Record, opts.Queue),
	}
}

// Submit queues rec without blocking. It returns false if the queue is
// full and the record was dropped.
func (a *Archiver) Submit(rec session.Record) bool {
	select {
	case a.in <- rec:
		return true
	default:
		a.dropped.Add(1)
		a.logger.Warn("archive queue full, dropping game", "game_id", rec.Game.ID)
		return false
	}
}

// Archived is the number of games written by this process.
func (a *Archiver) Archived() int64 { return a.archived.Load() }

// Dropped is the number of games Submit turned away.
func (a *Archiver) Dropped() int64 { return a.dropped.Load() }

// Run consumes submitted records until ctx is done, then drains the queue
// and flushes what is left.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.flushEvery)
	defer ticker.Stop()

	var batch *BatchWriter
	pending := make([]string, 0, a.flushGames)
	inBatch := make(map[string]struct{}, a.flushGames)

	flush := func(reason string) {
		if batch == nil {
			return
		}
		path, rows, games, err := batch.Finalize()
		batch = nil
		ids := pending
		pending = make([]string, 0, a.flushGames)
		clear(inBatch)
		if err != nil {
			a.logger.Error("flush failed", "reason", reason, "games", len(ids), "err", err)
			return
		}
		if path == "" {
			return
		}
		if err := a.log.AddMany(ids); err != nil {
			// The parquet file is already in place; a later duplicate is
			// harmless to readers that group by game_id.
			a.logger.Error("archived log append failed", "reason", reason, "err", err)
		}
		a.archived.Add(int64(games))
		a.logger.Info("flushed batch", "reason", reason, "games", games, "rows", rows, "path", path)
		if a.OnFlush != nil {
			a.OnFlush(path)
		}
	}

	add := func(rec session.Record) {
		id := rec.Game.ID
		if a.log.Has(id) {
			a.logger.Debug("game already archived", "game_id", id)
			return
		}
		if _, ok := inBatch[id]; ok {
			return
		}
		if batch == nil {
			var err error
			if batch, err = NewBatchWriter(a.dir); err != nil {
				a.logger.Error("open batch failed", "game_id", id, "err", err)
				return
			}
		}
		rows := RowsFromRecord(rec)
		if err := batch.WriteGame(rows); err != nil {
			a.logger.Error("write game failed", "game_id", id, "err", err)
			batch.Abort()
			batch = nil
			pending = pending[:0]
			clear(inBatch)
			return
		}
		pending = append(pending, id)
		inBatch[id] = struct{}{}
		if len(pending) >= a.flushGames {
			flush("count")
		}
	}

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case rec := <-a.in:
					add(rec)
				default:
					flush("shutdown")
					return nil
				}
			}
		case <-ticker.C:
			flush("ticker")
		case rec := <-a.in:
			add(rec)
		}
	}
}
