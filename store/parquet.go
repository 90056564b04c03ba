package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// BatchWriter streams rows into outDir/tmp/batch_<nanos>.parquet and moves
// the file into outDir on Finalize, so readers never observe a partially
// written file.
type BatchWriter struct {
	tmpPath string
	outPath string

	file   *os.File
	writer *parquet.GenericWriter[ArchiveTurnRow]

	bufferedGames int
	bufferedRows  int
}

func NewBatchWriter(outDir string) (*BatchWriter, error) {
	if outDir == "" {
		return nil, fmt.Errorf("outDir is required")
	}

	absOut, err := filepath.Abs(outDir)
	if err != nil {
		absOut = outDir
	}
	tmpDir := filepath.Join(absOut, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("batch_%d.parquet", time.Now().UnixNano())
	tmpPath := filepath.Join(tmpDir, name)
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open tmp parquet: %w", err)
	}

	w := parquet.NewGenericWriter[ArchiveTurnRow](f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
	)
	w.SetKeyValueMetadata("schema", Schema)

	return &BatchWriter{
		tmpPath: tmpPath,
		outPath: filepath.Join(absOut, name),
		file:    f,
		writer:  w,
	}, nil
}

func (b *BatchWriter) OutPath() string    { return b.outPath }
func (b *BatchWriter) BufferedGames() int { return b.bufferedGames }
func (b *BatchWriter) BufferedRows() int  { return b.bufferedRows }

// WriteGame appends one game's rows.
func (b *BatchWriter) WriteGame(rows []ArchiveTurnRow) error {
	if b.writer == nil {
		return fmt.Errorf("batch writer is closed")
	}
	if len(rows) == 0 {
		return nil
	}
	if _, err := b.writer.Write(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	b.bufferedRows += len(rows)
	b.bufferedGames++
	return nil
}

// Finalize closes the parquet writer and moves the file from tmp/ to outDir.
// If no rows were written, the tmp file is removed and outPath is empty.
func (b *BatchWriter) Finalize() (outPath string, rows, games int, err error) {
	if b.writer == nil && b.file == nil {
		return "", 0, 0, nil
	}
	rows, games = b.bufferedRows, b.bufferedGames

	var closeErr, fileErr error
	if b.writer != nil {
		closeErr = b.writer.Close()
		b.writer = nil
	}
	if b.file != nil {
		_ = b.file.Sync()
		fileErr = b.file.Close()
		b.file = nil
	}
	if closeErr != nil {
		_ = os.Remove(b.tmpPath)
		return "", 0, 0, fmt.Errorf("close parquet writer: %w", closeErr)
	}
	if fileErr != nil {
		_ = os.Remove(b.tmpPath)
		return "", 0, 0, fmt.Errorf("close parquet file: %w", fileErr)
	}

	if rows == 0 {
		_ = os.Remove(b.tmpPath)
		return "", 0, 0, nil
	}
	if err := os.Rename(b.tmpPath, b.outPath); err != nil {
		return "", 0, 0, fmt.Errorf("rename parquet: %w", err)
	}
	return b.outPath, rows, games, nil
}

// Abort discards the batch.
func (b *BatchWriter) Abort() {
	if b.writer != nil {
		_ = b.writer.Close()
		b.writer = nil
	}
	if b.file != nil {
		_ = b.file.Close()
		b.file = nil
	}
	_ = os.Remove(b.tmpPath)
}

// ReadBatch loads every row of an archive file.
func ReadBatch(path string) ([]ArchiveTurnRow, error) {
	rows, err := parquet.ReadFile[ArchiveTurnRow](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}
