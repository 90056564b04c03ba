package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ArchivedLog tracks which game IDs are already in the archive. It is an
// append-only file with one game ID per line, read into memory on open.
// A partial last line left by a crash is ignored on the next open.
type ArchivedLog struct {
	mu       sync.RWMutex
	file     *os.File
	archived map[string]struct{}
}

func OpenArchivedLog(path string) (*ArchivedLog, error) {
	if path == "" {
		return nil, fmt.Errorf("log path is required")
	}

	archived := make(map[string]struct{})
	if f, err := os.Open(path); err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if id := strings.TrimSpace(scanner.Text()); id != "" {
				archived[id] = struct{}{}
			}
		}
		_ = f.Close()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &ArchivedLog{file: file, archived: archived}, nil
}

func (l *ArchivedLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *ArchivedLog) Has(gameID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.archived[gameID]
	return ok
}

func (l *ArchivedLog) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.archived)
}

// AddMany appends game IDs and syncs once. Known and empty IDs are skipped.
func (l *ArchivedLog) AddMany(gameIDs []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return fmt.Errorf("log file is closed")
	}

	added := 0
	for _, id := range gameIDs {
		if id == "" {
			continue
		}
		if _, ok := l.archived[id]; ok {
			continue
		}
		if _, err := l.file.WriteString(id + "\n"); err != nil {
			return fmt.Errorf("append log: %w", err)
		}
		l.archived[id] = struct{}{}
		added++
	}
	if added == 0 {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync log: %w", err)
	}
	return nil
}
