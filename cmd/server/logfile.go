package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// The log file is cut back to its newest keepLogBytes once it passes
// maxLogBytes.
const (
	maxLogBytes  = 6 << 20
	keepLogBytes = 5 << 20
)

type tailLog struct {
	mu       sync.Mutex
	file     *os.File
	maxBytes int64
	keep     int64
}

func openTailLog(path string) (*tailLog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	l := &tailLog{file: file, maxBytes: maxLogBytes, keep: keepLogBytes}
	if err := l.trim(); err != nil {
		file.Close()
		return nil, err
	}
	return l, nil
}

func (l *tailLog) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, err := l.file.Write(p)
	if err != nil {
		return n, err
	}
	return n, l.trim()
}

func (l *tailLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// trim keeps the newest l.keep bytes once the file exceeds l.maxBytes.
func (l *tailLog) trim() error {
	info, err := l.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= l.maxBytes {
		return nil
	}

	tail := make([]byte, l.keep)
	n, err := l.file.ReadAt(tail, size-l.keep)
	if err != nil && err != io.EOF {
		return err
	}
	if err := l.file.Truncate(0); err != nil {
		return err
	}
	// O_APPEND writes land at the new end after truncation.
	_, err = l.file.Write(tail[:n])
	return err
}
