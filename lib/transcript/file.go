// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/bureau-foundation/trickle/lib/llm"
)

// Load reads the transcript at path. A missing file is an empty
// history, not an error.
func Load(path string) ([]llm.Turn, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}
	turns, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return turns, nil
}

// Save atomically replaces the transcript at path. The parent
// directory is created if needed. The file is readable by its owner
// only.
func Save(path string, turns []llm.Turn) error {
	data, err := Encode(turns)
	if err != nil {
		return err
	}

	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0o700); err != nil {
		return fmt.Errorf("creating transcript directory: %w", err)
	}

	temporary, err := os.CreateTemp(directory, ".transcript-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary transcript: %w", err)
	}
	temporaryPath := temporary.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(temporaryPath)
		}
	}()

	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		return fmt.Errorf("writing temporary transcript: %w", err)
	}
	if err := temporary.Sync(); err != nil {
		temporary.Close()
		return fmt.Errorf("syncing temporary transcript: %w", err)
	}
	if err := temporary.Close(); err != nil {
		return fmt.Errorf("closing temporary transcript: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		return fmt.Errorf("renaming transcript into place: %w", err)
	}

	success = true
	return nil
}

// Log is a transcript file kept in step with a conversation. Every
// Append rewrites the file. Log is safe for concurrent use.
type Log struct {
	path string

	mu    sync.Mutex
	turns []llm.Turn
}

// Open loads the transcript at path, which need not exist yet.
func Open(path string) (*Log, error) {
	turns, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Log{path: path, turns: turns}, nil
}

// Path returns the file the log writes.
func (log *Log) Path() string { return log.path }

// Turns returns a copy of the recorded turns.
func (log *Log) Turns() []llm.Turn {
	log.mu.Lock()
	defer log.mu.Unlock()
	return slices.Clone(log.turns)
}

// Append records turn and saves the file. On failure the turn is not
// kept in memory either, so the log never runs ahead of the file.
func (log *Log) Append(turn llm.Turn) error {
	log.mu.Lock()
	defer log.mu.Unlock()

	next := append(slices.Clone(log.turns), turn)
	if err := Save(log.path, next); err != nil {
		return err
	}
	log.turns = next
	return nil
}
