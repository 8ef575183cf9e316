// Package runlog provides the append-only audit log shared by all
// Switchman workflows. A sink receives one block of text per workflow
// invocation and serves the whole history back verbatim.
package runlog

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/zulandar/switchman/internal/models"
	"gorm.io/gorm"
)

// Sink is an append-only log. A block is the newline-terminated text of
// one workflow invocation, without a trailing separator; Append writes
// the block followed by a blank line, exactly once per invocation.
type Sink interface {
	Append(block string) error
	ReadAll() (string, error)
}

// FileSink appends blocks to a local text file, creating it on first
// use. Each Append is a single O_APPEND write, so concurrent
// invocations interleave whole blocks rather than corrupting one.
type FileSink struct {
	path string
}

// NewFileSink returns a FileSink writing to path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) Append(block string) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("runlog: open %s: %w", s.path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(block + "\n"); err != nil {
		return fmt.Errorf("runlog: append to %s: %w", s.path, err)
	}
	return nil
}

func (s *FileSink) ReadAll() (string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("runlog: read %s: %w", s.path, err)
	}
	return string(data), nil
}

// MemorySink keeps blocks in memory. Used in tests and as a last-resort
// fallback when no durable backend is configured.
type MemorySink struct {
	mu  sync.Mutex
	buf strings.Builder
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Append(block string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.WriteString(block + "\n")
	return nil
}

func (s *MemorySink) ReadAll() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String(), nil
}

// StoreSink persists each block as a models.RunBlock row. ReadAll
// reconstitutes the same text a FileSink would hold: blocks in
// insertion order, each followed by a blank line.
type StoreSink struct {
	db *gorm.DB
}

// NewStoreSink returns a StoreSink backed by conn.
func NewStoreSink(conn *gorm.DB) *StoreSink {
	return &StoreSink{db: conn}
}

func (s *StoreSink) Append(block string) error {
	row := models.RunBlock{Block: block}
	if err := s.db.Create(&row).Error; err != nil {
		return fmt.Errorf("runlog: insert block: %w", err)
	}
	return nil
}

func (s *StoreSink) ReadAll() (string, error) {
	var rows []models.RunBlock
	if err := s.db.Order("id ASC").Find(&rows).Error; err != nil {
		return "", fmt.Errorf("runlog: read blocks: %w", err)
	}
	var b strings.Builder
	for _, row := range rows {
		b.WriteString(row.Block)
		b.WriteString("\n")
	}
	return b.String(), nil
}
