package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/01phanto/EcoLedger/pkg/contracts"
)

const maxLineBytes = 16 << 20

// FileLog stores one JSON-lines file per sequence under a directory.
// Each append is fsynced; a failed write is truncated back to the previous tail.
type FileLog struct {
	dir    string
	mu     sync.Mutex
	files  map[contracts.Kind]*os.File
	tails  map[contracts.Kind]uint64
	ids    map[contracts.Kind]map[string]struct{}
	closed bool
}

// NewFileLog opens (or creates) a log under dir. A torn final line left by a crash is discarded.
func NewFileLog(dir string) (*FileLog, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("store: create dir: %w", err)
	}
	fl := &FileLog{
		dir:   dir,
		files: make(map[contracts.Kind]*os.File),
		tails: make(map[contracts.Kind]uint64),
		ids:   make(map[contracts.Kind]map[string]struct{}),
	}
	for _, kind := range contracts.Kinds() {
		if err := fl.openSequence(kind); err != nil {
			_ = fl.Close()
			return nil, err
		}
	}
	return fl, nil
}

func (f *FileLog) path(kind contracts.Kind) string {
	return filepath.Join(f.dir, string(kind)+"s.jsonl")
}

func (f *FileLog) openSequence(kind contracts.Kind) error {
	file, err := os.OpenFile(f.path(kind), os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return fmt.Errorf("store: open %s: %w", kind, err)
	}
	f.files[kind] = file
	f.ids[kind] = make(map[string]struct{})

	var good int64
	reader := bufio.NewReaderSize(file, 64<<10)
	for {
		line, err := reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("store: read %s: %w", kind, err)
		}
		var e contracts.Entry
		if err := json.Unmarshal(bytes.TrimSpace(line), &e); err != nil {
			return fmt.Errorf("store: decode %s line %d: %w", kind, f.tails[kind]+1, err)
		}
		good += int64(len(line))
		f.tails[kind] = e.BlockNumber
		f.ids[kind][e.ID] = struct{}{}
	}
	if err := file.Truncate(good); err != nil {
		return fmt.Errorf("store: trim %s: %w", kind, err)
	}
	if _, err := file.Seek(good, io.SeekStart); err != nil {
		return fmt.Errorf("store: seek %s: %w", kind, err)
	}
	return nil
}

func (f *FileLog) Append(_ context.Context, e contracts.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	file, ok := f.files[e.Kind]
	if !ok {
		return fmt.Errorf("store: unknown sequence %q", e.Kind)
	}
	if e.BlockNumber != f.tails[e.Kind]+1 {
		return fmt.Errorf("%w: %s block %d, tail is %d", ErrConflict, e.Kind, e.BlockNumber, f.tails[e.Kind])
	}
	if _, dup := f.ids[e.Kind][e.ID]; dup {
		return fmt.Errorf("%w: %s id %q exists", ErrConflict, e.Kind, e.ID)
	}

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("store: encode entry: %w", err)
	}
	line = append(line, '\n')

	offset, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("store: seek: %w", err)
	}
	if _, err := file.Write(line); err != nil {
		f.rollback(file, offset)
		return fmt.Errorf("store: write %s: %w", e.Kind, err)
	}
	if err := file.Sync(); err != nil {
		f.rollback(file, offset)
		return fmt.Errorf("store: sync %s: %w", e.Kind, err)
	}

	f.tails[e.Kind] = e.BlockNumber
	f.ids[e.Kind][e.ID] = struct{}{}
	return nil
}

func (f *FileLog) rollback(file *os.File, offset int64) {
	_ = file.Truncate(offset)
	_, _ = file.Seek(offset, io.SeekStart)
}

func (f *FileLog) Scan(ctx context.Context, kind contracts.Kind, fn func(contracts.Entry) error) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	if _, ok := f.files[kind]; !ok {
		f.mu.Unlock()
		return fmt.Errorf("store: unknown sequence %q", kind)
	}
	// Only fully synced lines up to the current tail are visible.
	limit := f.tails[kind]
	f.mu.Unlock()

	file, err := os.Open(f.path(kind))
	if err != nil {
		return fmt.Errorf("store: open %s: %w", kind, err)
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineBytes)
	var seen uint64
	for seen < limit && scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var e contracts.Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return fmt.Errorf("store: decode %s: %w", kind, err)
		}
		seen++
		if err := fn(e); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (f *FileLog) Backend() string { return "file" }

func (f *FileLog) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	var firstErr error
	for _, file := range f.files {
		if err := file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
