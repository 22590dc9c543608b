package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Sink is a content-addressed store for encoded bundles. References have the
// form "sha256:<hex>".
type Sink interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
}

const refPrefix = "sha256:"

func contentRef(data []byte) (ref, hexHash string) {
	sum := sha256.Sum256(data)
	hexHash = hex.EncodeToString(sum[:])
	return refPrefix + hexHash, hexHash
}

func parseRef(ref string) (string, error) {
	raw, ok := strings.CutPrefix(ref, refPrefix)
	if !ok {
		return "", fmt.Errorf("invalid bundle reference: %s", ref)
	}
	if b, err := hex.DecodeString(raw); err != nil || len(b) != sha256.Size {
		return "", fmt.Errorf("invalid bundle reference hex: %s", ref)
	}
	return raw, nil
}

func objectName(prefix, hexHash string) string {
	return prefix + "ledger-" + hexHash + ".json"
}

// FileSink stores bundles as files in a directory.
type FileSink struct {
	dir string
	mu  sync.RWMutex
}

func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to ensure archive dir: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

// Put writes data once; storing identical bytes again is a no-op.
func (s *FileSink) Put(_ context.Context, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, hexHash := contentRef(data)
	path := filepath.Join(s.dir, objectName("", hexHash))
	if _, err := os.Stat(path); err == nil {
		return ref, nil
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return "", fmt.Errorf("failed to write bundle: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to commit bundle: %w", err)
	}
	return ref, nil
}

func (s *FileSink) Get(_ context.Context, ref string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hexHash, err := parseRef(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, objectName("", hexHash)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("bundle not found: %s", ref)
		}
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
