package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ReceiptStore keeps uploaded transfer receipts on a filesystem, one file per
// upload. Paths returned by Save are relative to the store root.
type ReceiptStore struct {
	fs     afero.Fs
	root   string
	logger *zap.Logger
}

func NewReceiptStore(fs afero.Fs, root string, logger *zap.Logger) (*ReceiptStore, error) {
	if err := fs.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("creating receipt dir: %w", err)
	}
	return &ReceiptStore{fs: fs, root: root, logger: logger}, nil
}

// NewLocalReceiptStore stores receipts on the OS filesystem under dir.
func NewLocalReceiptStore(dir string, logger *zap.Logger) (*ReceiptStore, error) {
	return NewReceiptStore(afero.NewOsFs(), dir, logger)
}

// Save writes data under name, going through a temporary file so a reader
// never sees a partial receipt.
func (s *ReceiptStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid receipt name %q", name)
	}

	target := filepath.Join(s.root, name)
	tmp := target + ".part"
	if err := afero.WriteFile(s.fs, tmp, data, 0o640); err != nil {
		return "", fmt.Errorf("writing receipt: %w", err)
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		_ = s.fs.Remove(tmp)
		return "", fmt.Errorf("renaming receipt: %w", err)
	}

	s.logger.Info("receipt stored", zap.String("path", name), zap.Int("size", len(data)))
	return name, nil
}

// Remove deletes a receipt previously returned by Save. A missing file is not
// an error.
func (s *ReceiptStore) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := filepath.Base(filepath.Clean("/" + path))
	if name == "/" || name == "." {
		return fmt.Errorf("invalid receipt path %q", path)
	}
	if err := s.fs.Remove(filepath.Join(s.root, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing receipt: %w", err)
	}
	s.logger.Info("receipt removed", zap.String("path", name))
	return nil
}
