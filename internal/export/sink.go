package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Sink stores named artefacts.
type Sink interface {
	// Put writes body under name and returns a location the operator can use
	// to fetch it.
	Put(ctx context.Context, name, contentType string, body io.Reader) (string, error)
}

// Sink drivers accepted by Open.
const (
	DriverFS = "fs"
	DriverS3 = "s3"
)

// Options selects and configures a sink.
type Options struct {
	Driver string
	Root   string
	S3     S3Config
}

// Open builds the sink named by opts.Driver; "" selects the filesystem.
func Open(ctx context.Context, opts Options) (Sink, error) {
	switch opts.Driver {
	case DriverFS, "":
		return NewFSSink(opts.Root)
	case DriverS3:
		return NewS3Sink(ctx, opts.S3)
	default:
		return nil, fmt.Errorf("unknown export driver %q", opts.Driver)
	}
}

// FSSink writes artefacts below a root directory.
type FSSink struct {
	root string
}

// NewFSSink creates root if needed. An empty root selects "./exports".
func NewFSSink(root string) (*FSSink, error) {
	if root == "" {
		root = "./exports"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export dir: %w", err)
	}
	return &FSSink{root: root}, nil
}

// Root returns the export directory.
func (s *FSSink) Root() string { return s.root }

// Put implements Sink. The file is written to a temporary name and renamed
// into place so readers never see a partial report.
func (s *FSSink) Put(_ context.Context, name, _ string, body io.Reader) (string, error) {
	clean, err := sanitizeName(name)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write %s: %w", clean, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close %s: %w", clean, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to move %s into place: %w", clean, err)
	}
	return path, nil
}

// sanitizeName keeps name inside the sink root.
func sanitizeName(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("empty export name")
	}
	if strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid export name %q", name)
	}
	if strings.HasPrefix(name, "/") || filepath.IsAbs(name) {
		return "", fmt.Errorf("invalid absolute export name %q", name)
	}
	return filepath.ToSlash(filepath.Clean(name)), nil
}
