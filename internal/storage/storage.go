// Package storage mounts the filesystem that recordings are written to and
// played back from.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

const (
	BackendOS  = "os"
	BackendMem = "mem"
)

// ErrNotMounted is returned by operations on an unmounted volume.
var ErrNotMounted = errors.New("volume not mounted")

// NormalizeBackend validates a backend name. Empty selects BackendOS.
func NormalizeBackend(raw string) (string, error) {
	b := strings.ToLower(strings.TrimSpace(raw))
	switch b {
	case "":
		return BackendOS, nil
	case BackendOS, BackendMem:
		return b, nil
	case "memory":
		return BackendMem, nil
	}
	return "", fmt.Errorf("invalid storage backend %q (expected %s|%s)", raw, BackendOS, BackendMem)
}

// File is an open file on a volume.
type File interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
	Sync() error
}

// Volume is a mounted filesystem rooted at a directory.
type Volume struct {
	mu      sync.RWMutex
	fs      afero.Fs
	root    string
	backend string
}

// Mount mounts root with the given backend. For BackendOS all paths are
// resolved beneath root; BackendMem ignores root and starts empty.
func Mount(backend, root string) (*Volume, error) {
	b, err := NormalizeBackend(backend)
	if err != nil {
		return nil, err
	}

	var fs afero.Fs
	switch b {
	case BackendMem:
		root = "/"
		fs = afero.NewMemMapFs()
	default:
		if root == "" {
			root = "."
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve mount point: %w", err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("mount %s: %w", abs, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("mount %s: not a directory", abs)
		}
		root = abs
		fs = afero.NewBasePathFs(afero.NewOsFs(), abs)
	}

	return &Volume{fs: fs, root: root, backend: b}, nil
}

// NewVolume wraps an existing afero filesystem.
func NewVolume(fs afero.Fs) *Volume {
	return &Volume{fs: fs, root: "/", backend: BackendMem}
}

// Root is the mount point.
func (v *Volume) Root() string { return v.root }

// Backend is the normalized backend name.
func (v *Volume) Backend() string { return v.backend }

func (v *Volume) get() (afero.Fs, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.fs == nil {
		return nil, ErrNotMounted
	}
	return v.fs, nil
}

// Open opens name for sequential reading.
func (v *Volume) Open(name string) (File, error) {
	fs, err := v.get()
	if err != nil {
		return nil, err
	}
	return fs.Open(name)
}

// Create truncates or creates name for writing. Parent directories are
// created as needed.
func (v *Volume) Create(name string) (File, error) {
	fs, err := v.get()
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(name); dir != "." && dir != "/" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return fs.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
}

// Stat returns file info for name.
func (v *Volume) Stat(name string) (os.FileInfo, error) {
	fs, err := v.get()
	if err != nil {
		return nil, err
	}
	return fs.Stat(name)
}

// ReadFile returns the contents of name.
func (v *Volume) ReadFile(name string) ([]byte, error) {
	fs, err := v.get()
	if err != nil {
		return nil, err
	}
	return afero.ReadFile(fs, name)
}

// WriteFile replaces the contents of name.
func (v *Volume) WriteFile(name string, data []byte) error {
	f, err := v.Create(name)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Writable reports whether a probe file can be created and removed.
func (v *Volume) Writable() error {
	fs, err := v.get()
	if err != nil {
		return err
	}
	f, err := afero.TempFile(fs, "/", ".i2saudio-probe-")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return fs.Remove(name)
}

// Unmount detaches the volume. Later operations return ErrNotMounted.
func (v *Volume) Unmount() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.fs == nil {
		return ErrNotMounted
	}
	v.fs = nil
	return nil
}
