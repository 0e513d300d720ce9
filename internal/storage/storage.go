// Package storage guarda los artefactos subidos en disco.
// Layout: root/<paquete>/<filename>. Las escrituras son atómicas
// (tmp + fsync + rename) para que un upload cortado nunca deje un
// archivo a medias visible para descargas.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrExists   = errors.New("storage: file already exists")
	ErrNotFound = errors.New("storage: file not found")
)

type Disk struct {
	root string
}

func NewDisk(root string) (*Disk, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", abs, err)
	}
	return &Disk{root: abs}, nil
}

// path valida que pkg y filename no escapen del root (path traversal).
func (d *Disk) path(pkg, filename string) (string, error) {
	for _, part := range []string{pkg, filename} {
		if part == "" || part != filepath.Base(part) || strings.ContainsAny(part, `/\`) {
			return "", fmt.Errorf("storage: invalid path component %q", part)
		}
	}
	return filepath.Join(d.root, pkg, filename), nil
}

// Save escribe el contenido de r de forma atómica. Devuelve ErrExists si
// el archivo ya está en disco; el caller decide si eso es conflicto.
// Pasos: write tmp → Sync → Close → Rename, con cleanup del tmp en error.
func (d *Disk) Save(pkg, filename string, r io.Reader) (int64, error) {
	dst, err := d.path(pkg, filename)
	if err != nil {
		return 0, err
	}
	if _, err := os.Stat(dst); err == nil {
		return 0, ErrExists
	}

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	n, err := io.Copy(tmp, r)
	if err != nil {
		return 0, fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("fsync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close temp: %w", err)
	}
	_ = os.Chmod(tmpPath, 0o644)

	if err := os.Rename(tmpPath, dst); err != nil {
		return 0, fmt.Errorf("rename: %w", err)
	}
	return n, nil
}

// Open devuelve el archivo y su tamaño. El caller debe cerrarlo.
func (d *Disk) Open(pkg, filename string) (io.ReadSeekCloser, int64, error) {
	p, err := d.path(pkg, filename)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	return f, st.Size(), nil
}

func (d *Disk) Exists(pkg, filename string) bool {
	p, err := d.path(pkg, filename)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// RemovePackage borra el directorio completo del paquete.
func (d *Disk) RemovePackage(pkg string) error {
	if pkg == "" || pkg != filepath.Base(pkg) {
		return fmt.Errorf("storage: invalid package %q", pkg)
	}
	return os.RemoveAll(filepath.Join(d.root, pkg))
}
