// Package storage сохраняет результаты партии: папка вывода на диске или память.
package storage

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Navl-bm/go-oficios/internal/contract"
)

// FS пишет файлы плоско в корневую папку через временный файл и rename.
type FS struct {
	root  string
	permF os.FileMode
	permD os.FileMode
}

// NewFS создает хранилище в папке root (создается при первой записи).
func NewFS(root string) (*FS, error) {
	if strings.TrimSpace(root) == "" {
		return nil, contract.Errorf(contract.ErrIO, os.ErrInvalid, "пустая папка вывода")
	}
	return &FS{root: root, permF: 0o644, permD: 0o755}, nil
}

var _ contract.Store = (*FS)(nil)

// Root возвращает папку вывода.
func (w *FS) Root() string { return w.root }

// Path возвращает полный путь файла name внутри папки вывода.
func (w *FS) Path(name string) (string, error) {
	return w.mapPath(name)
}

// Write атомарно записывает содержимое r в файл name.
func (w *FS) Write(ctx context.Context, name string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dest, err := w.mapPath(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(w.root, w.permD); err != nil {
		return contract.Errorf(contract.ErrIO, err, "%s", w.root)
	}
	if err := writeAtomic(ctx, dest, r, w.permF); err != nil {
		return contract.Errorf(contract.ErrIO, err, "%s", dest)
	}
	return nil
}

// mapPath оставляет только имя файла: подпапки и выход за корень запрещены.
func (w *FS) mapPath(name string) (string, error) {
	base := filepath.Base(filepath.Clean(name))
	if base == "." || base == ".." || base == string(filepath.Separator) || base != name {
		return "", contract.Errorf(contract.ErrPathInvalid, nil, "%q", name)
	}
	return filepath.Join(w.root, base), nil
}

// writeAtomic пишет во временный файл рядом с dest и переименовывает его.
func writeAtomic(ctx context.Context, dest string, r io.Reader, perm os.FileMode) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, perm)

	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	bw := bufio.NewWriterSize(tmp, 64*1024)
	if _, err := io.Copy(bw, &ctxReader{ctx: ctx, r: r}); err != nil {
		return fail(err)
	}
	if err := bw.Flush(); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// WriteFileAtomic делает то же для произвольного пути (используется журналом).
func WriteFileAtomic(ctx context.Context, dest string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return writeAtomic(ctx, dest, r, 0o644)
}

// ctxReader проверяет отмену ctx перед каждым Read.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
