// Package convert переводит заполненные .docx в PDF внешним конвертером.
package convert

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Navl-bm/go-oficios/internal/contract"
)

// DefaultTimeout ограничивает один вызов конвертера.
const DefaultTimeout = 2 * time.Minute

// Soffice вызывает LibreOffice в headless-режиме.
type Soffice struct {
	Binary  string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewSoffice находит бинарник (soffice/libreoffice в PATH, если binary пуст).
// Если конвертер не найден, возвращается ConversionError.
func NewSoffice(binary string, timeout time.Duration, logger *zap.Logger) (*Soffice, error) {
	candidates := []string{binary}
	if binary == "" {
		candidates = []string{"soffice", "libreoffice"}
	}
	var path string
	var lastErr error
	for _, c := range candidates {
		p, err := exec.LookPath(c)
		if err == nil {
			path = p
			break
		}
		lastErr = err
	}
	if path == "" {
		return nil, contract.Errorf(contract.ErrConversion, lastErr, "конвертер не найден")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Soffice{Binary: path, Timeout: timeout, Logger: logger}, nil
}

var _ contract.Converter = (*Soffice)(nil)

// Convert пишет docx во временную папку, конвертирует и читает PDF.
func (s *Soffice) Convert(ctx context.Context, name string, docx []byte) ([]byte, error) {
	dir, err := os.MkdirTemp("", "oficio_pdf_*")
	if err != nil {
		return nil, contract.Errorf(contract.ErrIO, err, "временная папка")
	}
	defer os.RemoveAll(dir)

	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base == "" || base == "." {
		base = "oficio"
	}
	src := filepath.Join(dir, base+".docx")
	if err := os.WriteFile(src, docx, 0o644); err != nil {
		return nil, contract.Errorf(contract.ErrIO, err, "%s", src)
	}

	execCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	// Отдельный профиль, чтобы не конфликтовать с открытым LibreOffice
	profile := "-env:UserInstallation=file://" + filepath.ToSlash(filepath.Join(dir, "profile"))
	cmd := exec.CommandContext(execCtx, s.Binary, profile, "--headless", "--convert-to", "pdf", "--outdir", dir, src)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = &stderr

	start := time.Now()
	err = cmd.Run()
	s.Logger.Debug("soffice finished",
		zap.String("document", name),
		zap.Duration("took", time.Since(start)),
		zap.Error(err))

	if err != nil {
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			return nil, contract.Errorf(contract.ErrConversion, execCtx.Err(), "%s: превышено время %s", name, s.Timeout)
		}
		return nil, contract.Errorf(contract.ErrConversion, err, "%s: %s", name, strings.TrimSpace(stderr.String()))
	}

	pdf, err := os.ReadFile(filepath.Join(dir, base+".pdf"))
	if err != nil {
		return nil, contract.Errorf(contract.ErrConversion, err, "%s: PDF не создан", name)
	}
	return pdf, nil
}
