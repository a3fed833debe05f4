// Package app собирает сервис партий из конфигурации: журнал, хранилище,
// конвертер и упаковщик выбранного профиля.
package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Navl-bm/go-oficios/internal/access"
	"github.com/Navl-bm/go-oficios/internal/batch"
	"github.com/Navl-bm/go-oficios/internal/config"
	"github.com/Navl-bm/go-oficios/internal/contract"
	"github.com/Navl-bm/go-oficios/internal/convert"
	"github.com/Navl-bm/go-oficios/internal/ledger"
	"github.com/Navl-bm/go-oficios/internal/metrics"
	"github.com/Navl-bm/go-oficios/internal/pack"
	"github.com/Navl-bm/go-oficios/internal/roster"
	"github.com/Navl-bm/go-oficios/internal/storage"
)

// App: собранный сервис и его зависимости.
type App struct {
	Config  *config.Config
	Profile *config.Resolved
	Service *batch.Service
	Ledger  ledger.Ledger
	Store   *storage.FS
	Metrics *metrics.Metrics
	Logger  *zap.Logger

	closeLedger func() error
}

// Options: необязательные зависимости.
type Options struct {
	Logger    *zap.Logger
	Registry  prometheus.Registerer
	Converter contract.Converter
	Observer  func(batch.State)
}

// New собирает сервис для профиля (пустое имя означает профиль по умолчанию).
func New(cfg *config.Config, profile string, opts Options) (*App, error) {
	r, err := cfg.Resolve(profile)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("profile", r.Name))
	for _, w := range r.Warnings() {
		logger.Warn("profile warning", zap.String("warning", w))
	}
	m := metrics.New(opts.Registry)

	conv := opts.Converter
	if conv == nil && r.NeedsConverter() {
		soffice, err := convert.NewSoffice(cfg.Converter.Binary, r.Timeout, logger)
		if err != nil {
			return nil, err
		}
		conv = &convert.Timed{
			Next:     &convert.Retrying{Next: soffice, Attempts: r.Attempts, Logger: logger},
			Observer: m.ConversionDuration,
		}
	}

	strategy := pack.Strategy(r.Output)
	packager, err := pack.New(strategy, pack.Options{Converter: conv, ArchiveFormat: r.ArchiveFormat})
	if err != nil {
		return nil, err
	}

	store, err := storage.NewFS(r.OutputDir)
	if err != nil {
		return nil, err
	}

	led, closeLedger, err := OpenLedger(r.Ledger)
	if err != nil {
		return nil, err
	}

	svc, err := batch.New(batch.Options{
		TemplatePath:  r.Template,
		Delims:        r.Placeholders,
		Strategy:      strategy,
		Packager:      packager,
		Store:         store,
		Ledger:        led,
		Gate:          access.NewGate(r.Password),
		KeepDocuments: r.KeepDocuments,
		Logger:        logger,
		Metrics:       m,
		Observer:      opts.Observer,
	})
	if err != nil {
		_ = closeLedger()
		return nil, err
	}

	return &App{
		Config:      cfg,
		Profile:     r,
		Service:     svc,
		Ledger:      led,
		Store:       store,
		Metrics:     m,
		Logger:      logger,
		closeLedger: closeLedger,
	}, nil
}

// Close освобождает журнал.
func (a *App) Close() error {
	if a.closeLedger == nil {
		return nil
	}
	return a.closeLedger()
}

// Recipients читает таблицу сотрудников из конфигурации.
func (a *App) Recipients() ([]contract.Recipient, error) {
	return roster.Load(a.Config.Roster.Path, a.Config.Roster.Sheet, a.Config.Roster.Columns)
}

// OpenLedger открывает журнал по настройкам. Для backend none журнал nil.
func OpenLedger(cfg config.LedgerConfig) (ledger.Ledger, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case "none":
		return nil, noop, nil
	case "xlsx", "":
		return ledger.NewXLSX(cfg.Path), noop, nil
	case "sqlite":
		db, err := ledger.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	}
	return nil, nil, fmt.Errorf("ledger.backend: %q", cfg.Backend)
}
