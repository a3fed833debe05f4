// Package batch запускает партию: проверка входных данных, заполнение
// шаблона для каждого получателя, упаковка результата и запись в журнал.
//
// Партия выполняется синхронно, одна за раз. Первая ошибка прерывает
// партию; файлы, записанные до нее, остаются на месте (см. PartialError).
package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/Navl-bm/go-oficios/docx"
	"github.com/Navl-bm/go-oficios/internal/access"
	"github.com/Navl-bm/go-oficios/internal/contract"
	"github.com/Navl-bm/go-oficios/internal/fields"
	"github.com/Navl-bm/go-oficios/internal/ledger"
	"github.com/Navl-bm/go-oficios/internal/metrics"
	"github.com/Navl-bm/go-oficios/internal/pack"
)

// Options: зависимости сервиса.
type Options struct {
	// TemplatePath: .docx с плейсхолдерами, читается в начале каждой партии.
	TemplatePath string
	Delims       docx.Delims
	Strategy     pack.Strategy
	Packager     pack.Packager
	Store        contract.Store
	// Ledger может быть nil, тогда журнал не ведется.
	Ledger ledger.Ledger
	Gate   *access.Gate
	// KeepDocuments сохраняет каждый документ как oficio_<rfc>.docx.
	KeepDocuments bool

	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Now      func() time.Time
	NewID    func() string
	Observer func(State)
}

// Request описывает одну партию.
type Request struct {
	Recipients []contract.Recipient
	Shared     contract.Shared
	Password   string
	Operator   string
}

// Document: заполненный документ одного получателя.
type Document struct {
	Recipient contract.Recipient
	Fields    contract.FieldMapping
	Doc       *docx.Document
}

// Result: итог партии.
type Result struct {
	BatchID   string
	StartedAt time.Time
	Documents []Document
	// Artifact: имя итогового файла в хранилище, Data: его содержимое.
	Artifact string
	Data     []byte
	// Written: все записанные файлы по порядку (документы и итоговый файл).
	Written []string
	// Warnings: плейсхолдеры, оставшиеся в документах без значения.
	Warnings []string
	Ledger   []ledger.Entry
	// LedgerErr: ошибка журнала. Документы при этом уже готовы.
	LedgerErr error
}

// Service выполняет партии по одной.
type Service struct {
	opts Options
	sem  *semaphore.Weighted
}

// New проверяет зависимости и создает сервис.
func New(opts Options) (*Service, error) {
	if strings.TrimSpace(opts.TemplatePath) == "" {
		return nil, errors.New("batch: не задан шаблон")
	}
	if opts.Packager == nil {
		return nil, errors.New("batch: не задан упаковщик")
	}
	if opts.Store == nil {
		return nil, errors.New("batch: не задано хранилище")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Strategy == "" {
		opts.Strategy = pack.StrategyDocx
	}
	return &Service{opts: opts, sem: semaphore.NewWeighted(1)}, nil
}

// Authorize проверяет пароль без запуска партии.
func (s *Service) Authorize(password string) error {
	return s.opts.Gate.Check(password)
}

// Run выполняет партию целиком.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	start := s.opts.Now()
	res := &Result{BatchID: s.opts.NewID(), StartedAt: start}
	log := s.opts.Logger.With(zap.String("batch_id", res.BatchID), zap.String("strategy", string(s.opts.Strategy)))

	err := s.run(ctx, req, res, log)
	s.opts.Metrics.ObserveBatch(string(s.opts.Strategy), string(contract.Classify(err)), s.opts.Now().Sub(start))
	if err != nil {
		log.Error("batch failed",
			zap.String("code", string(contract.Classify(err))),
			zap.Strings("written", res.Written),
			zap.Error(err))
		if len(res.Written) > 0 {
			err = &PartialError{Written: res.Written, Err: err}
		}
		return res, err
	}

	log.Info("batch finished",
		zap.Int("documents", len(res.Documents)),
		zap.String("artifact", res.Artifact),
		zap.Duration("took", s.opts.Now().Sub(start)))
	return res, nil
}

func (s *Service) run(ctx context.Context, req Request, res *Result, log *zap.Logger) (err error) {
	m := &machine{observer: s.opts.Observer}
	defer func() {
		if err != nil && !m.state.IsTerminal() && m.state != StateIdle {
			_ = m.to(StateFailed)
		}
	}()

	if err := s.opts.Gate.Check(req.Password); err != nil {
		return err
	}

	// Validating: до любого ввода-вывода
	if err := m.to(StateValidating); err != nil {
		return err
	}
	if err := Validate(req); err != nil {
		return err
	}
	if s.opts.Strategy == pack.StrategySingle && len(req.Recipients) != 1 {
		return contract.Errorf(contract.ErrValidation, nil, "ожидался один получатель, выбрано %d", len(req.Recipients))
	}

	tpl, err := docx.OpenTemplate(s.opts.TemplatePath)
	if err != nil {
		return contract.Errorf(contract.ErrTemplateLoad, err, "%s", s.opts.TemplatePath)
	}
	log.Info("batch started", zap.Int("recipients", len(req.Recipients)), zap.String("template", s.opts.TemplatePath))

	// Generating: строго в порядке выбора
	items := make([]pack.Item, 0, len(req.Recipients))
	for i, r := range req.Recipients {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.to(StateGenerating); err != nil {
			return err
		}

		doc, err := s.generate(ctx, tpl, r, req.Shared, res)
		if err != nil {
			return err
		}
		res.Documents = append(res.Documents, doc)
		items = append(items, pack.Item{RFC: r.RFC, Document: doc.Doc})
		log.Debug("document generated", zap.Int("index", i+1), zap.String("rfc", r.RFC))
	}
	if s.opts.Metrics != nil {
		s.opts.Metrics.DocumentsTotal.Add(float64(len(items)))
	}
	if s.opts.Strategy == pack.StrategyDocx {
		docs := make([]*docx.Document, len(items))
		for i, it := range items {
			docs[i] = it.Document
		}
		for _, name := range docx.DivergentHeaders(docs...) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: колонтитул различается у получателей, в общем документе останется вариант %s", name, req.Recipients[0].RFC))
			log.Warn("header differs between recipients", zap.String("part", name))
		}
	}

	if err := m.to(StateCollected); err != nil {
		return err
	}
	if err := m.to(StatePackaging); err != nil {
		return err
	}

	art, err := s.opts.Packager.Pack(ctx, items)
	if err != nil {
		return err
	}
	res.Artifact = ArtifactName(s.opts.Strategy, req, art.Ext)
	res.Data = art.Data
	if err := s.opts.Store.Write(ctx, res.Artifact, bytes.NewReader(art.Data)); err != nil {
		return err
	}
	res.Written = append(res.Written, res.Artifact)

	// Журнал пишется после документов; его ошибка партию не отменяет
	if s.opts.Ledger != nil {
		entries := make([]ledger.Entry, len(res.Documents))
		for i, d := range res.Documents {
			entries[i] = ledger.FromFields(res.BatchID, req.Operator, res.StartedAt, d.Fields)
		}
		added, lerr := s.opts.Ledger.Append(ctx, entries)
		if lerr != nil {
			if !errors.Is(lerr, contract.ErrLedgerWrite) {
				lerr = contract.Errorf(contract.ErrLedgerWrite, lerr, "")
			}
			res.LedgerErr = lerr
			log.Warn("ledger not updated", zap.Error(lerr))
		} else {
			res.Ledger = added
			if s.opts.Metrics != nil {
				s.opts.Metrics.LedgerRowsTotal.Add(float64(len(added)))
			}
		}
	}

	return m.to(StateDone)
}

func (s *Service) generate(ctx context.Context, tpl *docx.Template, r contract.Recipient, shared contract.Shared, res *Result) (Document, error) {
	mapping, err := fields.Resolve(r, shared)
	if err != nil {
		return Document{}, err
	}
	doc, err := tpl.Fill(mapping, s.opts.Delims)
	if err != nil {
		return Document{}, contract.Errorf(contract.ErrTemplateLoad, err, "%s", s.opts.TemplatePath)
	}
	for _, p := range doc.Placeholders(s.opts.Delims) {
		w := fmt.Sprintf("%s: плейсхолдер %s без значения", r.RFC, s.opts.Delims.Token(p))
		if !contains(res.Warnings, w) {
			res.Warnings = append(res.Warnings, w)
		}
	}

	if s.opts.KeepDocuments {
		data, err := doc.Bytes()
		if err != nil {
			return Document{}, contract.Errorf(contract.ErrIO, err, "RFC %s", r.RFC)
		}
		name := pack.EntryName(r.RFC, "docx")
		if err := s.opts.Store.Write(ctx, name, bytes.NewReader(data)); err != nil {
			return Document{}, err
		}
		res.Written = append(res.Written, name)
	}
	return Document{Recipient: r, Fields: mapping, Doc: doc}, nil
}

// Validate проверяет запрос целиком до начала работы: общие поля, пустой
// выбор, обязательные поля получателей и повторяющиеся RFC.
func Validate(req Request) error {
	var problems []string
	if err := fields.ValidateShared(req.Shared); err != nil {
		problems = append(problems, subject(err))
	}
	if len(req.Recipients) == 0 {
		problems = append(problems, "не выбран ни один получатель")
	}
	seen := make(map[string]bool, len(req.Recipients))
	for _, r := range req.Recipients {
		if err := fields.ValidateRecipient(r); err != nil {
			problems = append(problems, subject(err))
			continue
		}
		key := strings.ToUpper(strings.TrimSpace(r.RFC))
		if seen[key] {
			problems = append(problems, "RFC повторяется: "+r.RFC)
		}
		seen[key] = true
	}
	if len(problems) > 0 {
		return contract.Errorf(contract.ErrValidation, nil, "%s", strings.Join(problems, "; "))
	}
	return nil
}

func subject(err error) string {
	var ce *contract.Error
	if errors.As(err, &ce) {
		return ce.Subject
	}
	return err.Error()
}

// ArtifactName возвращает имя итогового файла: oficios_<numero_oficio>.<ext>,
// для одиночного документа oficio_<rfc>.docx.
func ArtifactName(strategy pack.Strategy, req Request, ext string) string {
	if strategy == pack.StrategySingle && len(req.Recipients) == 1 {
		return pack.EntryName(req.Recipients[0].RFC, ext)
	}
	num := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, strings.TrimSpace(req.Shared.NumeroOficio))
	return "oficios_" + num + "." + ext
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
