// Package pack собирает документы партии в один итоговый файл:
// общий .docx, объединенный PDF или zip-архив.
package pack

import (
	"context"
	"fmt"
	"strings"

	"github.com/Navl-bm/go-oficios/docx"
	"github.com/Navl-bm/go-oficios/internal/contract"
)

// Strategy: способ упаковки, выбирается профилем.
type Strategy string

const (
	StrategyDocx   Strategy = "docx"
	StrategyPDF    Strategy = "pdf"
	StrategyZip    Strategy = "zip"
	StrategySingle Strategy = "single"
)

// Item: заполненный документ одного получателя.
type Item struct {
	RFC      string
	Document *docx.Document
}

// Artifact: итог упаковки.
type Artifact struct {
	Ext  string
	Data []byte
	// Entries: имена файлов внутри архива (только для zip).
	Entries []string
}

// Packager упаковывает документы в порядке items.
type Packager interface {
	Pack(ctx context.Context, items []Item) (*Artifact, error)
}

// EntryName: oficio_<rfc>.<ext>.
func EntryName(rfc, ext string) string {
	return "oficio_" + sanitize(rfc) + "." + ext
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
}

// Options: зависимости стратегий.
type Options struct {
	Converter contract.Converter
	Merger    Merger
	// ArchiveFormat: docx или pdf для записей архива.
	ArchiveFormat string
}

// New возвращает упаковщик для стратегии.
func New(s Strategy, opts Options) (Packager, error) {
	switch s {
	case StrategyDocx:
		return Concatenate{}, nil
	case StrategySingle:
		return Single{}, nil
	case StrategyPDF:
		if opts.Converter == nil {
			return nil, contract.Errorf(contract.ErrConversion, nil, "конвертер не настроен")
		}
		m := opts.Merger
		if m == nil {
			m = PDFCPU{}
		}
		return &ConvertMerge{Converter: opts.Converter, Merger: m}, nil
	case StrategyZip:
		a := &Archive{Format: opts.ArchiveFormat, Converter: opts.Converter}
		if a.Format == "" {
			a.Format = "docx"
		}
		if a.Format != "docx" && a.Format != "pdf" {
			return nil, fmt.Errorf("неизвестный формат архива %q", a.Format)
		}
		if a.Format == "pdf" && a.Converter == nil {
			return nil, contract.Errorf(contract.ErrConversion, nil, "конвертер не настроен")
		}
		return a, nil
	}
	return nil, fmt.Errorf("неизвестная стратегия %q", s)
}

// Concatenate склеивает документы через разрыв страницы.
type Concatenate struct{}

func (Concatenate) Pack(ctx context.Context, items []Item) (*Artifact, error) {
	if len(items) == 0 {
		return nil, contract.Errorf(contract.ErrValidation, nil, "нет документов")
	}
	docs := make([]*docx.Document, len(items))
	for i, it := range items {
		docs[i] = it.Document
	}
	out, err := docx.Concat(docs...)
	if err != nil {
		return nil, err
	}
	data, err := out.Bytes()
	if err != nil {
		return nil, contract.Errorf(contract.ErrIO, err, "упаковка docx")
	}
	return &Artifact{Ext: "docx", Data: data}, nil
}

// Single отдает единственный документ как есть.
type Single struct{}

func (Single) Pack(ctx context.Context, items []Item) (*Artifact, error) {
	if len(items) != 1 {
		return nil, contract.Errorf(contract.ErrValidation, nil, "ожидался один получатель, выбрано %d", len(items))
	}
	data, err := items[0].Document.Bytes()
	if err != nil {
		return nil, contract.Errorf(contract.ErrIO, err, "упаковка docx")
	}
	return &Artifact{Ext: "docx", Data: data}, nil
}

// convertItem конвертирует один документ; ошибка называет RFC.
func convertItem(ctx context.Context, c contract.Converter, it Item) ([]byte, error) {
	data, err := it.Document.Bytes()
	if err != nil {
		return nil, contract.Errorf(contract.ErrIO, err, "упаковка docx %s", it.RFC)
	}
	pdf, err := c.Convert(ctx, EntryName(it.RFC, "docx"), data)
	if err != nil {
		return nil, contract.Errorf(contract.ErrConversion, err, "RFC %s", it.RFC)
	}
	return pdf, nil
}
