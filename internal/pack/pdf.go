package pack

import (
	"bytes"
	"context"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Navl-bm/go-oficios/internal/contract"
)

// Merger объединяет PDF в указанном порядке.
type Merger interface {
	Merge(pdfs [][]byte) ([]byte, error)
}

// PDFCPU объединяет PDF библиотекой pdfcpu.
type PDFCPU struct{}

func (PDFCPU) Merge(pdfs [][]byte) ([]byte, error) {
	if len(pdfs) == 1 {
		return pdfs[0], nil
	}
	rs := make([]io.ReadSeeker, len(pdfs))
	for i, p := range pdfs {
		rs[i] = bytes.NewReader(p)
	}
	var out bytes.Buffer
	conf := model.NewDefaultConfiguration()
	if err := api.MergeRaw(rs, &out, false, conf); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// ConvertMerge конвертирует каждый документ и объединяет страницы.
// Первая же ошибка конвертации прерывает упаковку.
type ConvertMerge struct {
	Converter contract.Converter
	Merger    Merger
}

func (c *ConvertMerge) Pack(ctx context.Context, items []Item) (*Artifact, error) {
	if len(items) == 0 {
		return nil, contract.Errorf(contract.ErrValidation, nil, "нет документов")
	}
	pdfs := make([][]byte, 0, len(items))
	for _, it := range items {
		pdf, err := convertItem(ctx, c.Converter, it)
		if err != nil {
			return nil, err
		}
		pdfs = append(pdfs, pdf)
	}
	merged, err := c.Merger.Merge(pdfs)
	if err != nil {
		return nil, contract.Errorf(contract.ErrConversion, err, "объединение PDF")
	}
	return &Artifact{Ext: "pdf", Data: merged}, nil
}
