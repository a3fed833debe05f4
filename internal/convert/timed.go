package convert

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Navl-bm/go-oficios/internal/contract"
)

// Timed записывает длительность каждой конвертации в Observer.
type Timed struct {
	Next     contract.Converter
	Observer prometheus.Observer
}

var _ contract.Converter = (*Timed)(nil)

func (t *Timed) Convert(ctx context.Context, name string, docx []byte) ([]byte, error) {
	if t.Observer == nil {
		return t.Next.Convert(ctx, name, docx)
	}
	timer := prometheus.NewTimer(t.Observer)
	defer timer.ObserveDuration()
	return t.Next.Convert(ctx, name, docx)
}
