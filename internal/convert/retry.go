package convert

import (
	"context"

	"go.uber.org/zap"

	"github.com/Navl-bm/go-oficios/internal/contract"
)

// Retrying повторяет неудачную конвертацию не более Attempts раз.
// Повторы есть только здесь: остальные шаги партии не повторяются.
type Retrying struct {
	Next     contract.Converter
	Attempts int
	Logger   *zap.Logger
}

var _ contract.Converter = (*Retrying)(nil)

func (r *Retrying) Convert(ctx context.Context, name string, docx []byte) ([]byte, error) {
	attempts := max(r.Attempts, 1)
	var err error
	for i := 1; i <= attempts; i++ {
		var pdf []byte
		pdf, err = r.Next.Convert(ctx, name, docx)
		if err == nil {
			return pdf, nil
		}
		if ctx.Err() != nil {
			break
		}
		if r.Logger != nil && i < attempts {
			r.Logger.Warn("conversion failed, retrying",
				zap.String("document", name),
				zap.Int("attempt", i),
				zap.Error(err))
		}
	}
	return nil, err
}
