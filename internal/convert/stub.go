package convert

import (
	"context"
	"sync"

	"github.com/Navl-bm/go-oficios/internal/contract"
)

// Stub: конвертер для тестов, возвращает Output(name, docx) или ошибку
// для документов из FailOn.
type Stub struct {
	Output func(name string, docx []byte) []byte
	FailOn map[string]error

	mu    sync.Mutex
	calls []string
}

var _ contract.Converter = (*Stub)(nil)

func (s *Stub) Convert(ctx context.Context, name string, docx []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.calls = append(s.calls, name)
	s.mu.Unlock()

	if err, ok := s.FailOn[name]; ok {
		return nil, contract.Errorf(contract.ErrConversion, err, "%s", name)
	}
	if s.Output != nil {
		return s.Output(name, docx), nil
	}
	return []byte("%PDF-stub " + name), nil
}

// Calls возвращает имена документов в порядке вызовов.
func (s *Stub) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}
