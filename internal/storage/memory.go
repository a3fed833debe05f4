package storage

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/Navl-bm/go-oficios/internal/contract"
)

// Memory хранит файлы в памяти. Err, если задана, возвращается при записи
// файла с именем FailOn (или любого файла, если FailOn пусто).
type Memory struct {
	mu     sync.Mutex
	files  map[string][]byte
	order  []string
	Err    error
	FailOn string
}

// NewMemory создает пустое хранилище.
func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte)}
}

var _ contract.Store = (*Memory)(nil)

func (m *Memory) Write(ctx context.Context, name string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.Err != nil && (m.FailOn == "" || m.FailOn == name) {
		return contract.Errorf(contract.ErrIO, m.Err, "%s", name)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return contract.Errorf(contract.ErrIO, err, "%s", name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[name]; !ok {
		m.order = append(m.order, name)
	}
	m.files[name] = data
	return nil
}

// Get возвращает содержимое файла.
func (m *Memory) Get(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[name]
	return b, ok
}

// Names возвращает имена файлов по алфавиту.
func (m *Memory) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.order...)
	sort.Strings(out)
	return out
}
