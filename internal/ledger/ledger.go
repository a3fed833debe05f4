// Package ledger ведет журнал выданных официосов. Журнал только
// дополняется: существующие строки не изменяются и не удаляются.
package ledger

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/Navl-bm/go-oficios/internal/contract"
	"github.com/Navl-bm/go-oficios/internal/fields"
)

// Columns: фиксированная схема журнала.
var Columns = []string{
	"No.",
	"Fecha de Registro",
	"Lote",
	"Numero de Oficio",
	"Nombre",
	"Apellido Paterno",
	"Apellido Materno",
	"RFC",
	"Sede",
	"Ubicacion",
	"Fecha de Comision",
	"Horario",
	"Comision",
	"Fecha de Emision",
	"Operador",
}

const timeLayout = "2006-01-02 15:04:05"

// Entry: одна строка журнала, один получатель одной партии.
type Entry struct {
	Seq             int
	RegisteredAt    time.Time
	BatchID         string
	NumeroOficio    string
	Nombre          string
	ApellidoPaterno string
	ApellidoMaterno string
	RFC             string
	Sede            string
	Ubicacion       string
	FechaComision   string
	Horario         string
	Comision        string
	FechaEmision    string
	Operador        string
}

// FromFields собирает запись из значений плейсхолдеров.
func FromFields(batchID, operator string, at time.Time, m contract.FieldMapping) Entry {
	return Entry{
		RegisteredAt:    at,
		BatchID:         batchID,
		NumeroOficio:    m[fields.NumeroOficio],
		Nombre:          m[fields.Nombre],
		ApellidoPaterno: m[fields.ApellidoPaterno],
		ApellidoMaterno: m[fields.ApellidoMaterno],
		RFC:             m[fields.RFC],
		Sede:            m[fields.Sede],
		Ubicacion:       m[fields.Ubicacion],
		FechaComision:   m[fields.Fecha],
		Horario:         m[fields.Horario],
		Comision:        m[fields.Comision],
		FechaEmision:    m[fields.FechaEmision],
		Operador:        operator,
	}
}

func (e Entry) values() []any {
	return []any{
		e.Seq,
		e.RegisteredAt.Format(timeLayout),
		e.BatchID,
		e.NumeroOficio,
		e.Nombre,
		e.ApellidoPaterno,
		e.ApellidoMaterno,
		e.RFC,
		e.Sede,
		e.Ubicacion,
		e.FechaComision,
		e.Horario,
		e.Comision,
		e.FechaEmision,
		e.Operador,
	}
}

func entryFromRow(row []string) Entry {
	get := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	seq, _ := strconv.Atoi(get(0))
	at, _ := time.ParseInLocation(timeLayout, get(1), time.Local)
	return Entry{
		Seq:             seq,
		RegisteredAt:    at,
		BatchID:         get(2),
		NumeroOficio:    get(3),
		Nombre:          get(4),
		ApellidoPaterno: get(5),
		ApellidoMaterno: get(6),
		RFC:             get(7),
		Sede:            get(8),
		Ubicacion:       get(9),
		FechaComision:   get(10),
		Horario:         get(11),
		Comision:        get(12),
		FechaEmision:    get(13),
		Operador:        get(14),
	}
}

// Ledger хранит журнал.
type Ledger interface {
	// Append дописывает записи, присваивая номера R+1..R+N, и возвращает их.
	Append(ctx context.Context, entries []Entry) ([]Entry, error)
	// Entries возвращает все записи по порядку.
	Entries(ctx context.Context) ([]Entry, error)
}

// assign нумерует новые записи после existing.
func assign(existing int, entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		e.Seq = existing + i + 1
		out[i] = e
	}
	return out
}

// Memory: журнал в памяти для тестов.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
	Err     error
}

var _ Ledger = (*Memory)(nil)

func (m *Memory) Append(ctx context.Context, entries []Entry) ([]Entry, error) {
	if m.Err != nil {
		return nil, contract.Errorf(contract.ErrLedgerWrite, m.Err, "memory")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	added := assign(len(m.entries), entries)
	m.entries = append(m.entries, added...)
	return added, nil
}

func (m *Memory) Entries(ctx context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...), nil
}
