package ledger

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/xuri/excelize/v2"

	"github.com/Navl-bm/go-oficios/internal/contract"
	"github.com/Navl-bm/go-oficios/internal/storage"
)

// SheetName: лист журнала в новых файлах.
const SheetName = "Registro"

// XLSX хранит журнал в книге Excel. Файл перезаписывается целиком
// (через временный файл), а чтение-изменение-запись выполняется под
// файловой блокировкой <path>.lock, чтобы параллельные партии не теряли строки.
type XLSX struct {
	path      string
	lockDelay time.Duration
}

// NewXLSX создает журнал; файл появится при первой записи.
func NewXLSX(path string) *XLSX {
	return &XLSX{path: path, lockDelay: 50 * time.Millisecond}
}

var _ Ledger = (*XLSX)(nil)

// Path возвращает путь к книге.
func (x *XLSX) Path() string { return x.path }

func (x *XLSX) Append(ctx context.Context, entries []Entry) ([]Entry, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	unlock, err := x.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	f, sheet, err := x.open(true)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, contract.Errorf(contract.ErrLedgerWrite, err, "%s", x.path)
	}
	existing := max(len(rows)-1, 0)
	added := assign(existing, entries)

	next := max(len(rows), 1) + 1
	for i, e := range added {
		cell, err := excelize.CoordinatesToCellName(1, next+i)
		if err != nil {
			return nil, contract.Errorf(contract.ErrLedgerWrite, err, "%s", x.path)
		}
		values := e.values()
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, contract.Errorf(contract.ErrLedgerWrite, err, "%s", x.path)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, contract.Errorf(contract.ErrLedgerWrite, err, "%s", x.path)
	}
	if err := storage.WriteFileAtomic(ctx, x.path, buf); err != nil {
		return nil, contract.Errorf(contract.ErrLedgerWrite, err, "%s", x.path)
	}
	return added, nil
}

func (x *XLSX) Entries(ctx context.Context) ([]Entry, error) {
	f, sheet, err := x.open(false)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, nil
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, contract.Errorf(contract.ErrLedgerWrite, err, "%s", x.path)
	}
	var out []Entry
	for i, row := range rows {
		if i == 0 {
			continue
		}
		out = append(out, entryFromRow(row))
	}
	return out, nil
}

// open загружает книгу или, если create и файла нет, создает пустую
// с заголовком. Без create для отсутствующего файла возвращает nil.
func (x *XLSX) open(create bool) (*excelize.File, string, error) {
	f, err := excelize.OpenFile(x.path)
	if err == nil {
		return f, f.GetSheetName(0), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, "", contract.Errorf(contract.ErrLedgerWrite, err, "%s", x.path)
	}
	if !create {
		return nil, "", nil
	}

	f = excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		f.Close()
		return nil, "", contract.Errorf(contract.ErrLedgerWrite, err, "%s", x.path)
	}
	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		f.Close()
		return nil, "", contract.Errorf(contract.ErrLedgerWrite, err, "%s", x.path)
	}
	return f, SheetName, nil
}

func (x *XLSX) lock(ctx context.Context) (func(), error) {
	fl := flock.New(x.path + ".lock")
	if err := os.MkdirAll(dir(x.path), 0o755); err != nil {
		return nil, contract.Errorf(contract.ErrLedgerWrite, err, "%s", x.path)
	}
	ok, err := fl.TryLockContext(ctx, x.lockDelay)
	if err != nil || !ok {
		if err == nil {
			err = errors.New("lock not acquired")
		}
		return nil, contract.Errorf(contract.ErrLedgerWrite, err, "%s", x.path)
	}
	return func() { _ = fl.Unlock() }, nil
}
