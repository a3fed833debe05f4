package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Navl-bm/go-oficios/internal/contract"
)

// SQLite хранит журнал в базе SQLite. Номера присваиваются внутри
// транзакции, поэтому параллельные партии не конфликтуют.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite открывает или создает базу журнала.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(dir(path), 0o755); err != nil {
		return nil, contract.Errorf(contract.ErrLedgerWrite, err, "%s", path)
	}
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, contract.Errorf(contract.ErrLedgerWrite, err, "%s", path)
	}
	s := &SQLite{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, contract.Errorf(contract.ErrLedgerWrite, err, "%s", path)
	}
	return s, nil
}

// Close закрывает базу.
func (s *SQLite) Close() error {
	return s.db.Close()
}

var _ Ledger = (*SQLite)(nil)

func (s *SQLite) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS registro (
		seq INTEGER PRIMARY KEY,
		registered_at TEXT NOT NULL,
		batch_id TEXT NOT NULL,
		numero_oficio TEXT NOT NULL,
		nombre TEXT NOT NULL,
		apellido_paterno TEXT NOT NULL,
		apellido_materno TEXT NOT NULL,
		rfc TEXT NOT NULL,
		sede TEXT NOT NULL,
		ubicacion TEXT NOT NULL,
		fecha_comision TEXT NOT NULL,
		horario TEXT NOT NULL,
		comision TEXT NOT NULL,
		fecha_emision TEXT NOT NULL,
		operador TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_registro_rfc ON registro(rfc);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLite) Append(ctx context.Context, entries []Entry) ([]Entry, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, contract.Errorf(contract.ErrLedgerWrite, err, "%s", s.path)
	}
	defer tx.Rollback()

	var existing int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM registro`).Scan(&existing); err != nil {
		return nil, contract.Errorf(contract.ErrLedgerWrite, err, "%s", s.path)
	}
	added := assign(existing, entries)

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO registro (
		seq, registered_at, batch_id, numero_oficio, nombre, apellido_paterno,
		apellido_materno, rfc, sede, ubicacion, fecha_comision, horario,
		comision, fecha_emision, operador
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, contract.Errorf(contract.ErrLedgerWrite, err, "%s", s.path)
	}
	defer stmt.Close()

	for _, e := range added {
		if _, err := stmt.ExecContext(ctx, e.values()...); err != nil {
			return nil, contract.Errorf(contract.ErrLedgerWrite, err, "запись %d", e.Seq)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, contract.Errorf(contract.ErrLedgerWrite, err, "%s", s.path)
	}
	return added, nil
}

func (s *SQLite) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT seq, registered_at, batch_id, numero_oficio,
		nombre, apellido_paterno, apellido_materno, rfc, sede, ubicacion,
		fecha_comision, horario, comision, fecha_emision, operador
		FROM registro ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("ledger query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.Seq, &at, &e.BatchID, &e.NumeroOficio, &e.Nombre,
			&e.ApellidoPaterno, &e.ApellidoMaterno, &e.RFC, &e.Sede, &e.Ubicacion,
			&e.FechaComision, &e.Horario, &e.Comision, &e.FechaEmision, &e.Operador); err != nil {
			return nil, fmt.Errorf("ledger scan: %w", err)
		}
		e.RegisteredAt, _ = time.ParseInLocation(timeLayout, at, time.Local)
		out = append(out, e)
	}
	return out, rows.Err()
}

func dir(path string) string {
	return filepath.Dir(path)
}
