// Package contract содержит общие типы и порты генератора официосов.
package contract

import (
	"context"
	"io"
	"strings"
	"time"
)

// Recipient: одна строка исходной таблицы сотрудников.
type Recipient struct {
	Nombre          string `json:"nombre" yaml:"nombre"`
	ApellidoPaterno string `json:"apellido_paterno" yaml:"apellido_paterno"`
	ApellidoMaterno string `json:"apellido_materno" yaml:"apellido_materno"`
	RFC             string `json:"rfc" yaml:"rfc"`
	// Row: номер строки в листе (1-based), 0 если получатель создан вручную.
	Row int `json:"row,omitempty" yaml:"-"`
}

// FullName возвращает подпись для списка выбора: имя и обе фамилии.
func (r Recipient) FullName() string {
	return strings.Join(strings.Fields(r.Nombre+" "+r.ApellidoPaterno+" "+r.ApellidoMaterno), " ")
}

// Shared содержит общие для всей партии параметры.
type Shared struct {
	NumeroOficio  string
	Sede          string
	Ubicacion     string
	FechaComision time.Time
	Horario       string
	FechaEmision  time.Time
	Comision      string
}

// FieldMapping: имя плейсхолдера → готовая строка.
type FieldMapping map[string]string

// Converter переводит .docx в PDF. Реализация синхронная, ошибки не скрывает.
type Converter interface {
	Convert(ctx context.Context, name string, docx []byte) ([]byte, error)
}

// Store сохраняет готовые файлы (папка вывода, память в тестах).
type Store interface {
	Write(ctx context.Context, name string, r io.Reader) error
}
