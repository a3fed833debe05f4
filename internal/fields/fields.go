// Package fields превращает строку таблицы и общие параметры партии
// в набор значений для плейсхолдеров.
package fields

import (
	"fmt"
	"strings"
	"time"

	"github.com/Navl-bm/go-oficios/internal/contract"
)

// Ключи плейсхолдеров. Набор фиксирован.
const (
	NumeroOficio    = "numero_oficio"
	Nombre          = "nombre"
	ApellidoPaterno = "apellido_paterno"
	ApellidoMaterno = "apellido_materno"
	RFC             = "rfc"
	Sede            = "sede"
	Ubicacion       = "ubicacion"
	Fecha           = "fecha"
	Horario         = "horario"
	FechaEmision    = "fecha_emision"
	Comision        = "comision"
)

// Keys: полный набор ключей в порядке объявления.
var Keys = []string{
	NumeroOficio, Nombre, ApellidoPaterno, ApellidoMaterno, RFC,
	Sede, Ubicacion, Fecha, Horario, FechaEmision, Comision,
}

var months = [12]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// FormatDate: 15 de enero del 2025.
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d de %s del %d", t.Day(), months[t.Month()-1], t.Year())
}

// ValidateShared проверяет общие параметры партии. Все пропуски
// перечисляются в одной ошибке.
func ValidateShared(s contract.Shared) error {
	var missing []string
	check := func(key, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, key)
		}
	}
	check(NumeroOficio, s.NumeroOficio)
	check(Sede, s.Sede)
	check(Ubicacion, s.Ubicacion)
	if s.FechaComision.IsZero() {
		missing = append(missing, Fecha)
	}
	check(Horario, s.Horario)
	if s.FechaEmision.IsZero() {
		missing = append(missing, FechaEmision)
	}
	check(Comision, s.Comision)

	if len(missing) > 0 {
		return contract.Errorf(contract.ErrValidation, nil, "не заполнены поля: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ValidateRecipient проверяет обязательные атрибуты строки.
func ValidateRecipient(r contract.Recipient) error {
	var missing []string
	for _, f := range []struct{ key, v string }{
		{Nombre, r.Nombre},
		{ApellidoPaterno, r.ApellidoPaterno},
		{ApellidoMaterno, r.ApellidoMaterno},
		{RFC, r.RFC},
	} {
		if strings.TrimSpace(f.v) == "" {
			missing = append(missing, f.key)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	who := r.RFC
	if who == "" {
		who = r.FullName()
	}
	if r.Row > 0 {
		who = fmt.Sprintf("%s (fila %d)", who, r.Row)
	}
	return contract.Errorf(contract.ErrValidation, nil, "%s: не заполнены поля: %s", who, strings.Join(missing, ", "))
}

// Resolve возвращает значения всех ключей для одного получателя.
func Resolve(r contract.Recipient, s contract.Shared) (contract.FieldMapping, error) {
	if err := ValidateShared(s); err != nil {
		return nil, err
	}
	if err := ValidateRecipient(r); err != nil {
		return nil, err
	}
	return contract.FieldMapping{
		NumeroOficio:    strings.TrimSpace(s.NumeroOficio),
		Nombre:          strings.TrimSpace(r.Nombre),
		ApellidoPaterno: strings.TrimSpace(r.ApellidoPaterno),
		ApellidoMaterno: strings.TrimSpace(r.ApellidoMaterno),
		RFC:             strings.TrimSpace(r.RFC),
		Sede:            strings.TrimSpace(s.Sede),
		Ubicacion:       strings.TrimSpace(s.Ubicacion),
		Fecha:           FormatDate(s.FechaComision),
		Horario:         strings.TrimSpace(s.Horario),
		FechaEmision:    FormatDate(s.FechaEmision),
		Comision:        strings.TrimSpace(s.Comision),
	}, nil
}
