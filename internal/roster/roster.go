// Package roster читает список сотрудников из книги Excel.
package roster

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Navl-bm/go-oficios/internal/contract"
	"github.com/Navl-bm/go-oficios/internal/fields"
)

// Columns: названия столбцов в листе.
type Columns struct {
	Nombre          string `yaml:"nombre"`
	ApellidoPaterno string `yaml:"apellido_paterno"`
	ApellidoMaterno string `yaml:"apellido_materno"`
	RFC             string `yaml:"rfc"`
}

// DefaultColumns: заголовки плантильи.
var DefaultColumns = Columns{
	Nombre:          "NOMBRE",
	ApellidoPaterno: "APELLIDO PATERNO",
	ApellidoMaterno: "APELLIDO MATERNO",
	RFC:             "RFC",
}

// Load читает первый лист (или sheet) книги path.
func Load(path, sheet string, cols Columns) ([]contract.Recipient, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, contract.Errorf(contract.ErrIO, err, "%s", path)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, contract.Errorf(contract.ErrIO, err, "%s: лист %q", path, sheet)
	}
	return Parse(rows, cols)
}

// Parse разбирает строки листа: первая строка, в которой найдены все
// столбцы, считается заголовком. Пустые строки пропускаются. Неполные
// строки остаются в списке: ошибкой они становятся, только если их
// выбрали (см. Problems).
func Parse(rows [][]string, cols Columns) ([]contract.Recipient, error) {
	want := []string{cols.Nombre, cols.ApellidoPaterno, cols.ApellidoMaterno, cols.RFC}

	headerRow, idx := -1, []int(nil)
	for i, row := range rows {
		if found := locate(row, want); found != nil {
			headerRow, idx = i, found
			break
		}
	}
	if headerRow < 0 {
		return nil, contract.Errorf(contract.ErrValidation, nil, "не найдены столбцы %s", strings.Join(want, ", "))
	}

	var out []contract.Recipient
	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		cell := func(j int) string {
			if idx[j] < len(row) {
				return strings.TrimSpace(row[idx[j]])
			}
			return ""
		}
		r := contract.Recipient{
			Nombre:          cell(0),
			ApellidoPaterno: cell(1),
			ApellidoMaterno: cell(2),
			RFC:             strings.ToUpper(cell(3)),
			Row:             i + 1,
		}
		if r == (contract.Recipient{Row: i + 1}) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Problems возвращает описания неполных строк списка.
func Problems(all []contract.Recipient) []string {
	var out []string
	for _, r := range all {
		if err := fields.ValidateRecipient(r); err != nil {
			out = append(out, err.Error())
		}
	}
	return out
}

func locate(row []string, want []string) []int {
	pos := make(map[string]int, len(row))
	for i, c := range row {
		k := normalize(c)
		if _, dup := pos[k]; !dup {
			pos[k] = i
		}
	}
	idx := make([]int, len(want))
	for j, w := range want {
		i, ok := pos[normalize(w)]
		if !ok {
			return nil
		}
		idx[j] = i
	}
	return idx
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalize: без регистра, диакритики и лишних пробелов.
func normalize(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	return strings.ToUpper(strings.Join(strings.Fields(out), " "))
}

// Select возвращает получателей с указанными RFC в порядке выбора.
func Select(all []contract.Recipient, rfcs []string) ([]contract.Recipient, error) {
	byRFC := make(map[string]contract.Recipient, len(all))
	for _, r := range all {
		if r.RFC != "" {
			byRFC[strings.ToUpper(r.RFC)] = r
		}
	}
	out := make([]contract.Recipient, 0, len(rfcs))
	var unknown []string
	for _, rfc := range rfcs {
		r, ok := byRFC[strings.ToUpper(strings.TrimSpace(rfc))]
		if !ok {
			unknown = append(unknown, rfc)
			continue
		}
		out = append(out, r)
	}
	if len(unknown) > 0 {
		return nil, contract.Errorf(contract.ErrValidation, nil, "RFC не найдены: %s", strings.Join(unknown, ", "))
	}
	return out, nil
}

// Labels возвращает подписи «RFC  имя» для списка выбора.
func Labels(all []contract.Recipient) []string {
	out := make([]string, len(all))
	for i, r := range all {
		out[i] = fmt.Sprintf("%s  %s", r.RFC, r.FullName())
	}
	return out
}
