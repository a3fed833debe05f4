package docx

import "sort"

// Delims задает обрамление плейсхолдера. Пустые Left и Right означают
// «голые» слова, как в старых шаблонах (fecha, nombre).
//
// В голом режиме вставленный текст не перечитывается в том же проходе, но
// следующий проход более короткого ключа видит его как обычный текст:
// comision «visita a la sede» при sede «Oaxaca» дает «visita a la Oaxaca».
// Значения, содержащие имена других ключей, требуют обрамления.
type Delims struct {
	Left  string `yaml:"left"`
	Right string `yaml:"right"`
}

// DefaultDelims задает вид {{nombre}}.
var DefaultDelims = Delims{Left: "{{", Right: "}}"}

// Bare сообщает, что плейсхолдеры не обрамлены.
func (d Delims) Bare() bool {
	return d.Left == "" && d.Right == ""
}

// Token возвращает текст плейсхолдера для ключа.
func (d Delims) Token(key string) string {
	return d.Left + key + d.Right
}

// SortKeys задает порядок проходов: сначала длинные плейсхолдеры, при равной
// длине по алфавиту. Так fecha_emision заменяется раньше fecha и
// не портится при голых плейсхолдерах.
func SortKeys(fields map[string]string, d Delims) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		ti, tj := d.Token(keys[i]), d.Token(keys[j])
		if len(ti) != len(tj) {
			return len(ti) > len(tj)
		}
		return keys[i] < keys[j]
	})
	return keys
}
