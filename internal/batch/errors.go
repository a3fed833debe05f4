package batch

import (
	"fmt"
	"strings"
)

// PartialError: партия прервана после записи части файлов. Записанные
// файлы не удаляются: их нужно убрать вручную или перезапустить партию.
type PartialError struct {
	Written []string
	Err     error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("%v (уже записаны и не удалены: %s)", e.Err, strings.Join(e.Written, ", "))
}

func (e *PartialError) Unwrap() error { return e.Err }
