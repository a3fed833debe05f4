package main

import (
	"fmt"
	"time"

	"github.com/Navl-bm/go-oficios/docx"
	"github.com/Navl-bm/go-oficios/internal/contract"
	"github.com/Navl-bm/go-oficios/internal/fields"
)

// Пример: один официос без таблицы и журнала
func main() {
	mapping, err := fields.Resolve(
		contract.Recipient{Nombre: "Ana", ApellidoPaterno: "Lopez", ApellidoMaterno: "Ruiz", RFC: "AAA010101XXX"},
		contract.Shared{
			NumeroOficio:  "001/2025",
			Sede:          "Oaxaca",
			Ubicacion:     "Centro",
			FechaComision: time.Date(2025, 1, 15, 0, 0, 0, 0, time.Local),
			Horario:       "9:00 a 14:00",
			FechaEmision:  time.Now(),
			Comision:      "Supervision escolar\nZona 3",
		},
	)
	if err != nil {
		fmt.Println("Ошибка:", err)
		return
	}

	if err := docx.FillFile("template.docx", "oficio_AAA010101XXX.docx", mapping, docx.DefaultDelims); err != nil {
		fmt.Println("Ошибка:", err)
	} else {
		fmt.Println("Создан документ: oficio_AAA010101XXX.docx")
	}
}
