package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Navl-bm/go-oficios/internal/app"
	"github.com/Navl-bm/go-oficios/internal/batch"
	"github.com/Navl-bm/go-oficios/internal/contract"
	"github.com/Navl-bm/go-oficios/internal/roster"
)

const dateLayout = "2006-01-02"

type generateFlags struct {
	rfcs      []string
	numero    string
	sede      string
	ubicacion string
	fecha     string
	horario   string
	emision   string
	comision  string
	password  string
	operator  string
	metrics   string
}

var genFlags generateFlags

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Сформировать официосы для выбранных сотрудников",
	Long: `Заполняет шаблон для каждого RFC (в порядке указания), упаковывает
результат по профилю и дописывает журнал.

Пример:
  oficios generate -p zip --rfc AAA010101XXX --rfc BBB020202YYY \
    --numero 001 --sede Oaxaca --ubicacion Centro --fecha 2025-01-15 \
    --horario "9:00 a 14:00" --comision Supervision`,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringSliceVar(&genFlags.rfcs, "rfc", nil, "RFC сотрудника (можно несколько)")
	f.StringVar(&genFlags.numero, "numero", "", "Номер официоса")
	f.StringVar(&genFlags.sede, "sede", "", "Sede")
	f.StringVar(&genFlags.ubicacion, "ubicacion", "", "Ubicacion")
	f.StringVar(&genFlags.fecha, "fecha", "", "Дата командировки, YYYY-MM-DD")
	f.StringVar(&genFlags.horario, "horario", "", "Horario")
	f.StringVar(&genFlags.emision, "emision", "", "Дата выдачи, YYYY-MM-DD (по умолчанию сегодня)")
	f.StringVar(&genFlags.comision, "comision", "", "Описание командировки")
	f.StringVar(&genFlags.password, "password", "", "Пароль (или OFICIOS_RUN_PASSWORD)")
	f.StringVar(&genFlags.operator, "operator", "", "Кто выдает (по умолчанию $USER)")
	f.StringVar(&genFlags.metrics, "metrics-file", "", "Записать метрики партии в файл (формат textfile collector)")
	_ = generateCmd.MarkFlagRequired("rfc")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	shared, err := sharedFromFlags(time.Now())
	if err != nil {
		return err
	}

	opts := app.Options{
		Logger: logger,
		Observer: func(s batch.State) {
			logger.Debug("batch state", zap.String("state", s.String()))
		},
	}
	if genFlags.metrics != "" {
		reg := prometheus.NewRegistry()
		opts.Registry = reg
		defer func() {
			if err := prometheus.WriteToTextfile(genFlags.metrics, reg); err != nil {
				logger.Warn("metrics not written", zap.String("path", genFlags.metrics), zap.Error(err))
			}
		}()
	}

	a, err := app.New(cfg, profileName, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	password := genFlags.password
	if password == "" {
		password = os.Getenv("OFICIOS_RUN_PASSWORD")
	}
	// Пароль проверяется до чтения таблицы
	if err := a.Service.Authorize(password); err != nil {
		return err
	}

	all, err := a.Recipients()
	if err != nil {
		return err
	}
	sel, err := roster.Select(all, genFlags.rfcs)
	if err != nil {
		return err
	}
	// Неполные выбранные строки отклонит проверка партии
	for _, p := range roster.Problems(all) {
		logger.Warn("incomplete roster row", zap.String("problem", p))
	}

	operator := genFlags.operator
	if operator == "" {
		operator = os.Getenv("USER")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := a.Service.Run(ctx, batch.Request{
		Recipients: sel,
		Shared:     shared,
		Password:   password,
		Operator:   operator,
	})
	out := cmd.OutOrStdout()
	if err != nil {
		var perr *batch.PartialError
		if errors.As(err, &perr) {
			for _, name := range perr.Written {
				fmt.Fprintln(out, warningStyle.Render("  остался файл: "+name))
			}
		}
		return err
	}

	for _, w := range res.Warnings {
		fmt.Fprintln(out, warningStyle.Render("Предупреждение: "+w))
	}
	path, _ := a.Store.Path(res.Artifact)
	fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("Готово: %d официос(ов) → %s", len(res.Documents), path)))
	fmt.Fprintln(out, mutedStyle.Render("Лот "+res.BatchID))
	if res.LedgerErr != nil {
		fmt.Fprintln(out, warningStyle.Render("Журнал не обновлен: "+res.LedgerErr.Error()))
	} else if len(res.Ledger) > 0 {
		fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("Журнал: строки %d–%d", res.Ledger[0].Seq, res.Ledger[len(res.Ledger)-1].Seq)))
	}
	return nil
}

// sharedFromFlags разбирает общие параметры партии. Пустые поля
// отлавливает проверка партии; здесь только формат дат.
func sharedFromFlags(now time.Time) (contract.Shared, error) {
	s := contract.Shared{
		NumeroOficio: genFlags.numero,
		Sede:         genFlags.sede,
		Ubicacion:    genFlags.ubicacion,
		Horario:      genFlags.horario,
		Comision:     genFlags.comision,
		FechaEmision: now,
	}
	if v := strings.TrimSpace(genFlags.fecha); v != "" {
		d, err := time.ParseInLocation(dateLayout, v, time.Local)
		if err != nil {
			return s, contract.Errorf(contract.ErrValidation, err, "--fecha %q", v)
		}
		s.FechaComision = d
	}
	if v := strings.TrimSpace(genFlags.emision); v != "" {
		d, err := time.ParseInLocation(dateLayout, v, time.Local)
		if err != nil {
			return s, contract.Errorf(contract.ErrValidation, err, "--emision %q", v)
		}
		s.FechaEmision = d
	}
	return s, nil
}
