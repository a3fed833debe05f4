package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/Navl-bm/go-oficios/internal/app"
)

var ledgerLast int

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Показать журнал выданных официосов",
	RunE: func(cmd *cobra.Command, args []string) error {
		lc, err := cfg.LedgerFor(profileName)
		if err != nil {
			return err
		}
		l, closeFn, err := app.OpenLedger(lc)
		if err != nil {
			return err
		}
		defer closeFn()

		out := cmd.OutOrStdout()
		if l == nil {
			fmt.Fprintln(out, mutedStyle.Render("Журнал отключен в профиле"))
			return nil
		}
		entries, err := l.Entries(context.Background())
		if err != nil {
			return err
		}
		if ledgerLast > 0 && len(entries) > ledgerLast {
			entries = entries[len(entries)-ledgerLast:]
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(mutedStyle).
			Headers("No.", "Fecha", "Lote", "Oficio", "RFC", "Nombre", "Operador")
		for _, e := range entries {
			t.Row(
				strconv.Itoa(e.Seq),
				e.RegisteredAt.Format("2006-01-02 15:04"),
				shortID(e.BatchID),
				e.NumeroOficio,
				e.RFC,
				e.Nombre+" "+e.ApellidoPaterno+" "+e.ApellidoMaterno,
				e.Operador,
			)
		}
		fmt.Fprintln(out, t.Render())
		return nil
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	ledgerCmd.Flags().IntVarP(&ledgerLast, "last", "n", 20, "Сколько последних записей показать (0 = все)")
}
