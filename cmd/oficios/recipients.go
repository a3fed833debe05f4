package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Navl-bm/go-oficios/internal/roster"
)

var recipientsCmd = &cobra.Command{
	Use:   "recipients",
	Short: "Список сотрудников из таблицы",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, err := roster.Load(cfg.Roster.Path, cfg.Roster.Sheet, cfg.Roster.Columns)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%s (%d)", cfg.Roster.Path, len(all))))
		for _, l := range roster.Labels(all) {
			fmt.Fprintln(out, l)
		}
		for _, p := range roster.Problems(all) {
			fmt.Fprintln(out, warningStyle.Render("Неполная строка: "+p))
		}
		return nil
	},
}
