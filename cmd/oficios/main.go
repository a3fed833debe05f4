package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Navl-bm/go-oficios/internal/config"
	"github.com/Navl-bm/go-oficios/internal/logging"
)

var (
	// Глобальные флаги
	configPath  string
	profileName string
	verbose     bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "oficios",
	Short: "Генерация официосов о командировке из шаблона Word",
	Long: `oficios заполняет шаблон .docx данными сотрудников из таблицы Excel,
собирает результат (общий .docx, PDF или zip) и дописывает журнал выдачи.

Варианты вывода задаются профилями в oficios.yaml:
  oficios generate --profile pdf --rfc AAA010101XXX --numero 001 ...`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		lc := cfg.Logging
		if verbose {
			lc.Level = "debug"
			lc.Format = "console"
		}
		logger, err = logging.New(lc)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "oficios.yaml", "Файл конфигурации")
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "Профиль (по умолчанию из конфигурации)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Подробный журнал событий")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(recipientsCmd)
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Ошибка: "+err.Error()))
		os.Exit(1)
	}
}
