package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Navl-bm/go-oficios/internal/access"
	"github.com/Navl-bm/go-oficios/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Работа с файлом конфигурации",
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Записать конфигурацию по умолчанию",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil && !configInitForce {
			return fmt.Errorf("%s уже существует (используйте --force)", configPath)
		}
		if err := config.DefaultConfig().Save(configPath); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Создан "+configPath))
		return nil
	},
}

var configProfilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Список профилей",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, name := range cfg.ProfileNames() {
			p := cfg.Profiles[name]
			line := fmt.Sprintf("%-10s output=%s", name, p.Output)
			if p.ArchiveFormat != "" {
				line += " archive=" + p.ArchiveFormat
			}
			if p.RequirePassword {
				line += " пароль"
			}
			if name == cfg.Profile {
				line = successStyle.Render(line + " (по умолчанию)")
			}
			fmt.Fprintln(out, line)
			if _, err := cfg.Resolve(name); err != nil {
				fmt.Fprintln(out, warningStyle.Render("  "+err.Error()))
			}
		}
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Получить bcrypt-хеш пароля для поля password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := access.Hash(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), h)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Перезаписать существующий файл")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configProfilesCmd)
	configCmd.AddCommand(hashPasswordCmd)
}
