// Package config загружает настройки генератора из YAML. Бывшие варианты
// скрипта описываются профилями: формат вывода, пароль, плейсхолдеры.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Navl-bm/go-oficios/docx"
	"github.com/Navl-bm/go-oficios/internal/logging"
	"github.com/Navl-bm/go-oficios/internal/roster"
)

// Config описывает файл oficios.yaml.
type Config struct {
	Template     string             `yaml:"template"`
	Roster       RosterConfig       `yaml:"roster"`
	OutputDir    string             `yaml:"output_dir"`
	Ledger       LedgerConfig       `yaml:"ledger"`
	Password     string             `yaml:"password"`
	Placeholders docx.Delims        `yaml:"placeholders"`
	Converter    ConverterConfig    `yaml:"converter"`
	Logging      logging.Config     `yaml:"logging"`
	Profile      string             `yaml:"profile"`
	Profiles     map[string]Profile `yaml:"profiles"`
}

// RosterConfig: книга со списком сотрудников.
type RosterConfig struct {
	Path    string         `yaml:"path"`
	Sheet   string         `yaml:"sheet"`
	Columns roster.Columns `yaml:"columns"`
}

// LedgerConfig: журнал выданных официосов.
type LedgerConfig struct {
	Backend string `yaml:"backend"` // xlsx | sqlite | none
	Path    string `yaml:"path"`
}

// ConverterConfig: внешний конвертер в PDF.
type ConverterConfig struct {
	Binary   string `yaml:"binary"`
	Timeout  string `yaml:"timeout"`
	Attempts int    `yaml:"attempts"`
}

// Profile описывает вариант запуска.
type Profile struct {
	Output          string       `yaml:"output"`
	ArchiveFormat   string       `yaml:"archive_format,omitempty"`
	Template        string       `yaml:"template,omitempty"`
	Placeholders    *docx.Delims `yaml:"placeholders,omitempty"`
	RequirePassword bool         `yaml:"require_password"`
	KeepDocuments   bool         `yaml:"keep_documents"`
	SkipLedger      bool         `yaml:"skip_ledger,omitempty"`
}

// DefaultConfig повторяет исходные пути и варианты.
func DefaultConfig() *Config {
	return &Config{
		Template: "001 OFICIO ciclo escolar 2024-2025.docx",
		Roster: RosterConfig{
			Path:    "PLANTILLA 29D AUDITORIA.xlsx",
			Columns: roster.DefaultColumns,
		},
		OutputDir: "output_oficios",
		Ledger: LedgerConfig{
			Backend: "xlsx",
			Path:    "registro_oficios_comision.xlsx",
		},
		Placeholders: docx.DefaultDelims,
		Converter: ConverterConfig{
			Timeout:  "2m",
			Attempts: 1,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "json",
		},
		Profile: "zip",
		Profiles: map[string]Profile{
			"docx":    {Output: "docx", RequirePassword: true},
			"pdf":     {Output: "pdf", RequirePassword: true},
			"zip":     {Output: "zip", ArchiveFormat: "docx", RequirePassword: true, KeepDocuments: true},
			"zip-pdf": {Output: "zip", ArchiveFormat: "pdf", RequirePassword: true},
			"single":  {Output: "single", RequirePassword: true, KeepDocuments: true},
		},
	}
}

// Load читает конфигурацию. Если файла нет, берутся значения по умолчанию.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save пишет конфигурацию в YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("OFICIOS_PASSWORD"); v != "" {
		c.Password = v
	}
	if v := os.Getenv("OFICIOS_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("OFICIOS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("OFICIOS_SOFFICE"); v != "" {
		c.Converter.Binary = v
	}
	if v := os.Getenv("OFICIOS_PROFILE"); v != "" {
		c.Profile = v
	}
}

// ProfileNames возвращает имена профилей по алфавиту.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for n := range c.Profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolved: профиль, объединенный с общими настройками.
type Resolved struct {
	Name            string
	Output          string
	ArchiveFormat   string
	Template        string
	Placeholders    docx.Delims
	Password        string
	RequirePassword bool
	KeepDocuments   bool
	Ledger          LedgerConfig
	OutputDir       string
	Timeout         time.Duration
	Attempts        int
}

// Resolve возвращает настройки профиля name (пустое имя означает профиль по умолчанию).
func (c *Config) Resolve(name string) (*Resolved, error) {
	if name == "" {
		name = c.Profile
	}
	p, ok := c.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("профиль %q не найден (есть: %s)", name, strings.Join(c.ProfileNames(), ", "))
	}

	r := &Resolved{
		Name:            name,
		Output:          p.Output,
		ArchiveFormat:   p.ArchiveFormat,
		Template:        c.Template,
		Placeholders:    c.Placeholders,
		KeepDocuments:   p.KeepDocuments,
		RequirePassword: p.RequirePassword,
		Ledger:          c.Ledger,
		OutputDir:       c.OutputDir,
		Attempts:        max(c.Converter.Attempts, 1),
	}
	if p.Template != "" {
		r.Template = p.Template
	}
	if p.Placeholders != nil {
		r.Placeholders = *p.Placeholders
	}
	if p.RequirePassword {
		r.Password = c.Password
	}
	if p.SkipLedger {
		r.Ledger.Backend = "none"
	}

	timeout := c.Converter.Timeout
	if timeout == "" {
		timeout = "2m"
	}
	d, err := time.ParseDuration(timeout)
	if err != nil || d <= 0 {
		return nil, fmt.Errorf("converter.timeout: неверная длительность %q", timeout)
	}
	r.Timeout = d

	if err := r.validate(); err != nil {
		return nil, fmt.Errorf("профиль %q: %w", name, err)
	}
	return r, nil
}

// LedgerFor возвращает журнал профиля без полной проверки профиля:
// просмотр журнала не требует пароля.
func (c *Config) LedgerFor(name string) (LedgerConfig, error) {
	if name == "" {
		name = c.Profile
	}
	p, ok := c.Profiles[name]
	if !ok {
		return LedgerConfig{}, fmt.Errorf("профиль %q не найден (есть: %s)", name, strings.Join(c.ProfileNames(), ", "))
	}
	l := c.Ledger
	if p.SkipLedger {
		l.Backend = "none"
	}
	return l, nil
}

// Warnings возвращает допустимые, но рискованные настройки профиля.
func (r *Resolved) Warnings() []string {
	var out []string
	if r.Placeholders.Bare() {
		out = append(out, "placeholders: голые плейсхолдеры, значение с именем другого ключа (например sede в comision) будет заменено повторно")
	}
	return out
}

func (r *Resolved) validate() error {
	switch r.Output {
	case "docx", "pdf", "single":
	case "zip":
		if r.ArchiveFormat != "" && r.ArchiveFormat != "docx" && r.ArchiveFormat != "pdf" {
			return fmt.Errorf("archive_format: %q", r.ArchiveFormat)
		}
	default:
		return fmt.Errorf("output: неизвестный формат %q", r.Output)
	}
	if r.RequirePassword && r.Password == "" {
		return fmt.Errorf("password: required by profile (задайте password или OFICIOS_PASSWORD)")
	}
	if strings.TrimSpace(r.Template) == "" {
		return fmt.Errorf("template: не задан")
	}
	if strings.TrimSpace(r.OutputDir) == "" {
		return fmt.Errorf("output_dir: не задан")
	}
	if (r.Placeholders.Left == "") != (r.Placeholders.Right == "") {
		return fmt.Errorf("placeholders: нужны оба ограничителя или ни одного")
	}
	switch r.Ledger.Backend {
	case "none":
	case "xlsx", "sqlite":
		if strings.TrimSpace(r.Ledger.Path) == "" {
			return fmt.Errorf("ledger.path: не задан")
		}
	default:
		return fmt.Errorf("ledger.backend: %q", r.Ledger.Backend)
	}
	return nil
}

// NeedsConverter сообщает, нужен ли профилю конвертер в PDF.
func (r *Resolved) NeedsConverter() bool {
	return r.Output == "pdf" || (r.Output == "zip" && r.ArchiveFormat == "pdf")
}
