package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradejournal/config"
	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/logger"
	"github.com/rustyeddy/tradejournal/memo"
	"github.com/rustyeddy/tradejournal/settings"
)

var rootCmd = &cobra.Command{
	Use:   "journal",
	Short: "A trading journal that checks every trade against your own rules",
	Long: `Journal records trades in a local SQLite database and evaluates each one
against the discipline and risk rules in your settings document.

It provides tools for:
  - Recording, importing and exporting trades
  - Re-evaluating the whole journal after a settings change
  - Assessing trader evolution: level, phase and bottleneck
  - Serving the journal and the rule engine over HTTP

Configuration is read from --config (YAML), TJ_* environment variables
and a .env file in the working directory.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

var (
	cfgFile      string
	dbPath       string
	settingsPath string
	logLevel     string

	cfg config.Config
	log = zap.NewNop()

	loadEnvFunc = godotenv.Load
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); defaults and TJ_* env vars apply without it")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite journal database (overrides journal.db_path)")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "rule settings document (overrides journal.settings_path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error")
}

func setup(cmd *cobra.Command, args []string) error {
	// A missing .env is normal.
	_ = loadEnvFunc()

	c, err := config.Load(cfgFile, cfgFile == "")
	if err != nil {
		return err
	}
	if dbPath != "" {
		c.Journal.DBPath = dbPath
	}
	if settingsPath != "" {
		c.Journal.SettingsPath = settingsPath
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	cfg = c

	l, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log = l
	return nil
}

func openStore() (*journal.SQLite, error) {
	j, err := journal.NewSQLite(cfg.Journal.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db %s: %w", cfg.Journal.DBPath, err)
	}
	return j, nil
}

// loadSettings falls back to the defaults when the settings file does not
// exist yet, so a fresh journal works before `settings init`.
func loadSettings() (settings.Settings, error) {
	s, err := settings.LoadFromFile(cfg.Journal.SettingsPath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("settings file not found, using defaults", zap.String("path", cfg.Journal.SettingsPath))
		return *settings.Default(), nil
	}
	if err != nil {
		return settings.Settings{}, err
	}
	if err := s.Validate(); err != nil {
		log.Warn("settings have problems; affected checks are skipped", zap.Error(err))
	}
	return *s, nil
}

// newEngine builds the memoizing engine on the configured cache backend.
// The returned func releases the backend.
func newEngine(ctx context.Context) (*memo.Engine, func(), error) {
	switch cfg.Cache.Backend {
	case "redis":
		rc, err := memo.NewRedisCache(ctx, cfg.Cache.RedisURL, cfg.Cache.TTL)
		if err != nil {
			return nil, nil, err
		}
		log.Debug("memo cache: redis", zap.String("addr", cfg.Cache.RedisURL))
		return memo.NewEngine(rc, log), func() { _ = rc.Close() }, nil
	default:
		return memo.NewEngine(memo.NewMemoryCache(cfg.Cache.MaxEntries), log), func() {}, nil
	}
}
