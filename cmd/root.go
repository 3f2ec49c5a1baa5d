package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/cmdgate/internal/config"
	"github.com/zjrosen/cmdgate/internal/dispatch"
	"github.com/zjrosen/cmdgate/internal/history"
	"github.com/zjrosen/cmdgate/internal/log"
	"github.com/zjrosen/cmdgate/internal/mode/playground"
	"github.com/zjrosen/cmdgate/internal/subject"
	"github.com/zjrosen/cmdgate/internal/tracing"
	"github.com/zjrosen/cmdgate/internal/watcher"
)

func init() {
	// Query the terminal background before any Bubble Tea program starts so
	// the OSC 11 response does not race the input loop.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

const (
	localConfigPath = ".cmdgate/config.yaml"
	debugEnv        = "CMDGATE_DEBUG"
)

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	watchPath string
)

var rootCmd = &cobra.Command{
	Use:     "cmdgate",
	Short:   "A playground for gated, cancellable commands",
	Long:    `Launch an interactive bench of commands whose availability follows toggles, a heartbeat clock, activation and a watched file.`,
	Version: version,
	RunE:    runApp,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/cmdgate/config.yaml)")
	rootCmd.Flags().BoolVarP(&debugFlag, "debug", "d", false,
		"write a debug log (also "+debugEnv+")")
	rootCmd.Flags().StringVarP(&watchPath, "watch", "w", "",
		"file gating the lockfile command (overrides watcher.path)")
}

// loadConfig resolves the config file and decodes it over the defaults.
// Lookup order is the explicit path, then .cmdgate/config.yaml, then
// ~/.config/cmdgate/config.yaml. When none exists a default file is written
// to .cmdgate/config.yaml. The returned path is the file in use, if any.
func loadConfig(v *viper.Viper, explicit string) (config.Config, string, error) {
	config.SetDefaults(v)

	switch {
	case explicit != "":
		v.SetConfigFile(explicit)
	case fileExists(localConfigPath):
		v.SetConfigFile(localConfigPath)
	default:
		home, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(home, ".config", "cmdgate"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
			if writeErr := config.WriteDefaultConfig(localConfigPath); writeErr == nil {
				v.SetConfigFile(localConfigPath)
				_ = v.ReadInConfig()
			}
		case explicit != "" && errors.Is(err, os.ErrNotExist):
			return config.Config{}, "", fmt.Errorf("config file %s: %w", explicit, err)
		default:
			return config.Config{}, "", fmt.Errorf("reading config: %w", err)
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, "", err
	}
	return cfg, v.ConfigFileUsed(), nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func runApp(cmd *cobra.Command, args []string) error {
	cfg, cfgPath, err := loadConfig(viper.New(), cfgFile)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if debugFlag || os.Getenv(debugEnv) != "" || cfg.Log.Enabled {
		cleanup, err := log.InitWithTeaLog(cfg.Log.Path, "cmdgate")
		if err != nil {
			return fmt.Errorf("opening debug log: %w", err)
		}
		defer cleanup()
		log.SetMinLevel(log.ParseLevel(cfg.Log.Level))
		log.Info(log.CatConfig, "cmdgate starting", "config", cfgPath, "version", version)
	}

	if watchPath != "" {
		cfg.Watcher.Path = watchPath
	}

	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("starting tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			log.ErrorErr(log.CatTrace, "tracing shutdown failed", err)
		}
	}()

	var w *watcher.Watcher
	if cfg.Watcher.Path != "" {
		w, err = watcher.New(watcher.Config{Path: cfg.Watcher.Path, DebounceDur: cfg.Watcher.Debounce})
		if err != nil {
			return fmt.Errorf("creating watcher: %w", err)
		}
		if err := w.Start(); err != nil {
			return fmt.Errorf("starting watcher: %w", err)
		}
		defer func() { _ = w.Stop() }()
	}

	pool := dispatch.NewGoPool(cfg.Commands.MaxConcurrency)
	model, err := playground.New(playground.Options{
		Dispatcher: dispatch.NewTea(),
		Pool:       pool,
		Tracer:     provider.Tracer(),
		History:    history.NewStore(cfg.History.TTL, cfg.History.CleanupInterval, cfg.History.Limit),
		Fallback:   cfg.Commands.Fallback,
		Watcher:    w,
	})
	if err != nil {
		return fmt.Errorf("building commands: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	subject.PumpHeartbeat(ctx, cfg.Heartbeat.Interval)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()

	model.Close()
	pool.Close()
	pool.Wait()

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
