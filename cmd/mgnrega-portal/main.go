package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/bobmcallan/mgnrega-portal/internal/app"
	"github.com/bobmcallan/mgnrega-portal/internal/common"
	"github.com/bobmcallan/mgnrega-portal/internal/config"
	"github.com/bobmcallan/mgnrega-portal/internal/server"
)

// fileList collects repeated -config flags in order.
type fileList []string

func (f *fileList) String() string { return strings.Join(*f, ",") }

func (f *fileList) Set(value string) error {
	*f = append(*f, value)
	return nil
}

type options struct {
	configFiles fileList
	envFile     string
	host        string
	port        int
	version     bool
}

func parseFlags() options {
	var o options
	flag.Var(&o.configFiles, "config", "Configuration file; repeat to layer files")
	flag.Var(&o.configFiles, "c", "Shorthand for -config")
	flag.IntVar(&o.port, "port", 0, "Listen port (overrides config)")
	flag.IntVar(&o.port, "p", 0, "Shorthand for -port")
	flag.StringVar(&o.host, "host", "", "Listen host (overrides config)")
	flag.StringVar(&o.envFile, "env", ".env", "Dotenv file read before configuration")
	flag.BoolVar(&o.version, "version", false, "Print version and exit")
	flag.Parse()
	return o
}

func main() {
	opts := parseFlags()

	if opts.version {
		fmt.Printf("mgnrega-portal version %s\n", config.GetInfo())
		return
	}

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(opts options) error {
	// The real environment wins over .env.
	if err := godotenv.Load(opts.envFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load %s: %w", opts.envFile, err)
	}

	files := opts.configFiles
	if len(files) == 0 {
		if path := config.DiscoverFile(); path != "" {
			files = append(files, path)
		}
	}

	cfg, err := config.LoadFromFiles(files...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	config.ApplyFlagOverrides(cfg, opts.port, opts.host)

	if issues := cfg.Validate(); len(issues) > 0 {
		return configError(issues)
	}

	logger := common.NewLoggerFromConfig(common.LoggingConfig{
		Level:      cfg.Logging.Level,
		Outputs:    cfg.Logging.Outputs,
		FilePath:   cfg.Logging.FilePath,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})

	logger.Info().
		Str("version", config.GetVersion()).
		Str("environment", cfg.Environment).
		Str("source", cfg.Data.Source).
		Str("config_files", files.String()).
		Msg("configuration loaded")

	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Error().Err(err).Msg("application shutdown failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("url", cfg.BaseURL()).Msg("portal ready")

	if err := server.New(application).Run(ctx); err != nil {
		return err
	}

	logger.Info().Msg("portal stopped")
	return nil
}

// configError formats validation issues into one readable error.
func configError(issues []string) error {
	var b strings.Builder
	b.WriteString("configuration error:\n")
	for _, issue := range issues {
		fmt.Fprintf(&b, "  - %s\n", issue)
	}
	b.WriteString("see config/mgnrega-portal.toml for an example; values may also come from MGNREGA_* variables or flags")
	return errors.New(b.String())
}
