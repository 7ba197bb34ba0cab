package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bobmcallan/mgnrega-portal/internal/app"
	"github.com/bobmcallan/mgnrega-portal/internal/common"
	"github.com/bobmcallan/mgnrega-portal/internal/config"
)

var args struct {
	configFiles []string
	envFile     string
	source      string
	chromeURL   string
	month       string
	outDir      string
	logLevel    string
	purge       bool
}

var rootCmd = &cobra.Command{
	Use:           "mgnrega-export",
	Short:         "Export MGNREGA district reports as PDF",
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       config.GetInfo().String(),
}

var reportCmd = &cobra.Command{
	Use:   "report <district>...",
	Short: "Render district dashboards and save them as PDF files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runReport,
}

var districtsCmd = &cobra.Command{
	Use:   "districts",
	Short: "List the districts known to the data source",
	Args:  cobra.NoArgs,
	RunE:  runDistricts,
}

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots <district>",
	Short: "List or purge the saved reports of a district",
	Long: "List the last-known-good reports saved for a district. With --purge they are deleted.\n" +
		"The snapshot store is locked while the portal runs; stop it first.",
	Args: cobra.ExactArgs(1),
	RunE: runSnapshots,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringArrayVarP(&args.configFiles, "config", "c", nil, "Configuration file path (can be repeated)")
	pf.StringVar(&args.envFile, "env", ".env", "Dotenv file loaded before configuration")
	pf.StringVar(&args.source, "source", "", `Data source override: "api" or "mock"`)
	pf.StringVar(&args.logLevel, "log-level", "warn", "Log level")

	reportCmd.Flags().StringVar(&args.chromeURL, "chrome-url", "", "DevTools endpoint of a running headless Chrome")
	reportCmd.Flags().StringVarP(&args.month, "month", "m", "", "Report month as YYYY-MM (default latest)")
	reportCmd.Flags().StringVarP(&args.outDir, "out", "o", ".", `Output directory, or "-" to write a single report to stdout`)

	snapshotsCmd.Flags().BoolVar(&args.purge, "purge", false, "Delete the saved reports instead of listing them")

	rootCmd.AddCommand(reportCmd, districtsCmd, snapshotsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newApp loads configuration the way the portal does and builds the
// application without an HTTP server.
func newApp() (*app.App, error) {
	if err := godotenv.Load(args.envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load %s: %w", args.envFile, err)
	}

	files := args.configFiles
	if len(files) == 0 {
		if path := config.DiscoverFile(); path != "" {
			files = []string{path}
		}
	}

	cfg, err := config.LoadFromFiles(files...)
	if err != nil {
		return nil, err
	}
	if args.source != "" {
		cfg.Data.Source = args.source
	}
	if args.chromeURL != "" {
		cfg.Export.RemoteURL = args.chromeURL
	}
	cfg.Export.Enabled = true
	cfg.MCP.Enabled = false

	if issues := cfg.Validate(); len(issues) > 0 {
		return nil, fmt.Errorf("invalid configuration: %v", issues)
	}

	return app.New(cfg, common.NewConsoleLogger(args.logLevel))
}

func runReport(cmd *cobra.Command, districts []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	toStdout := args.outDir == "-"
	if toStdout && len(districts) != 1 {
		return fmt.Errorf("--out - takes exactly one district, got %d", len(districts))
	}

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	if toStdout {
		result, err := application.DashboardHandler.ExportReport(ctx, districts[0], args.month)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(result.PDF)
		return err
	}

	if err := os.MkdirAll(args.outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var failed int
	for _, code := range districts {
		if err := exportOne(ctx, application, code); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", code, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d exports failed", failed, len(districts))
	}
	return nil
}

func exportOne(ctx context.Context, application *app.App, code string) error {
	result, err := application.DashboardHandler.ExportReport(ctx, code, args.month)
	if err != nil {
		return err
	}

	path := filepath.Join(args.outDir, result.Filename)
	if err := os.WriteFile(path, result.PDF, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Fprintf(os.Stderr, "%s  %s  %d page(s)\n", path, humanize.Bytes(uint64(len(result.PDF))), result.Pages)
	return nil
}

func runDistricts(cmd *cobra.Command, _ []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	districts, fallback := application.Service.Districts(cmd.Context())
	if fallback {
		fmt.Fprintln(cmd.ErrOrStderr(), "district list unavailable, showing fallback list")
	}
	for _, d := range districts {
		fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", d.ID(), d.Name)
	}
	return nil
}

func runSnapshots(cmd *cobra.Command, districts []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	if application.Storage == nil {
		return fmt.Errorf("snapshot store is disabled (storage.badger.enabled = false)")
	}

	code := districts[0]
	if args.purge {
		removed, err := application.Service.Forget(cmd.Context(), code)
		if err != nil {
			return fmt.Errorf("failed to purge %s after %d snapshot(s): %w", code, removed, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: removed %d snapshot(s) from %s\n", code, removed, application.Storage.Path())
		return nil
	}

	list, err := application.Service.Snapshots(cmd.Context(), code)
	if err != nil {
		return err
	}
	for _, snap := range list {
		month := snap.Month
		if snap.Latest {
			month += " (latest)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-18s saved %s\n", month, humanize.Time(snap.SavedAt))
	}
	return nil
}
