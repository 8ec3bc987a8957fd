package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/softrack-city/softrack/internal/api"
	"github.com/softrack-city/softrack/internal/config"
	"github.com/softrack-city/softrack/internal/db"
	"github.com/softrack-city/softrack/internal/listview"
	"github.com/softrack-city/softrack/internal/logging"
	"github.com/softrack-city/softrack/internal/models"
	"github.com/softrack-city/softrack/internal/report"
	"github.com/softrack-city/softrack/internal/repository"
	"github.com/softrack-city/softrack/internal/session"
	"github.com/softrack-city/softrack/internal/state"
	"github.com/softrack-city/softrack/internal/tui"
	"github.com/softrack-city/softrack/internal/tui/screens"
)

// app bundles everything a command needs. close must be called when done.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	database *sql.DB
	store    *state.Store
}

func (a *app) close() {
	a.store.Wait()
	_ = a.logger.Sync()
	a.database.Close()
}

func setup() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	if err := config.EnsureDirectories(); err != nil {
		return nil, err
	}

	logPath, err := config.LogPath()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logPath, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error opening log: %w", err)
	}

	dbPath, err := config.DatabasePath()
	if err != nil {
		return nil, err
	}
	database, err := db.OpenAndMigrate(dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	status, err := db.GetMigrationStatus(database)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("error reading migration status: %w", err)
	}
	if status.Dirty {
		database.Close()
		return nil, fmt.Errorf("database %s is dirty at migration %d, remove it to start over", dbPath, status.CurrentVersion)
	}
	logger.Debug("Database ready",
		zap.String("path", dbPath),
		zap.Uint("schema_version", status.CurrentVersion))

	sessions := session.New(repository.NewStorageRepo(database), logger)
	client := api.NewClient(cfg.APIBaseURL, logger, api.WithTimeout(cfg.RequestTimeout.Duration))

	return &app{
		cfg:      cfg,
		logger:   logger,
		database: database,
		store:    state.New(client, sessions, logger),
	}, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 2*time.Minute)
}

var rootCmd = &cobra.Command{
	Use:           "softrack",
	Short:         "Software asset tracking dashboard",
	Long:          `Softrack tracks the software a city runs: licenses, vendors, contracts, costs and user satisfaction.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.close()

		return tui.Run(screens.Deps{Store: a.store, Config: a.cfg})
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.close()

		identifier, _ := cmd.Flags().GetString("user")
		password, _ := cmd.Flags().GetString("password")

		in := bufio.NewReader(cmd.InOrStdin())
		if identifier == "" {
			if identifier, err = prompt(cmd, in, "Username or email: "); err != nil {
				return err
			}
		}
		if password == "" {
			if password, err = promptPassword(cmd, in); err != nil {
				return err
			}
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()
		user, err := a.store.Login(ctx, identifier, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", user.DisplayName())
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, cancel := commandContext(cmd)
		defer cancel()
		if err := a.store.Logout(ctx); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.close()

		user, err := a.store.CurrentUser(cmd.Context())
		if err != nil {
			return fmt.Errorf("not logged in: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, id %d)\n", user.DisplayName(), user.Username, user.ID)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export software records as CSV or PDF",
	Long: `Export software records. With no filters every record is exported.

Examples:
  softrack export                          # all_software.csv
  softrack export --status Active
  softrack export --search payroll --format pdf
  softrack export --out ./payroll.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		status, _ := cmd.Flags().GetString("status")
		search, _ := cmd.Flags().GetString("search")
		out, _ := cmd.Flags().GetString("out")

		format = strings.ToLower(format)
		if format != "csv" && format != "pdf" {
			return fmt.Errorf("unknown format %q (expected csv or pdf)", format)
		}

		a, err := setup()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, cancel := commandContext(cmd)
		defer cancel()
		if _, err := a.store.CurrentUser(ctx); err != nil {
			return fmt.Errorf("not logged in: %w", err)
		}
		a.store.Initialize(ctx)

		view := listview.New(a.cfg.PageSize)
		view.SetFilter(listview.Filter{Search: search, Status: models.NormalizeStatus(status)})
		assets := view.ExportSet(a.store.Software())

		if out == "" {
			name := report.AllFileName
			if format == "pdf" {
				name = strings.TrimSuffix(name, ".csv") + ".pdf"
			}
			out = filepath.Join(a.cfg.ReportsOutput, name)
		}
		if err := writeFile(out, func(f *os.File) error {
			if format == "pdf" {
				return report.PDF(f, assets)
			}
			return report.WriteCSV(f, assets)
		}); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", len(assets), out)
		return nil
	},
}

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Print portfolio analytics",
	RunE: func(cmd *cobra.Command, args []string) error {
		pdfPath, _ := cmd.Flags().GetString("pdf")

		a, err := setup()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, cancel := commandContext(cmd)
		defer cancel()
		data, err := a.store.Analytics(ctx)
		if err != nil {
			return err
		}

		for _, r := range report.AnalyticsRows(*data) {
			fmt.Fprintf(cmd.OutOrStdout(), "%-28s %s\n", r[0], r[1])
		}

		if pdfPath != "" {
			if err := writeFile(pdfPath, func(f *os.File) error {
				return report.AnalyticsPDF(f, *data)
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nSaved %s\n", pdfPath)
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().StringP("user", "u", "", "Username or email")
	loginCmd.Flags().StringP("password", "p", "", "Password (prompted when omitted)")

	exportCmd.Flags().StringP("format", "f", "csv", "Output format: csv or pdf")
	exportCmd.Flags().String("status", "", "Only export records with this status (Active or Inactive)")
	exportCmd.Flags().StringP("search", "s", "", "Only export records whose name contains this text")
	exportCmd.Flags().StringP("out", "o", "", "Output file (default: reports_output/all_software.<format>)")

	analyticsCmd.Flags().String("pdf", "", "Also write the analytics report as a PDF to this path")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(analyticsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func prompt(cmd *cobra.Command, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads without echo when stdin is a terminal.
func promptPassword(cmd *cobra.Command, in *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if cmd.InOrStdin() != os.Stdin || !term.IsTerminal(fd) {
		return prompt(cmd, in, "Password: ")
	}

	fmt.Fprint(cmd.OutOrStdout(), "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pw), nil
}

func writeFile(path string, write func(f *os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
