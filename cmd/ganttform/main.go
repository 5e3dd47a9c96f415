package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/ldi/ganttform/internal/config"
	"github.com/ldi/ganttform/internal/db"
	"github.com/ldi/ganttform/internal/form"
	"github.com/ldi/ganttform/internal/logging"
	"github.com/ldi/ganttform/internal/mcp"
	"github.com/ldi/ganttform/internal/scheduler"
	"github.com/ldi/ganttform/internal/server"
	"github.com/ldi/ganttform/internal/ui"
	"github.com/ldi/ganttform/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	flagConfig string
	flagAPIURL string
)

var (
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ganttform",
		Short: "Collect project tasks and compute their critical path",
		Long: `Ganttform collects tasks (name, duration, start and end event), sends them
to a scheduling service and shows the critical path and Gantt chart it returns.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			selected, err := ui.RunMenu()
			if err != nil {
				return fmt.Errorf("failed to run menu: %w", err)
			}
			if selected == "" {
				return nil
			}
			sub, _, err := cmd.Find([]string{selected})
			if err != nil {
				return err
			}
			return sub.RunE(sub, nil)
		},
	}

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default .ganttform/config.json)")
	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "Scheduling service base URL")

	rootCmd.AddCommand(formCmd())
	rootCmd.AddCommand(webCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(mcpCmd())
	rootCmd.AddCommand(initCmd())

	return rootCmd
}

func loadConfig() (*config.Config, error) {
	v := viper.New()
	if flagAPIURL != "" {
		v.Set("api.base_url", flagAPIURL)
	}
	return config.Load(v, flagConfig)
}

// app is everything a surface needs to drive a form session.
type app struct {
	cfg       *config.Config
	log       *logrus.Logger
	logCloser io.Closer
	db        *db.DB
	session   *form.Session
}

// openApp wires the session. logPath empty means stderr. History is
// optional: when the database cannot be opened the form still works.
func openApp(ctx context.Context, cfg *config.Config, logPath string) (*app, error) {
	log, closer, err := logging.New(logPath, cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, logCloser: closer}

	database, err := openHistory(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("submission history disabled")
	} else {
		a.db = database
	}

	opts := form.Options{
		Logger:           log,
		ClearAfterSubmit: cfg.Form.ClearAfterSubmit,
	}
	if a.db != nil {
		opts.Recorder = a.db
	}

	client := scheduler.NewClient(cfg.API.BaseURL, cfg.API.Timeout)
	a.session = form.NewSession(client, opts)

	log.WithFields(logrus.Fields{
		"api":     client.BaseURL(),
		"timeout": cfg.API.Timeout,
	}).Debug("session ready")

	return a, nil
}

func openHistory(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	database, err := db.Open(cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	if err := database.Init(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if cfg.History.SnapshotPath != "" {
		database.EnableAutoSnapshot(cfg.History.SnapshotPath)
	}
	return database, nil
}

func (a *app) history() mcp.History {
	if a.db == nil {
		return nil
	}
	return a.db
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	a.logCloser.Close()
}

func formCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "form",
		Short: "Open the task form in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// The terminal belongs to the form, so the log goes to a file.
			a, err := openApp(ctx, cfg, cfg.Log.Path)
			if err != nil {
				return err
			}
			defer a.Close()

			return ui.RunForm(ctx, a.session)
		},
	}
}

func webCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the task form over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Web.Port = port
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, cfg, "")
			if err != nil {
				return err
			}
			defer a.Close()

			return serveWeb(ctx, a, fmt.Sprintf(":%s", cfg.Web.Port))
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Port to listen on (default from config)")
	return cmd
}

func serveWeb(ctx context.Context, a *app, addr string) error {
	srv := server.NewServer(a.session, a.log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(addr)
	}()

	a.log.WithField("addr", addr).Info("serving task form")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the task form as MCP tools on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			// stdout carries the protocol.
			a, err := openApp(context.Background(), cfg, cfg.Log.Path)
			if err != nil {
				return err
			}
			defer a.Close()

			return mcp.Serve(mcp.NewServer(a.session, a.history()))
		},
	}
}

func historyCmd() *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded submissions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runHistory(cmd.Context(), cmd.OutOrStdout(), cfg, limit, jsonOut)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of submissions to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Machine-readable JSON output")
	return cmd
}

func runHistory(ctx context.Context, out io.Writer, cfg *config.Config, limit int, jsonOut bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	database, err := openHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	subs, err := database.ListSubmissions(ctx, limit)
	if err != nil {
		return err
	}

	if jsonOut {
		if subs == nil {
			subs = []*models.Submission{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(subs)
	}

	if len(subs) == 0 {
		fmt.Fprintln(out, dim("No submissions recorded yet."))
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", bold("ID"), bold("CREATED"), bold("TASKS"), bold("STATUS"), bold("RESULT"))
	for _, s := range subs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			shortID(s.ID),
			s.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			len(s.Tasks),
			statusLabel(s.Status),
			resultLabel(s),
		)
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func statusLabel(status models.SubmissionStatus) string {
	switch status {
	case models.SubmissionStatusCompleted:
		return green(string(status))
	case models.SubmissionStatusFailed:
		return red(string(status))
	case models.SubmissionStatusFetchFailed:
		return yellow(string(status))
	default:
		return cyan(string(status))
	}
}

func resultLabel(s *models.Submission) string {
	switch {
	case s.Error != "":
		return dim(s.Error)
	case len(s.CriticalPath) > 0:
		return form.FormatPath(s.CriticalPath)
	default:
		return dim("-")
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Create the .ganttform directory and history database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			targetDir := "."
			if len(args) > 0 {
				targetDir = args[0]
			}
			return runInit(cmd.OutOrStdout(), cfg, targetDir)
		},
	}
}

const gitignoreContent = "history.db*\nganttform.log\n"

func runInit(out io.Writer, cfg *config.Config, targetDir string) error {
	projectDir := filepath.Join(targetDir, config.Dir)
	if err := os.MkdirAll(projectDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", config.Dir, err)
	}
	fmt.Fprintf(out, "%s Created %s/ directory\n", green("✓"), config.Dir)

	gitignorePath := filepath.Join(projectDir, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte(gitignoreContent), 0644); err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}
	fmt.Fprintf(out, "%s Created %s/.gitignore\n", green("✓"), config.Dir)

	dbPath := resolvePath(targetDir, cfg.DB.Path)
	database, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	if err := database.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	fmt.Fprintf(out, "%s Initialized database at %s\n", green("✓"), dbPath)

	snapshotPath := cfg.History.SnapshotPath
	if snapshotPath == "" {
		snapshotPath = filepath.Join(config.Dir, "snapshot.jsonl")
	}
	snapshotPath = resolvePath(targetDir, snapshotPath)
	if _, err := os.Stat(snapshotPath); err == nil {
		if err := database.ImportSnapshot(ctx, snapshotPath); err != nil {
			return fmt.Errorf("failed to import snapshot: %w", err)
		}
		fmt.Fprintf(out, "%s Imported snapshot from %s\n", green("✓"), snapshotPath)
	}

	fmt.Fprintf(out, "%s Ganttform initialized successfully\n", green("✓"))
	return nil
}

// resolvePath places relative paths under dir.
func resolvePath(dir, path string) string {
	if filepath.IsAbs(path) || path == ":memory:" || strings.TrimSpace(dir) == "" {
		return path
	}
	return filepath.Join(dir, path)
}
