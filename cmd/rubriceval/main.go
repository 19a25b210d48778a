package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mkraev/rubriceval/internal/llm"
	"github.com/mkraev/rubriceval/internal/model"
	"github.com/mkraev/rubriceval/internal/runner"
	"github.com/mkraev/rubriceval/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rubriceval",
		Short: "Rubric scoring of problem/answer image pairs via a multimodal LLM",
	}

	run := runCmd()
	root.AddCommand(run, exportCmd())

	// Make "run" the default when no subcommand is given.
	root.RunE = run.RunE

	// Register run flags on root so bare `rubriceval --questions ...` still works.
	root.Flags().AddFlagSet(run.Flags())

	return root
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate a question dataset against answer screenshots",
		RunE:  runRun,
	}
	f := cmd.Flags()
	f.StringP("questions", "q", "data.json", "Path to the questions JSON file")
	f.StringP("answers-dir", "a", "data", "Base directory containing answer image folders named by question ID")
	f.StringP("output", "o", "evaluation.json", "Output JSON file for results")
	f.String("llm-url", "", "OpenAI-compatible API base URL (empty for the OpenAI default)")
	f.String("llm-key", "", "API key for the model endpoint (or set OPENAI_API_KEY)")
	f.String("llm-model", "gpt-4.1", "Model name")
	f.Duration("delay", time.Second, "Pause between model requests")
	f.String("db", "", "SQLite database path for run persistence (empty to disable)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a stored evaluation run as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "", "SQLite database path (required)")
	f.Int64("run-id", 0, "Run to export (0 = most recent)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("RUBRICEVAL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("rubriceval")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/rubriceval")
	v.AddConfigPath("/etc/rubriceval")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// resolveAPIKey fails fast when no model credential is configured.
func resolveAPIKey(v *viper.Viper) (string, error) {
	key := v.GetString("llm-key")
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" {
		return "", fmt.Errorf("model API key is required: set --llm-key, RUBRICEVAL_LLM_KEY, or OPENAI_API_KEY")
	}
	return key, nil
}

func runRun(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	apiKey, err := resolveAPIKey(v)
	if err != nil {
		return err
	}

	// Open the optional run store before processing so a bad path fails fast.
	var db *store.Store
	if dbPath := v.GetString("db"); dbPath != "" {
		db, err = store.New(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
	}

	client := llm.New(v.GetString("llm-url"), apiKey, v.GetString("llm-model"))

	cfg := model.RunConfig{
		QuestionsFile: v.GetString("questions"),
		AnswersDir:    v.GetString("answers-dir"),
		OutputFile:    v.GetString("output"),
		Delay:         v.GetDuration("delay"),
	}

	startedAt := time.Now()
	results, err := runner.New(cfg, client).Run(cmd.Context())
	if err != nil {
		return err
	}

	// A write or persistence failure loses this run's output but never the
	// computed results in memory, so it is reported without failing the run.
	if err := runner.WriteResults(cfg.OutputFile, results); err != nil {
		slog.Error("saving results failed", "path", cfg.OutputFile, "error", err)
	} else {
		slog.Info("results saved", "path", cfg.OutputFile, "count", len(results))
	}

	if db != nil {
		runID, err := db.CreateRun(model.Run{
			StartedAt:     startedAt,
			QuestionsFile: cfg.QuestionsFile,
			AnswersDir:    cfg.AnswersDir,
			Model:         client.Model(),
		})
		if err != nil {
			slog.Error("recording run failed", "error", err)
			return nil
		}
		if err := db.SaveResults(runID, results); err != nil {
			slog.Error("persisting results failed", "run_id", runID, "error", err)
			return nil
		}
		slog.Info("run persisted", "run_id", runID, "count", len(results))
	}

	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	dbPath := v.GetString("db")
	if dbPath == "" {
		return fmt.Errorf("database path is required: set --db or RUBRICEVAL_DB")
	}

	db, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	runID := v.GetInt64("run-id")
	if runID == 0 {
		runID, err = db.LatestRunID()
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("no runs stored in database")
		}
		if err != nil {
			return fmt.Errorf("find latest run: %w", err)
		}
	}

	export, err := db.ExportRun(runID)
	if err != nil {
		return fmt.Errorf("export run: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(export); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	return nil
}
