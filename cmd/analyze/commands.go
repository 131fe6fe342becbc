package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"compliance-backend/internal/bootstrap"
	"compliance-backend/internal/shared/config"
	"compliance-backend/internal/shared/telemetry"
)

type rootOptions struct {
	store       string
	provider    string
	concurrency int
	logLevel    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "analyze",
		Short:         "Extract compliance obligations from PDF documents",
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&opts.store, "store", "", "Override STORE_TYPE (memory, file, sqlite, postgres)")
	root.PersistentFlags().StringVar(&opts.provider, "provider", "", "Override LLM_PROVIDER (gemini, genai, openai)")
	root.PersistentFlags().IntVar(&opts.concurrency, "concurrency", 0, "Override EXTRACT_CONCURRENCY")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override LOG_LEVEL")

	root.AddCommand(newRunCmd(opts), newTasksCmd(opts))
	return root
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run [pdf]",
		Short: "Analyze a PDF and print the result",
		Long:  `Analyzes the document, or reports the stored analysis when identical content was analyzed before.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.build(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := app.AnalysesService.AnalyzeDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
}

func newTasksCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks [upload-id]",
		Short: "Print the tasks of a stored analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.build(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			tasks, err := app.AnalysesService.GetTasks(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), tasks)
		},
	}
}

// build loads configuration, applies flag overrides and logs to stderr so
// stdout carries only JSON.
func (o *rootOptions) build(ctx context.Context) (*bootstrap.App, error) {
	cfg := config.Load()
	if o.store != "" {
		cfg.StoreType = o.store
	}
	if o.provider != "" {
		cfg.LLMProvider = o.provider
	}
	if o.concurrency > 0 {
		cfg.ExtractConcurrency = o.concurrency
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if logger, err := telemetry.New(cfg.LogLevel, "stderr"); err == nil {
		telemetry.SetLogger(logger)
	}

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return app, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
