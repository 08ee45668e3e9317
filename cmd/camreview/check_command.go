package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"camreview/internal/config"
	"camreview/internal/deps"
	"camreview/internal/services"
	"camreview/internal/services/llm"
)

const llmCheckTimeout = 30 * time.Second

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var skipLLM bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the media root and external dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.commandLogger("warn")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			failed := false

			var pathLines []string
			if info, err := os.Stat(cfg.Paths.MediaRoot); err != nil || !info.IsDir() {
				failed = true
				pathLines = append(pathLines, renderStatusLine("Media root", statusError, cfg.Paths.MediaRoot+" is not a directory", colorize))
			} else {
				pathLines = append(pathLines, renderStatusLine("Media root", statusOK, cfg.Paths.MediaRoot, colorize))
			}
			pathLines = append(pathLines,
				renderStatusLine("Ledger", statusInfo, cfg.Paths.LedgerPath, colorize),
				renderStatusLine("Journal", statusInfo, cfg.Paths.JournalPath, colorize),
			)
			printSection(out, "Paths", colorize, pathLines...)
			fmt.Fprintln(out)

			ffmpeg := deps.NewFFmpegResolver(cfg.FFmpeg.Path, logger).Status()
			kind, message := checkLLM(cmd.Context(), cfg.LLM, skipLLM)
			if kind == statusError {
				failed = true
			}
			printSection(out, "Dependencies", colorize,
				dependencyLine(ffmpeg, colorize),
				renderStatusLine("Vision model", kind, message, colorize),
			)

			if failed {
				return fmt.Errorf("one or more checks failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipLLM, "skip-llm", false, "Do not contact the vision model API")
	return cmd
}

func checkLLM(ctx context.Context, settings config.LLM, skip bool) (statusKind, string) {
	if settings.APIKey == "" {
		return statusWarn, "not configured; set llm.api_key or OPENROUTER_API_KEY"
	}
	if skip {
		return statusInfo, settings.Model + " (not contacted)"
	}
	client := llm.NewClient(llm.Config{
		APIKey:         settings.APIKey,
		BaseURL:        settings.BaseURL,
		Model:          settings.Model,
		Referer:        settings.Referer,
		Title:          settings.Title,
		TimeoutSeconds: settings.TimeoutSeconds,
	}, llm.WithRetryMaxAttempts(1))
	checkCtx, cancel := context.WithTimeout(ctx, llmCheckTimeout)
	defer cancel()
	if err := client.HealthCheck(checkCtx); err != nil {
		return statusError, fmt.Sprintf("%s: %s", settings.Model, services.Code(err))
	}
	return statusOK, settings.Model
}
