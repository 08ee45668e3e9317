package main

import (
	"fmt"
	"io"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"camreview/internal/daemon"
	"camreview/internal/enrich"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Detect critters and trash empty images",
		Long: "Classify every image in the review queue with the vision model and move\n" +
			"images without an animal to today's Trash folder. Requires the server to be\n" +
			"stopped, since both need the ledger lock.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.commandLogger("warn")
			if err != nil {
				return err
			}

			runCfg := *cfg
			runCfg.Server.Bind = ""

			progress := newBatchProgress(cmd.ErrOrStderr())
			d, err := daemon.New(&runCfg, logger, daemon.WithBatchOptions(enrich.WithProgress(progress.update)))
			if err != nil {
				return err
			}
			defer d.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := d.Start(runCtx); err != nil {
				return err
			}

			if _, err := d.StartBatch(enrich.ParseScope(scope)); err != nil {
				return err
			}
			job, _ := d.WaitBatch()
			progress.finish()

			out := cmd.OutOrStdout()
			elapsed := "-"
			if job.FinishedAt != nil {
				elapsed = job.FinishedAt.Sub(job.StartedAt).Round(time.Millisecond).String()
			}
			fmt.Fprintln(out, renderTable([]tableColumn{
				{Header: "Scope"},
				{Header: "Status"},
				{Header: "Images", Align: alignRight},
				{Header: "Critters", Align: alignRight},
				{Header: "Trashed", Align: alignRight},
				{Header: "Failed", Align: alignRight},
				{Header: "Elapsed", Align: alignRight},
			}, [][]string{{
				string(job.Scope),
				job.Status,
				fmt.Sprintf("%d", job.Total),
				fmt.Sprintf("%d", job.Matched),
				fmt.Sprintf("%d", job.Deleted),
				fmt.Sprintf("%d", job.Failed),
				elapsed,
			}}))
			if job.Status == enrich.JobError {
				return fmt.Errorf("batch failed: %s", job.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", string(enrich.ScopeAll), "Images to consider (all, unreviewed)")
	return cmd
}

// batchProgress renders job snapshots as a progress bar when attached to a
// terminal and stays silent otherwise.
type batchProgress struct {
	writer      io.Writer
	interactive bool

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newBatchProgress(w io.Writer) *batchProgress {
	return &batchProgress{writer: w, interactive: shouldColorize(w)}
}

func (p *batchProgress) update(job enrich.Job) {
	if !p.interactive || job.Phase != enrich.PhaseDetecting || job.Total == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		p.bar = progressbar.NewOptions(job.Total,
			progressbar.OptionSetWriter(p.writer),
			progressbar.OptionSetDescription("Detecting critters"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetRenderBlankState(true),
		)
	}
	_ = p.bar.Set(job.Processed)
}

func (p *batchProgress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
