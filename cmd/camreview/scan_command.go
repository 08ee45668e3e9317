package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"camreview/internal/api"
	"camreview/internal/ledger"
	"camreview/internal/media"
	"camreview/internal/mediaroot"
	"camreview/internal/review"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var all bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List media in the review queue",
		Long: "Scan the media root and print each file with its review state.\n" +
			"The ledger is opened read-only, so scan is safe while the server runs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.commandLogger("warn")
			if err != nil {
				return err
			}
			root, err := mediaroot.New(cfg.Paths.MediaRoot)
			if err != nil {
				return fmt.Errorf("media root: %w", err)
			}
			store, err := ledger.Open(cfg.Paths.LedgerPath, ledger.Options{ReadOnly: true, Logger: logger})
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer store.Close()

			opts := []media.Option{media.WithCaptureTime(cfg.Scan.CaptureTime)}
			if all {
				opts = append(opts, media.WithActionFolders())
			}
			catalog := review.NewCatalog(media.NewScanner(root, logger, opts...), store)
			entries, err := catalog.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			counts := review.Tally(entries)
			if !all {
				entries = review.Unreviewed(entries)
			}

			if jsonOutput {
				return writeJSON(cmd, api.ItemsResponse{
					OK:     true,
					Items:  api.FromEntries(entries),
					Counts: api.FromCounts(counts),
				})
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No media to review")
			} else {
				fmt.Fprintln(out, renderTable(scanColumns, scanRows(entries)))
			}
			fmt.Fprintf(out, "%d total, %d reviewed, %d remaining\n", counts.Total, counts.Reviewed, counts.Remaining)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include reviewed items and action folders")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

var scanColumns = []tableColumn{
	{Header: "Path", MaxWidth: 60},
	{Header: "Type"},
	{Header: "Size", Align: alignRight},
	{Header: "Captured"},
	{Header: "Status"},
	{Header: "Critter", MaxWidth: 30},
}

func scanRows(entries []review.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		captured := "-"
		if entry.Item.CapturedAtMs > 0 {
			captured = humanize.Time(time.UnixMilli(entry.Item.CapturedAtMs))
		}
		rows = append(rows, []string{
			entry.Item.Path,
			entry.Item.Type,
			humanize.Bytes(uint64(max(entry.Item.SizeBytes, 0))),
			captured,
			entry.Record.Status,
			critterLabel(entry.Record),
		})
	}
	return rows
}

func critterLabel(rec ledger.Record) string {
	switch {
	case rec.CritterError != nil && *rec.CritterError != "":
		return "error: " + *rec.CritterError
	case rec.Critter == nil:
		return "-"
	case *rec.Critter:
		if rec.CritterConfidence != nil {
			return fmt.Sprintf("yes (%.0f%%)", *rec.CritterConfidence*100)
		}
		return "yes"
	default:
		return "no"
	}
}
