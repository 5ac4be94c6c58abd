package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"pubsite.dev/pubsite/internal/cli/helpers"
	"pubsite.dev/pubsite/internal/history"
	"pubsite.dev/pubsite/internal/runtime"
	"pubsite.dev/pubsite/internal/tui"
)

// newHistoryCmd creates the history command
func newHistoryCmd() *cobra.Command {
	var (
		limit  int
		latest string
	)

	cmd := &cobra.Command{
		Use:          "history",
		Short:        "Show recent publishes",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				store, err := ctx.History()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()

				if latest != "" {
					rec, err := store.Latest(ctx, latest)
					if errors.Is(err, history.ErrNotFound) {
						ctx.Splog.Info("%s has not been published yet.", latest)
						return nil
					}
					if err != nil {
						return err
					}
					printRecord(out, rec)
					return nil
				}

				records, err := store.List(ctx, limit)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					ctx.Splog.Info("No publishes recorded yet.")
					return nil
				}
				for _, rec := range records {
					printRecord(out, rec)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of publishes to show; 0 shows all")
	cmd.Flags().StringVar(&latest, "latest", "", "Show only the latest successful publish of owner/name")

	return cmd
}

func printRecord(w io.Writer, rec history.Record) {
	sha := rec.CommitSHA
	if len(sha) > 7 {
		sha = sha[:7]
	}
	if sha == "" {
		sha = "-------"
	}

	_, _ = fmt.Fprintf(w, "%s  %s  %s  %s@%s",
		tui.ColorDim(rec.PublishedAt.Local().Format(time.DateTime)),
		colorStatus(rec.Status),
		sha,
		rec.Repository,
		rec.Branch,
	)
	switch {
	case rec.Status == history.StatusFailed && rec.Error != "":
		_, _ = fmt.Fprintf(w, "  %s", tui.ColorRed(rec.Error))
	case rec.PagesURL != "":
		_, _ = fmt.Fprintf(w, "  %s", tui.ColorCyan(rec.PagesURL))
	}
	_, _ = fmt.Fprintln(w)
}

func colorStatus(status history.Status) string {
	label := fmt.Sprintf("%-17s", status)
	switch status {
	case history.StatusPublished:
		return tui.ColorGreen(label)
	case history.StatusPagesUnconfirmed:
		return tui.ColorYellow(label)
	case history.StatusFailed:
		return tui.ColorRed(label)
	default:
		return label
	}
}
