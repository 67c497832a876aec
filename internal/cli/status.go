package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/BoweyLou/obssync/internal/config"
	"github.com/BoweyLou/obssync/internal/history"
	"github.com/BoweyLou/obssync/internal/index"
)

// StatusResult is the status command's output payload.
type StatusResult struct {
	LinkTotal   int        `json:"link_total"`
	GeneratedAt *time.Time `json:"generated_at,omitempty"`
	ObsTotal    int        `json:"obs_total"`
	RemTotal    int        `json:"rem_total"`
	Runs        []RunInfo  `json:"runs,omitempty"`
}

// RunInfo is one history row in status output.
type RunInfo struct {
	StartedAt time.Time `json:"started_at"`
	Matched   int       `json:"matched"`
	New       int       `json:"links_new"`
	Updated   int       `json:"links_updated"`
	Replaced  int       `json:"links_replaced"`
	Rejected  int       `json:"links_rejected"`
	LinkTotal int       `json:"link_total"`
	Written   bool      `json:"written"`
}

func (r StatusResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d links", r.LinkTotal)
	if r.GeneratedAt != nil {
		fmt.Fprintf(&b, ", generated %s from %d obsidian / %d reminders tasks",
			r.GeneratedAt.Format(time.RFC3339), r.ObsTotal, r.RemTotal)
	}
	for _, run := range r.Runs {
		fmt.Fprintf(&b, "\n%s  matched=%d new=%d updated=%d replaced=%d rejected=%d total=%d",
			run.StartedAt.Format(time.RFC3339), run.Matched,
			run.New, run.Updated, run.Replaced, run.Rejected, run.LinkTotal)
		if !run.Written {
			b.WriteString(" (no write)")
		}
	}
	return b.String()
}

// NewStatusCommand creates the status command: summarize the current link
// file and, when a history database is configured, recent runs.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		linkPath    string
		historyPath string
		limit       int
	)

	cmd := &cobra.Command{
		Use:           "status",
		Short:         "Show the current link set and recent runs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}

			cfg, err := config.Load(rootOpts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "loading config", err)
			}
			if linkPath != "" {
				cfg.LinkPath = linkPath
			}
			if historyPath != "" {
				cfg.HistoryPath = historyPath
			}
			if cfg.LinkPath == "" {
				return NewExitError(ExitCommandError, "links path is required (flag or config file)")
			}

			lf, err := index.ReadLinkFile(cfg.LinkPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "loading link file", err)
			}

			result := StatusResult{
				LinkTotal: len(lf.Links),
				ObsTotal:  lf.Meta.ObsTotal,
				RemTotal:  lf.Meta.RemTotal,
			}
			if !lf.Meta.GeneratedAt.IsZero() {
				ts := lf.Meta.GeneratedAt
				result.GeneratedAt = &ts
			}

			if cfg.HistoryPath != "" {
				store, err := history.Open(cfg.HistoryPath)
				if err != nil {
					return WrapExitError(ExitCommandError, "opening history", err)
				}
				defer store.Close()
				runs, err := store.RecentRuns(cmd.Context(), limit)
				if err != nil {
					return WrapExitError(ExitCommandError, "reading history", err)
				}
				for _, run := range runs {
					result.Runs = append(result.Runs, RunInfo{
						StartedAt: run.StartedAt,
						Matched:   run.Matched,
						New:       run.New,
						Updated:   run.Updated,
						Replaced:  run.Replaced,
						Rejected:  run.Rejected,
						LinkTotal: run.LinkTotal,
						Written:   run.Written,
					})
				}
			}

			return formatter.Success(result)
		},
	}

	cmd.Flags().StringVar(&linkPath, "links", "", "path to the link file")
	cmd.Flags().StringVar(&historyPath, "history", "", "path to the run-history database")
	cmd.Flags().IntVar(&limit, "limit", 10, "number of recent runs to show")

	return cmd
}
