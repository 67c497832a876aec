package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BoweyLou/obssync/internal/config"
	"github.com/BoweyLou/obssync/internal/index"
)

// VerifyResult is the verify command's output payload.
type VerifyResult struct {
	LinkTotal int      `json:"link_total"`
	Problems  []string `json:"problems,omitempty"`
	OK        bool     `json:"ok"`
}

func (r VerifyResult) String() string {
	if r.OK {
		return fmt.Sprintf("ok: %d links verified", r.LinkTotal)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d problem(s) found in %d links:", len(r.Problems), r.LinkTotal)
	for _, p := range r.Problems {
		b.WriteString("\n  ")
		b.WriteString(p)
	}
	return b.String()
}

// NewVerifyCommand creates the verify command: check the link file's
// invariants without modifying anything. Exit code 1 signals a violation,
// 2 signals the check could not run at all.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		obsPath  string
		remPath  string
		linkPath string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check link file invariants",
		Long: "Verify checks that the link file holds a valid one-to-one mapping and,\n" +
			"when the task indices are available, that every link endpoint still\n" +
			"refers to a known task.",
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
			if obsPath != "" {
				cfg.ObsIndexPath = obsPath
			}
			if remPath != "" {
				cfg.RemIndexPath = remPath
			}
			if linkPath != "" {
				cfg.LinkPath = linkPath
			}
			if cfg.LinkPath == "" {
				return NewExitError(ExitCommandError, "links path is required (flag or config file)")
			}

			result := VerifyResult{}

			lf, err := index.ReadLinkFile(cfg.LinkPath)
			var vErr *index.ValidationError
			if errors.As(err, &vErr) {
				// A corrupt link file is the finding, not an infrastructure
				// failure.
				result.Problems = append(result.Problems, vErr.Error())
			} else if err != nil {
				return WrapExitError(ExitCommandError, "loading link file", err)
			} else {
				result.LinkTotal = len(lf.Links)
				result.Problems = append(result.Problems, danglingEndpoints(cfg, lf, formatter)...)
			}

			result.OK = len(result.Problems) == 0
			if outErr := formatter.Success(result); outErr != nil {
				return outErr
			}
			if !result.OK {
				return NewExitError(ExitFailure, fmt.Sprintf("%d invariant violation(s)", len(result.Problems)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&obsPath, "obs-index", "", "path to the Obsidian task index")
	cmd.Flags().StringVar(&remPath, "rem-index", "", "path to the Reminders task index")
	cmd.Flags().StringVar(&linkPath, "links", "", "path to the link file")

	return cmd
}

// danglingEndpoints cross-checks link endpoints against the indices. Skipped
// when index paths are not configured; verify still covers the link file's
// own invariants in that case.
func danglingEndpoints(cfg config.Config, lf *index.LinkFile, formatter *OutputFormatter) []string {
	if cfg.ObsIndexPath == "" || cfg.RemIndexPath == "" {
		formatter.VerboseLog("index paths not configured, skipping referential checks")
		return nil
	}

	var problems []string
	obs, err := index.ReadObsIndex(cfg.ObsIndexPath)
	if err != nil {
		problems = append(problems, fmt.Sprintf("obsidian index: %v", err))
	}
	rem, err := index.ReadRemIndex(cfg.RemIndexPath)
	if err != nil {
		problems = append(problems, fmt.Sprintf("reminders index: %v", err))
	}
	if obs == nil || rem == nil {
		return problems
	}

	for _, l := range lf.Links {
		if _, ok := obs.Tasks[l.ObsUUID]; !ok {
			problems = append(problems, fmt.Sprintf("link %s-%s: obsidian task %s not in index", l.ObsUUID, l.RemUUID, l.ObsUUID))
		}
		if _, ok := rem.Tasks[l.RemUUID]; !ok {
			problems = append(problems, fmt.Sprintf("link %s-%s: reminders task %s not in index", l.ObsUUID, l.RemUUID, l.RemUUID))
		}
	}
	return problems
}
