package check

import (
	"errors"
	"fmt"

	"github.com/endorses/stringmatch/internal/pkg/cmdutil"
	"github.com/endorses/stringmatch/internal/pkg/matcher"
	"github.com/endorses/stringmatch/internal/pkg/patternset"
	"github.com/endorses/stringmatch/internal/pkg/wumanber"
	"github.com/spf13/cobra"
)

// ErrInvalidSet is returned when the pattern set would be rejected.
var ErrInvalidSet = errors.New("pattern set is invalid")

var CheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate a pattern set without scanning",
	Long: `Check a pattern set on a scratch matcher. The first invalid pattern fails
the check; duplicates are listed as warnings since they are skipped when the
set is loaded.`,
	PreRun: func(cmd *cobra.Command, args []string) {
		cmdutil.BindMatcherFlags(cmd)
	},
	RunE: runCheck,
}

var patternsFile string

func runCheck(cmd *cobra.Command, args []string) error {
	set, err := cmdutil.LoadPatterns(patternsFile)
	if err != nil {
		return err
	}
	kind, opts, err := cmdutil.MatcherConfig(set)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "matcher: %s\n", kind)
	fmt.Fprintf(out, "patterns: %d\n", len(set.Patterns))

	if err := matcher.Validate(kind, opts, set.Patterns); err != nil {
		fmt.Fprintf(out, "invalid: %v\n", err)
		return fmt.Errorf("%w: %w", ErrInvalidSet, err)
	}

	var fold func([]byte) []byte
	if kind == matcher.KindWuManber && opts.FoldCase {
		fold = wumanber.Fold
	}
	dups := patternset.Duplicates(set.Patterns, fold)
	for _, d := range dups {
		first := set.Patterns[d.FirstIndex]
		fmt.Fprintf(out, "duplicate: pattern #%d (id %d) repeats #%d (id %d)\n",
			d.Index, d.ID, d.FirstIndex, first.ID)
	}

	unique := len(set.Patterns) - len(dups)
	if kind != matcher.KindWuManber && unique < 2 {
		fmt.Fprintf(out, "invalid: %s needs at least two distinct patterns\n", kind)
		return fmt.Errorf("%w: %w", ErrInvalidSet, matcher.ErrInsufficientPatterns)
	}

	fmt.Fprintln(out, "ok")
	return nil
}

func init() {
	CheckCmd.Flags().StringVarP(&patternsFile, "patterns", "p", "", "pattern file (YAML, or one pattern per line)")
	cmdutil.AddMatcherFlags(CheckCmd)
}
