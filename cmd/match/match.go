package match

import (
	"errors"
	"fmt"
	"io"

	"github.com/endorses/stringmatch/internal/pkg/ahocorasick"
	"github.com/endorses/stringmatch/internal/pkg/cmdutil"
	"github.com/endorses/stringmatch/internal/pkg/matcher"
	"github.com/endorses/stringmatch/internal/pkg/patternset"
	"github.com/spf13/cobra"
)

var MatchCmd = &cobra.Command{
	Use:   "match [input...]",
	Short: "Match inputs given on the command line",
	Long: `Build the pattern set and match every argument against it. For each input
the id of the first pattern found is printed, or "no match". The Wu-Manber
backend cannot rank matches and prints "matched" instead.`,
	Args: cobra.MinimumNArgs(1),
	PreRun: func(cmd *cobra.Command, args []string) {
		cmdutil.BindMatcherFlags(cmd)
	},
	RunE: runMatch,
}

var (
	patternsFile string
	inputHex     bool
	all          bool
)

func runMatch(cmd *cobra.Command, args []string) error {
	set, err := cmdutil.LoadPatterns(patternsFile)
	if err != nil {
		return err
	}
	kind, opts, err := cmdutil.MatcherConfig(set)
	if err != nil {
		return err
	}
	m, _, err := matcher.Build(kind, opts, set.Patterns)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, arg := range args {
		input, err := patternset.Decode(arg, inputHex)
		if err != nil {
			return err
		}
		if all {
			err = printAll(out, m, arg, input)
		} else {
			err = printFirst(out, m, arg, input)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func printFirst(out io.Writer, m matcher.Matcher, arg string, input []byte) error {
	id, err := m.MatchFirst(input)
	switch {
	case err == nil:
		fmt.Fprintf(out, "%s: %d\n", arg, id)
	case errors.Is(err, matcher.ErrNoMatch):
		fmt.Fprintf(out, "%s: no match\n", arg)
	case errors.Is(err, matcher.ErrUnsupported):
		if m.MatchAny(input) {
			fmt.Fprintf(out, "%s: matched\n", arg)
		} else {
			fmt.Fprintf(out, "%s: no match\n", arg)
		}
	default:
		return err
	}
	return nil
}

// printAll lists every occurrence as id@end, end being the offset just past
// the last byte of the pattern.
func printAll(out io.Writer, m matcher.Matcher, arg string, input []byte) error {
	scanner, ok := m.(matcher.Scanner)
	if !ok {
		return fmt.Errorf("%w: %s cannot list occurrences", matcher.ErrUnsupported, m.Kind())
	}
	res, err := scanner.Scan(input, ahocorasick.ScanOptions{Mode: ahocorasick.ModeAll})
	if err != nil {
		return err
	}
	if !res.Matched() {
		fmt.Fprintf(out, "%s: no match\n", arg)
		return nil
	}
	fmt.Fprintf(out, "%s:", arg)
	for _, ev := range res.Events {
		fmt.Fprintf(out, " %d@%d", ev.PatternID, ev.End)
	}
	fmt.Fprintln(out)
	return nil
}

func init() {
	MatchCmd.Flags().StringVarP(&patternsFile, "patterns", "p", "", "pattern file (YAML, or one pattern per line)")
	MatchCmd.Flags().BoolVar(&inputHex, "input-hex", false, "inputs are hex encoded")
	MatchCmd.Flags().BoolVarP(&all, "all", "a", false, "list every occurrence instead of the first match")
	cmdutil.AddMatcherFlags(MatchCmd)
}
