package profile

import (
	"context"
	"fmt"
	"os"

	"github.com/endorses/stringmatch/internal/pkg/ahocorasick"
	"github.com/endorses/stringmatch/internal/pkg/capture"
	"github.com/endorses/stringmatch/internal/pkg/cmdutil"
	"github.com/endorses/stringmatch/internal/pkg/logger"
	"github.com/endorses/stringmatch/internal/pkg/matcher"
	"github.com/spf13/cobra"
)

var ProfileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Derive a state reorder map from sample traffic",
	Long: `Scan a capture with the dense Aho-Corasick machine, count how often every
automaton state is entered and write the states most visited first. Passing
the result back with --reorder-map places the hottest states in the dense
table.`,
	PreRun: func(cmd *cobra.Command, args []string) {
		cmdutil.BindMatcherFlags(cmd)
	},
	RunE: runProfile,
}

var (
	readFile     string
	patternsFile string
	outputFile   string
	wholeFrame   bool
)

func runProfile(cmd *cobra.Command, args []string) error {
	if readFile == "" {
		return fmt.Errorf("no capture file given (use --read-file)")
	}
	set, err := cmdutil.LoadPatterns(patternsFile)
	if err != nil {
		return err
	}
	_, opts, err := cmdutil.MatcherConfig(set)
	if err != nil {
		return err
	}
	// Visits are counted by automaton state id, so the machine being
	// profiled must keep the natural numbering.
	opts.ReorderMap = nil

	m, _, err := matcher.Build(matcher.KindAhoCorasick, opts, set.Patterns)
	if err != nil {
		return err
	}

	order, packets, err := Profile(cmd.Context(), m, readFile, capture.Options{WholeFrame: wholeFrame})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputFile != "" {
		// #nosec G304 -- Path is from command line
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create reorder map: %w", err)
		}
		defer f.Close()
		out = f
	}
	if err := ahocorasick.WriteReorderMap(out, order); err != nil {
		return fmt.Errorf("failed to write reorder map: %w", err)
	}
	if outputFile != "" {
		logger.Info("Wrote reorder map",
			"file", outputFile,
			"states", len(order),
			"packets", packets)
	}
	return nil
}

// Profile scans every packet of the capture at path with m and returns the
// automaton states ordered by visit count, with the number of packets read.
func Profile(ctx context.Context, m matcher.Matcher, path string, opts capture.Options) ([]ahocorasick.State, int, error) {
	scanner, ok := m.(matcher.Scanner)
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s cannot be profiled", matcher.ErrUnsupported, m.Kind())
	}

	visits := make([]uint64, m.Stats().States)
	stats, err := capture.ReadFile(ctx, path, opts, func(pkt capture.Packet) error {
		_, err := scanner.Scan(pkt.Payload, ahocorasick.ScanOptions{
			Mode:   ahocorasick.ModeAll,
			Visits: visits,
		})
		return err
	})
	if err != nil {
		return nil, stats.Packets, err
	}
	return ahocorasick.ReorderFromVisits(visits), stats.Packets, nil
}

func init() {
	ProfileCmd.Flags().StringVarP(&readFile, "read-file", "r", "", "pcap or pcapng file with sample traffic")
	ProfileCmd.Flags().StringVarP(&patternsFile, "patterns", "p", "", "pattern file (YAML, or one pattern per line)")
	ProfileCmd.Flags().StringVarP(&outputFile, "output", "o", "", "write the reorder map to this file instead of stdout")
	ProfileCmd.Flags().BoolVar(&wholeFrame, "whole-frame", false, "match the whole frame instead of the application payload")
	cmdutil.AddMatcherFlags(ProfileCmd)
}
