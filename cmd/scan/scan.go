package scan

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/endorses/stringmatch/internal/pkg/capture"
	"github.com/endorses/stringmatch/internal/pkg/classifier"
	"github.com/endorses/stringmatch/internal/pkg/cmdutil"
	"github.com/endorses/stringmatch/internal/pkg/logger"
	"github.com/endorses/stringmatch/internal/pkg/matcher"
	"github.com/endorses/stringmatch/internal/pkg/metrics"
	"github.com/endorses/stringmatch/internal/pkg/pattern"
	"github.com/endorses/stringmatch/internal/pkg/pcapwriter"
	"github.com/endorses/stringmatch/internal/pkg/pipeline"
	"github.com/endorses/stringmatch/internal/pkg/signals"
	"github.com/endorses/stringmatch/internal/pkg/watcher"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var ScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Match the packets of a capture file against a pattern set",
	Long: `Read a pcap or pcapng file and match every packet payload against the
patterns. In match mode a packet either matches or not; in classify mode it
is assigned the id of the first pattern found, or the number of configured
patterns when no pattern occurs.

The pattern file is reloaded on SIGHUP, and on every change with --watch.`,
	PreRun: func(cmd *cobra.Command, args []string) {
		cmdutil.BindMatcherFlags(cmd)
		_ = viper.BindPFlag("metrics.port", cmd.Flags().Lookup("metrics-port"))
	},
	RunE: runScan,
}

var (
	readFile     string
	patternsFile string
	mode         string
	workers      int
	passes       int
	wholeFrame   bool
	writeMatched string
	watch        bool
)

func runScan(cmd *cobra.Command, args []string) error {
	patternsPath := cmdutil.GetStringConfig("scan.patterns", patternsFile)
	set, err := cmdutil.LoadPatterns(patternsPath)
	if err != nil {
		return err
	}
	kind, opts, err := cmdutil.MatcherConfig(set)
	if err != nil {
		return err
	}
	classifyMode, err := classifier.ParseMode(cmdutil.GetStringConfig("scan.mode", mode))
	if err != nil {
		return err
	}
	if readFile == "" {
		return fmt.Errorf("no capture file given (use --read-file)")
	}

	source := matcher.NewBuffered(kind, opts)
	collector := metrics.New()

	if err := load(source, collector, classifyMode, set.Patterns); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	cleanup := signals.SetupHandler(ctx, cancel)
	defer cleanup()

	if port := viper.GetInt("metrics.port"); port > 0 {
		server := metrics.NewServer(collector, fmt.Sprintf(":%d", port))
		if err := server.Enable(); err != nil {
			return err
		}
		defer func() {
			if err := server.Disable(context.Background()); err != nil {
				logger.Warn("Failed to stop metrics server", "error", err)
			}
		}()
	}

	reload := func() {
		next, err := cmdutil.LoadPatterns(patternsPath)
		if err == nil {
			if next.HasKind && next.Kind != kind {
				logger.Warn("Pattern file names another matcher, keeping the running one",
					"file_matcher", next.Kind.String(),
					"matcher", kind.String())
			}
			err = load(source, collector, classifyMode, next.Patterns)
		}
		collector.ObserveReload(err)
		if err != nil {
			logger.Error("Failed to reload patterns, keeping previous set", "file", patternsPath, "error", err)
		}
	}
	stopReload := signals.SetupReloadHandler(ctx, reload)
	defer stopReload()

	if watch {
		w := watcher.New(patternsPath, reload, watcher.DefaultConfig())
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = w.Stop() }()
	}

	var writer pipeline.PacketWriter
	if writeMatched != "" {
		pw, err := pcapwriter.New(&pcapwriter.Config{FilePath: writeMatched})
		if err != nil {
			return err
		}
		defer func() {
			if err := pw.Close(); err != nil {
				logger.Error("Failed to close matched packet file", "error", err)
			}
		}()
		writer = pw
	}

	p := pipeline.New(pipeline.Config{
		Capture: capture.Options{WholeFrame: wholeFrame},
		Workers: workers,
		Passes:  passes,
	}, source, classifyMode, collector, writer)

	summary, err := p.Run(ctx, readFile)
	if err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), classifyMode, summary)
	return nil
}

// load builds patterns into source and records the build. In classify
// mode pattern ids must stay below the no-match output.
func load(source *matcher.Buffered, collector *metrics.Collector, mode classifier.Mode, patterns []pattern.Pattern) error {
	if mode == classifier.ModeClassify {
		if err := classifier.CheckIDs(patterns); err != nil {
			return err
		}
	}
	if _, err := source.Update(patterns); err != nil {
		return err
	}
	if m := source.Current(); m != nil {
		collector.ObserveCompile(m.Stats(), source.LastBuildDuration())
	}
	return nil
}

func printSummary(out io.Writer, mode classifier.Mode, s pipeline.Summary) {
	fmt.Fprintf(out, "packets: %d\n", s.Counts.Count)
	fmt.Fprintf(out, "bytes: %d\n", s.Counts.ByteCount)
	fmt.Fprintf(out, "matches: %d\n", s.Counts.Matches)
	if s.Counts.Heavy > 0 {
		fmt.Fprintf(out, "heavy: %d\n", s.Counts.Heavy)
	}
	if s.Written > 0 {
		fmt.Fprintf(out, "written: %d\n", s.Written)
	}

	if mode != classifier.ModeClassify {
		return
	}
	outputs := make([]int, 0, len(s.Outputs))
	for o := range s.Outputs {
		outputs = append(outputs, o)
	}
	sort.Ints(outputs)
	for _, o := range outputs {
		fmt.Fprintf(out, "output %d: %d\n", o, s.Outputs[o])
	}
}

func init() {
	ScanCmd.Flags().StringVarP(&readFile, "read-file", "r", "", "pcap or pcapng file to scan")
	ScanCmd.Flags().StringVarP(&patternsFile, "patterns", "p", "", "pattern file (YAML, or one pattern per line)")
	ScanCmd.Flags().StringVar(&mode, "mode", "", "match or classify (default match)")
	ScanCmd.Flags().IntVarP(&workers, "workers", "w", 1, "number of matching goroutines")
	ScanCmd.Flags().IntVar(&passes, "passes", 1, "read the capture this many times, -1 until interrupted")
	ScanCmd.Flags().BoolVar(&wholeFrame, "whole-frame", false, "match the whole frame instead of the application payload")
	ScanCmd.Flags().StringVar(&writeMatched, "write-matched", "", "copy matched packets to this pcap file")
	ScanCmd.Flags().BoolVar(&watch, "watch", false, "reload the pattern file when it changes")
	ScanCmd.Flags().Int("metrics-port", 0, "serve Prometheus metrics on this port (0 disables)")
	cmdutil.AddMatcherFlags(ScanCmd)
}
