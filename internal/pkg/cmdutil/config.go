// Package cmdutil provides shared utilities for CLI command implementations.
package cmdutil

import (
	"fmt"

	"github.com/endorses/stringmatch/internal/pkg/ahocorasick"
	"github.com/endorses/stringmatch/internal/pkg/matcher"
	"github.com/endorses/stringmatch/internal/pkg/patternset"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config keys of the matcher section.
const (
	KeyBackend           = "matcher.backend"
	KeyCommonStates      = "matcher.common_states"
	KeyUncommonRateLimit = "matcher.uncommon_rate_limit"
	KeyMaxGotosLE        = "matcher.max_gotos_le"
	KeyMaxGotosBM        = "matcher.max_gotos_bm"
	KeyMaxPatterns       = "matcher.max_patterns"
	KeyFoldCase          = "matcher.fold_case"
	KeyReorderMap        = "matcher.reorder_map"
	KeyHex               = "matcher.hex"
)

// GetStringConfig returns the config value for key, or flagValue if the key is not set.
// Flag values take precedence over config file values.
func GetStringConfig(key, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return viper.GetString(key)
}

// GetIntConfig returns the config value for key, or flagValue if the key is not set.
func GetIntConfig(key string, flagValue int) int {
	if viper.IsSet(key) {
		return viper.GetInt(key)
	}
	return flagValue
}

// GetBoolConfig returns the config value for key, or flagValue if the key is not set.
func GetBoolConfig(key string, flagValue bool) bool {
	if viper.IsSet(key) {
		return viper.GetBool(key)
	}
	return flagValue
}

// GetFloat64Config returns the config value for key, or flagValue if the key is not set.
func GetFloat64Config(key string, flagValue float64) float64 {
	if viper.IsSet(key) {
		return viper.GetFloat64(key)
	}
	return flagValue
}

// AddMatcherFlags registers the matcher tuning flags on cmd. Several
// commands share the flags, so they are bound to their config keys only
// when a command runs, by BindMatcherFlags.
func AddMatcherFlags(cmd *cobra.Command) {
	defaults := matcher.DefaultOptions()
	flags := cmd.Flags()

	flags.StringP("matcher", "m", matcher.KindAhoCorasick.String(), "matcher backend (ahocorasick, compressedahocorasick, wumanber)")
	flags.Int("common-states", defaults.CommonStates, "dense table rows for the most visited states")
	flags.Float64("uncommon-rate-limit", defaults.UncommonRateLimit, "uncommon state rate above which a payload is heavy (0 disables)")
	flags.Int("max-gotos-le", defaults.MaxGotosLE, "compressed machine: largest linear transition list")
	flags.Int("max-gotos-bm", defaults.MaxGotosBM, "compressed machine: largest bitmap-encoded state")
	flags.Int("max-patterns", defaults.MaxPatterns, "maximum number of patterns")
	flags.Bool("fold-case", defaults.FoldCase, "wumanber: ASCII case-insensitive matching")
	flags.String("reorder-map", "", "state reorder map produced by 'profile'")
	flags.Bool("hex", false, "patterns are hex encoded")
}

// BindMatcherFlags binds the matcher flags of cmd to their config keys.
func BindMatcherFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	_ = viper.BindPFlag(KeyBackend, flags.Lookup("matcher"))
	_ = viper.BindPFlag(KeyCommonStates, flags.Lookup("common-states"))
	_ = viper.BindPFlag(KeyUncommonRateLimit, flags.Lookup("uncommon-rate-limit"))
	_ = viper.BindPFlag(KeyMaxGotosLE, flags.Lookup("max-gotos-le"))
	_ = viper.BindPFlag(KeyMaxGotosBM, flags.Lookup("max-gotos-bm"))
	_ = viper.BindPFlag(KeyMaxPatterns, flags.Lookup("max-patterns"))
	_ = viper.BindPFlag(KeyFoldCase, flags.Lookup("fold-case"))
	_ = viper.BindPFlag(KeyReorderMap, flags.Lookup("reorder-map"))
	_ = viper.BindPFlag(KeyHex, flags.Lookup("hex"))
}

// MatcherConfig resolves the backend and options for a pattern set.
// Defaults come first, then the settings stored in the pattern file, then
// anything set through flags, environment or the config file.
func MatcherConfig(set *patternset.Set) (matcher.Kind, matcher.Options, error) {
	kind := matcher.KindAhoCorasick
	opts := matcher.DefaultOptions()
	if set != nil {
		opts = set.Apply(opts)
		if set.HasKind {
			kind = set.Kind
		}
	}

	if viper.IsSet(KeyBackend) {
		k, err := matcher.ParseKind(viper.GetString(KeyBackend))
		if err != nil {
			return 0, matcher.Options{}, err
		}
		kind = k
	}

	opts.CommonStates = GetIntConfig(KeyCommonStates, opts.CommonStates)
	opts.UncommonRateLimit = GetFloat64Config(KeyUncommonRateLimit, opts.UncommonRateLimit)
	opts.MaxGotosLE = GetIntConfig(KeyMaxGotosLE, opts.MaxGotosLE)
	opts.MaxGotosBM = GetIntConfig(KeyMaxGotosBM, opts.MaxGotosBM)
	opts.MaxPatterns = GetIntConfig(KeyMaxPatterns, opts.MaxPatterns)
	opts.FoldCase = GetBoolConfig(KeyFoldCase, opts.FoldCase)

	if path := viper.GetString(KeyReorderMap); path != "" {
		order, err := ahocorasick.LoadReorderMap(path)
		if err != nil {
			return 0, matcher.Options{}, fmt.Errorf("failed to load reorder map: %w", err)
		}
		opts.ReorderMap = order
	}

	return kind, opts, nil
}

// LoadPatterns loads the pattern file at path, honouring the hex setting
// for plain text files.
func LoadPatterns(path string) (*patternset.Set, error) {
	if path == "" {
		return nil, fmt.Errorf("no pattern file given (use --patterns)")
	}
	return patternset.LoadAny(path, viper.GetBool(KeyHex))
}
