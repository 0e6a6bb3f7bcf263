package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/endorses/stringmatch/internal/pkg/logger"
	"github.com/endorses/stringmatch/internal/pkg/version"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Cleanup(func() {
		cfgFile = ""
		resetFlags(rootCmd.PersistentFlags())
		resetFlags(rootCmd.Flags())
		for _, c := range rootCmd.Commands() {
			resetFlags(c.Flags())
		}
		viper.Reset()
		_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
		logger.SetOutput(os.Stdout)
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains []string
	}{
		{
			name:     "Help lists subcommands",
			args:     []string{"--help"},
			contains: []string{"Multi-pattern string matching", "scan", "match", "profile", "check", "version"},
		},
		{
			name:     "Version",
			args:     []string{"version"},
			contains: []string{version.GetFullVersion()},
		},
		{
			name:     "Verbose version",
			args:     []string{"version", "--verbose"},
			contains: []string{"cpu: avx2="},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
		})
	}
}

func TestRootCommand_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	patterns := filepath.Join(dir, "patterns.txt")
	require.NoError(t, os.WriteFile(patterns, []byte("cat\ndog\n"), 0o600))

	config := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(config, []byte("log:\n  level: warn\nmatcher:\n  backend: wumanber\n"), 0o600))

	out, err := execute(t, "--config", config, "match", "-p", patterns, "HOTDOG")
	require.NoError(t, err)
	assert.Contains(t, out, "HOTDOG: matched\n", "backend comes from the config file")
}

func TestRootCommand_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	patterns := filepath.Join(dir, "patterns.txt")
	require.NoError(t, os.WriteFile(patterns, []byte("cat\ndog\n"), 0o600))

	t.Setenv("STRINGMATCH_MATCHER_BACKEND", "compressed")
	out, err := execute(t, "match", "-p", patterns, "hotdog")
	require.NoError(t, err)
	assert.Contains(t, out, "hotdog: 1\n")
}

func TestRootCommand_BadLogLevel(t *testing.T) {
	_, err := execute(t, "--log-level", "loud", "version")
	assert.Error(t, err)
}
