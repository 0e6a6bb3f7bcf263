package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/endorses/stringmatch/cmd/check"
	"github.com/endorses/stringmatch/cmd/match"
	"github.com/endorses/stringmatch/cmd/profile"
	"github.com/endorses/stringmatch/cmd/scan"
	"github.com/endorses/stringmatch/internal/pkg/constants"
	"github.com/endorses/stringmatch/internal/pkg/logger"
	"github.com/endorses/stringmatch/internal/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:     "stringmatch",
	Short:   "stringmatch finds literal patterns in packets",
	Long:    fmt.Sprintf("stringmatch %s - Multi-pattern string matching for packet payloads", version.GetVersion()),
	Version: version.GetFullVersion(),

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Logs go to stderr so command output on stdout stays parseable.
		logger.SetOutput(cmd.ErrOrStderr())

		level, err := logger.ParseLevel(viper.GetString("log.level"))
		if err != nil {
			return err
		}
		logger.SetLevel(level)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func addSubCommandPalattes() {
	rootCmd.AddCommand(scan.ScanCmd)
	rootCmd.AddCommand(match.MatchCmd)
	rootCmd.AddCommand(profile.ProfileCmd)
	rootCmd.AddCommand(check.CheckCmd)
	rootCmd.AddCommand(versionCmd)
}

func init() {
	cobra.OnInitialize(initConfig)

	logger.Initialize()

	addSubCommandPalattes()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/stringmatch/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Priority order for config files:
		// 1. ~/.config/stringmatch/config.yaml
		// 2. ~/.config/stringmatch.yaml
		// 3. ~/.stringmatch.yaml
		viper.AddConfigPath(filepath.Join(home, ".config", constants.ConfigDirName))
		viper.AddConfigPath(filepath.Join(home, ".config"))
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")

		viper.SetConfigName("config")
		if err := viper.ReadInConfig(); err != nil {
			viper.SetConfigName(".stringmatch")
		}
	}

	viper.SetEnvPrefix(constants.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("log.level", "info")
	viper.SetDefault("metrics.port", 0)

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
