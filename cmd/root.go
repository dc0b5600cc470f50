package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "gwrates",
	Short: "Monte-Carlo rates of joint GW and kilonova detections",
	Long: `gwrates simulates populations of binary neutron star mergers inside a cubic
volume, decides which ones a four-detector gravitational-wave network observes
and which of those a kilonova follow-up survey can see, and reports the number
of joint detections per 2-, 3- and 4-detector coincidence category.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(viper.GetString("log"))
	},
	SilenceUsage: true,
}

// setupLogging sets the global logrus level.
func setupLogging(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logrus.SetLevel(lvl)
	return nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./gwrates.yaml or ~/.config/gwrates/config.yaml)")
	rootCmd.PersistentFlags().String("log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	_ = viper.BindPFlag("log", rootCmd.PersistentFlags().Lookup("log"))
}

// initConfig layers a config file and GWRATES_* environment variables under
// the command-line flags.
func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("gwrates")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "gwrates"))
		}
	}

	viper.SetEnvPrefix("GWRATES")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
