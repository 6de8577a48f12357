package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "policyaudit",
	Short: "PolicyAudit CLI - Policy Assessment and Delta Engine",
	Long: `PolicyAudit CLI assesses cloud governance policy assignments: it
normalizes raw assignment and exemption records, scores security, cost,
compliance and operational impact, matches coverage against a baseline
catalog, and tracks how the posture changes between snapshots.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.policyaudit/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml")

	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))

	rootCmd.AddCommand(newAssessCmd())
	rootCmd.AddCommand(newSnapshotCmd())
	rootCmd.AddCommand(newDeltaCmd())
	rootCmd.AddCommand(newCoverageCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return
		}
		configDir := home + "/.policyaudit"
		_ = os.MkdirAll(configDir, 0700)
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("POLICYAUDIT")
	viper.AutomaticEnv()

	viper.SetDefault("output", "table")

	_ = viper.ReadInConfig()
}

func getOutputFormat() string {
	if outputFormat != "" {
		return outputFormat
	}
	return viper.GetString("output")
}
