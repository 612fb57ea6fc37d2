package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"schemamirror/internal/config"
)

var (
	envName   string
	exportDir string
	verbose   bool

	rootCmd = &cobra.Command{
		Use:   "schemamirror",
		Short: "Mirror Snowflake schemas and detect drift",
		Long: `SchemaMirror - An operator console for mirroring Snowflake schemas and
comparing a source schema against its mirror across structure, KPIs, and
stored test-case assertions.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.WarnLevel)
			}
		},
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&envName, "env", "e", "", "Named environment from the config file")
	rootCmd.PersistentFlags().StringVar(&exportDir, "export-dir", "", "Directory for CSV report exports")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	_ = viper.BindPFlag("export.directory", rootCmd.PersistentFlags().Lookup("export-dir"))
}

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath(config.GetConfigPath())
	viper.SetEnvPrefix("SCHEMAMIRROR")
	viper.AutomaticEnv()

	// Config file not found is okay; flags and env still apply
	_ = viper.ReadInConfig()
}
