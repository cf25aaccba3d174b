package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/open-feature/flagdemo/pkg/config"
)

var (
	logFormat string
	v         = viper.New()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "flagdemo",
	Short: "Evaluate a feature flag for a user and show its content",
	Long: `flagdemo serves a small web form. Enter a user id and it evaluates the
configured feature flag for that user and shows the flag's content.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(v.GetString(config.LogLevelKey), logFormat)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(level, format string) error {
	log.SetLevel((&config.Config{LogLevel: level}).Level())
	if format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func init() {
	config.Bind(v)
	rootCmd.PersistentFlags().String(config.LogLevelKey, "debug", "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	_ = v.BindPFlag(config.LogLevelKey, rootCmd.PersistentFlags().Lookup(config.LogLevelKey))
}
