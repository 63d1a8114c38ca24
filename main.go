package main

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/austin1233211/indian-poker-sub000/cmd/demo"
	"github.com/austin1233211/indian-poker-sub000/cmd/verify"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fairdeck",
		Short: "Verifiable-fairness toolkit: commit-reveal randomness and auditable shuffles",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-pretty", true, "Human-readable console logging")

	viper.SetEnvPrefix("FAIRNESS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log-pretty", rootCmd.PersistentFlags().Lookup("log-pretty"))

	rootCmd.AddCommand(verify.New())
	rootCmd.AddCommand(demo.New())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	level, err := zerolog.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if viper.GetBool("log-pretty") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
