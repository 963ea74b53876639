package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/deg-pilot/EnergyAgent/internal/env"
)

var rootCmd = &cobra.Command{
	Use:   "energyagent",
	Short: "Household energy agent for the DEG trading pilot",
	Long: `energyagent links household telemetry, the Solinteg inverter cloud and the
DEG beckn gateway. It can recommend trade windows from consumption or
generation data, submit search intents, inspect linked inverters and track
device command completion.`,
}

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()

	rootCmd.AddCommand(
		newRecommendCmd(),
		newTradeCmd(),
		newDevicesCmd(),
		newDeviceDataCmd(),
		newCheckCmdCmd(),
		newHistoryCmd(),
	)
	_ = env.Ensure()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("energyagent command failed")
	}
}
