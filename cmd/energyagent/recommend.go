package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	energyagent "github.com/deg-pilot/EnergyAgent"
)

func newRecommendCmd() *cobra.Command {
	var (
		flagRole     string
		flagDataFile string
	)

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Ask the model for recommended trade windows",
		Long: `Summarize a telemetry CSV and ask the model for the best time windows to
order (consumer) or export (prosumer) energy. Prints the raw model answer and
the extracted window.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := energyagent.NewAgent(energyagent.Role(flagRole), flagDataFile)
			if err != nil {
				return err
			}
			response, err := agent.DecideEnergyAction(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(response)

			window, err := energyagent.ExtractTimeWindow(response)
			if err != nil {
				log.Warn().Msg("no time window found in model response")
				return nil
			}
			log.Info().Str("window", window).Msg("selected time window")
			return nil
		},
	}

	cmd.Flags().StringVar(&flagRole, "role", "consumer", "Agent role: consumer or prosumer")
	cmd.Flags().StringVar(&flagDataFile, "data-file", "data/consumption_data.csv", "Telemetry CSV with timestamp and kWh columns")
	return cmd
}
