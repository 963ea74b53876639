package main

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	energyagent "github.com/deg-pilot/EnergyAgent"
	"github.com/deg-pilot/EnergyAgent/pkg/deg"
)

func newTradeCmd() *cobra.Command {
	var (
		flagRole       string
		flagDataFile   string
		flagWindow     string
		flagQuantity   float64
		flagGatewayURL string
		flagOnSearch   string
		flagSimulate   bool
	)

	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Run the end-to-end trade flow against the DEG gateway",
		Long: `Run the full pilot flow: recommend a time window (or take one via --window),
build the beckn search intent, post it to the gateway and optionally play the
provider side by answering with the canned on_search payload.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			window := flagWindow
			if window == "" {
				agent, err := energyagent.NewAgent(energyagent.Role(flagRole), flagDataFile)
				if err != nil {
					return err
				}
				response, err := agent.DecideEnergyAction(ctx)
				if err != nil {
					return err
				}
				fmt.Println(response)
				window, err = energyagent.ExtractTimeWindow(response)
				if err != nil {
					return err
				}
			}
			log.Info().Str("window", window).Msg("trading on time window")

			payload, err := deg.BuildSearchPayload(window, flagQuantity)
			if err != nil {
				return err
			}
			printJSON(payload)

			gateway := deg.NewGatewayClient(flagGatewayURL)
			status, reply, err := gateway.PostSearch(ctx, payload)
			if err != nil {
				return err
			}
			log.Info().Int("status", status).Msg("gateway answered search")
			printJSON(reply)

			if flagSimulate {
				status, reply, err = gateway.SimulateBPPOnSearch(ctx, flagOnSearch)
				if err != nil {
					return err
				}
				log.Info().Int("status", status).Msg("gateway answered on_search")
				printJSON(reply)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagRole, "role", "consumer", "Agent role: consumer or prosumer")
	cmd.Flags().StringVar(&flagDataFile, "data-file", "data/consumption_data.csv", "Telemetry CSV with timestamp and kWh columns")
	cmd.Flags().StringVar(&flagWindow, "window", "", "Trade window like '2025-09-04 00:00-06:00' (skips the model when set)")
	cmd.Flags().Float64Var(&flagQuantity, "quantity", 10, "Energy quantity in kWh")
	cmd.Flags().StringVar(&flagGatewayURL, "gateway-url", "", "DEG gateway base URL ($DEG_GATEWAY_URL)")
	cmd.Flags().StringVar(&flagOnSearch, "on-search-payload", "", "Path to the canned on_search payload JSON")
	cmd.Flags().BoolVar(&flagSimulate, "simulate-bpp", true, "Answer the search with the canned provider response")
	return cmd
}

func printJSON(value any) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal value to JSON")
		return
	}
	fmt.Println(string(data))
}
