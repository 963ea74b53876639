package main

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	energyagent "github.com/deg-pilot/EnergyAgent"
	"github.com/deg-pilot/EnergyAgent/pkg/solinteg"
)

func newDeviceDataCmd() *cobra.Command {
	var (
		flagDeviceSn string
		flagKind     string
	)

	cmd := &cobra.Command{
		Use:   "device-data",
		Short: "Fetch realtime or configuration data for one device",
		Long: `Fetch the current realtime (--kind realtime) or configuration
(--kind config) data of a device. Smart-meter serials are routed to the v2
endpoints automatically.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagDeviceSn == "" {
				return errors.New("--device-sn is required")
			}
			client := solinteg.NewClientFromEnv()
			smart := energyagent.IsSmartDevice(flagDeviceSn)
			log.Info().
				Str("device_sn", flagDeviceSn).
				Str("kind", flagKind).
				Bool("smart", smart).
				Msg("fetching device data")

			var (
				data map[string]any
				err  error
			)
			switch flagKind {
			case "realtime":
				if smart {
					data, err = client.GetSmartDeviceRealtimeData(cmd.Context(), flagDeviceSn)
				} else {
					data, err = client.GetDeviceRealtimeData(cmd.Context(), flagDeviceSn)
				}
			case "config":
				if smart {
					data, err = client.GetSmartDeviceConfigData(cmd.Context(), flagDeviceSn)
				} else {
					data, err = client.GetDeviceConfigData(cmd.Context(), flagDeviceSn)
				}
			default:
				return errors.Errorf("unknown kind %q, expected realtime or config", flagKind)
			}
			if err != nil {
				return err
			}
			printJSON(data)
			return nil
		},
	}

	cmd.Flags().StringVar(&flagDeviceSn, "device-sn", "", "Device serial number")
	cmd.Flags().StringVar(&flagKind, "kind", "realtime", "Data kind: realtime or config")
	return cmd
}
