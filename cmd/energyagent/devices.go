package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	energyagent "github.com/deg-pilot/EnergyAgent"
	"github.com/deg-pilot/EnergyAgent/pkg/solinteg"
)

func newDevicesCmd() *cobra.Command {
	var flagTopic string

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List inverters linked to the configured account",
		Long: `List the devices linked to the Solinteg account. The listing is cached in
memory and on disk; pass --topic to query one MQTT topic directly instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := solinteg.NewClientFromEnv()

			if flagTopic != "" {
				devices, err := client.GetDevicesByTopic(cmd.Context(), flagTopic)
				if err != nil {
					return err
				}
				printJSON(devices)
				return nil
			}

			devices, err := client.ListLinkedDevices(cmd.Context())
			if err != nil {
				return err
			}
			smart := 0
			for _, device := range devices {
				if energyagent.IsSmartDevice(device.DeviceSn) {
					smart++
				}
			}
			log.Info().
				Int("total", len(devices)).
				Int("smart", smart).
				Msg("linked devices")
			printJSON(devices)
			return nil
		},
	}

	cmd.Flags().StringVar(&flagTopic, "topic", "", "List devices under one MQTT topic instead of the account listing")
	return cmd
}
