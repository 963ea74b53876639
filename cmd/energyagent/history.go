package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	energyagent "github.com/deg-pilot/EnergyAgent"
	"github.com/deg-pilot/EnergyAgent/pkg/solinteg"
)

func newHistoryCmd() *cobra.Command {
	var (
		flagDeviceSn string
		flagStart    string
		flagEnd      string
		flagConfig   bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Fetch device history within a time range",
		Long: `Fetch operational history (default) or configuration history (--config)
for one device. The range uses 'YYYY-MM-DD HH:MM:SS' bounds and may span at
most 24 hours.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagDeviceSn == "" {
				return errors.New("--device-sn is required")
			}
			client := solinteg.NewClientFromEnv()
			tr := solinteg.TimeRange{Start: flagStart, End: flagEnd}
			smart := energyagent.IsSmartDevice(flagDeviceSn)

			var (
				rows []map[string]any
				err  error
			)
			switch {
			case flagConfig && smart:
				rows, err = client.GetSmartDeviceHistoryConfigData(cmd.Context(), flagDeviceSn, tr)
			case flagConfig:
				rows, err = client.GetDeviceHistoryConfigData(cmd.Context(), flagDeviceSn, tr)
			case smart:
				rows, err = client.GetSmartDeviceHistoryData(cmd.Context(), flagDeviceSn, tr)
			default:
				rows, err = client.GetDeviceHistoryData(cmd.Context(), flagDeviceSn, tr)
			}
			if err != nil {
				return err
			}
			printJSON(rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&flagDeviceSn, "device-sn", "", "Device serial number")
	cmd.Flags().StringVar(&flagStart, "start", "", "Range start, 'YYYY-MM-DD HH:MM:SS'")
	cmd.Flags().StringVar(&flagEnd, "end", "", "Range end, 'YYYY-MM-DD HH:MM:SS'")
	cmd.Flags().BoolVar(&flagConfig, "config", false, "Fetch configuration history instead of operational history")
	return cmd
}
