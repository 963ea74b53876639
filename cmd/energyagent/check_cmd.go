package main

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/deg-pilot/EnergyAgent/internal/storage"
	"github.com/deg-pilot/EnergyAgent/pkg/solinteg"
)

func newCheckCmdCmd() *cobra.Command {
	var (
		flagRecordID     string
		flagSettingCode  string
		flagPollInterval time.Duration
		flagTimeout      time.Duration
		flagShowRecent   int
	)

	cmd := &cobra.Command{
		Use:   "check-cmd",
		Short: "Poll a device command until it settles",
		Long: `Poll the command status endpoint for a submitted device command until it
succeeds, fails or times out. Every outcome is appended to the local command
log. With --recent N the newest N logged outcomes are printed instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagShowRecent > 0 {
				commandLog, err := storage.OpenCommandLog()
				if err != nil {
					return err
				}
				defer commandLog.Close()
				checks, err := commandLog.Recent(cmd.Context(), flagShowRecent)
				if err != nil {
					return err
				}
				printJSON(checks)
				return nil
			}

			if flagRecordID == "" {
				return errors.New("--record-id is required")
			}
			client := solinteg.NewClientFromEnv()
			result := client.AwaitCommandResult(cmd.Context(), flagRecordID, flagSettingCode, flagPollInterval, flagTimeout)

			storage.LogCheckOutcome(cmd.Context(), storage.CommandCheck{
				RecordID:      flagRecordID,
				SettingCode:   flagSettingCode,
				Success:       result.Success,
				ControlResult: result.ControlResult,
				CurrentValue:  result.CurrentValue,
				ErrorMessage:  result.ErrorMessage,
			})

			printJSON(result)
			if !result.Success {
				log.Warn().Str("record_id", flagRecordID).Str("error", result.ErrorMessage).Msg("command did not succeed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagRecordID, "record-id", "", "Record id returned when the command was submitted")
	cmd.Flags().StringVar(&flagSettingCode, "setting-code", "", "Setting code the command changed")
	cmd.Flags().DurationVar(&flagPollInterval, "poll-interval", 2*time.Second, "Delay between status checks")
	cmd.Flags().DurationVar(&flagTimeout, "timeout", 30*time.Second, "Give up after this long")
	cmd.Flags().IntVar(&flagShowRecent, "recent", 0, "Print the newest N logged outcomes and exit")
	return cmd
}
