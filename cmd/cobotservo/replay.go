package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/armteleop/cobotservo/internal/appconfig"
	"github.com/armteleop/cobotservo/pkg/target"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Run the servo bridge against a recorded JSON-Lines target trace",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.Feeder = string(appconfig.FeederReplay)
		if err := cfg.Validate(); err != nil {
			return err
		}
		msgs, err := target.LoadReplay(cfg.ReplayPath)
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			return fmt.Errorf("replay: %s contains no messages", cfg.ReplayPath)
		}
		feeder := target.NewReplayFeeder(msgs)
		// deterministic replay runs should never silently drop the
		// earliest targets while the servo loop is still starting up.
		cfg.WaitForRobot = true
		return runSession(context.Background(), cfg, feeder)
	},
}

func init() {
	cfg.BindFlags(replayCmd.Flags())
}
