package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/armteleop/cobotservo/pkg/target"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the servo bridge against a live MQTT teleoperation feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		feeder := target.NewLiveFeeder(target.LiveFeederConfig{
			Host: cfg.BrokerHost,
			Port: cfg.BrokerPort,
		})
		return runSession(context.Background(), cfg, feeder)
	},
}

func init() {
	cfg.BindFlags(runCmd.Flags())
}
