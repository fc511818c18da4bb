// Command cobotservo drives a 6-DoF cobot arm in high-rate servo mode
// from an asynchronous teleoperation target stream.
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/armteleop/cobotservo/internal/appconfig"
	"github.com/armteleop/cobotservo/internal/logging"
)

var cfg = appconfig.Default()

var rootCmd = &cobra.Command{
	Use:   "cobotservo",
	Short: "Teleoperation servo bridge for a 6-DoF cobot arm",
	Long: `cobotservo converts an asynchronous stream of teleoperation targets
into a continuous sequence of commanded poses delivered to a vendor robot
controller on a strict control-period cadence, with bounded-velocity
interpolation and automatic fault recovery.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&cfg.LogJSON, "log-json", cfg.LogJSON, "emit structured JSON logs instead of console output")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logging.Init(cfg.LogLevel, cfg.LogJSON)
	}

	rootCmd.AddCommand(runCmd, replayCmd, recordConvertCmd)
}

func sessionID() string {
	return uuid.NewString()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
