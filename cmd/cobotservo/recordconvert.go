package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/armteleop/cobotservo/pkg/recording"
)

var (
	recordConvertOut  string
	recordConvertKind string
)

// recordConvertCmd loads a recording.Event stream and renders the X
// position of every pose in the chosen event kind as a PNG line plot,
// for offline inspection of a session's trajectory.
var recordConvertCmd = &cobra.Command{
	Use:   "record-convert <recording.jsonl>",
	Short: "Render a recorded session's trajectory to a PNG plot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := recording.Load(args[0])
		if err != nil {
			return err
		}
		pts, err := xSeriesForKind(events, recording.Kind(recordConvertKind))
		if err != nil {
			return err
		}
		if len(pts) == 0 {
			return fmt.Errorf("record-convert: no %q events in %s", recordConvertKind, args[0])
		}

		p := plot.New()
		p.Title.Text = fmt.Sprintf("%s: X position over time (kind=%s)", args[0], recordConvertKind)
		p.X.Label.Text = "time (s)"
		p.Y.Label.Text = "x (mm)"

		if err := plotutil.AddLinePoints(p, recordConvertKind, pts); err != nil {
			return err
		}
		return p.Save(8*vg.Inch, 4*vg.Inch, recordConvertOut)
	},
}

func init() {
	recordConvertCmd.Flags().StringVar(&recordConvertOut, "out", "trajectory.png", "output PNG path")
	recordConvertCmd.Flags().StringVar(&recordConvertKind, "kind", string(recording.KindState), "event kind to plot: target, base, diff_control, control, or state")
}

// xSeriesForKind extracts (time, x) points from every event of the
// given kind. Pos is either a single 6-tuple ([]any of length 6, after
// JSON decoding) or a series of them (control events); for a series,
// every pose in the series is plotted at the event's recorded time.
func xSeriesForKind(events []recording.Event, kind recording.Kind) (plotter.XYs, error) {
	var pts plotter.XYs
	for _, e := range events {
		if e.Kind != kind {
			continue
		}
		switch pos := e.Pos.(type) {
		case []interface{}:
			if len(pos) == 0 {
				continue
			}
			if _, ok := pos[0].([]interface{}); ok {
				for _, row := range pos {
					if r, ok := row.([]interface{}); ok && len(r) > 0 {
						if x, ok := r[0].(float64); ok {
							pts = append(pts, plotter.XY{X: e.Time, Y: x})
						}
					}
				}
				continue
			}
			if x, ok := pos[0].(float64); ok {
				pts = append(pts, plotter.XY{X: e.Time, Y: x})
			}
		}
	}
	return pts, nil
}
