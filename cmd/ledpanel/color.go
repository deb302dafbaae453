package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dokzlo13/ledpanel/internal/app"
	"github.com/dokzlo13/ledpanel/internal/panel"
)

var colorCmd = &cobra.Command{
	Use:   "color",
	Short: "Set or watch the solid color",
}

var colorSetCmd = &cobra.Command{
	Use:   "set <r> <g> <b> [w]",
	Short: "Fade the LEDs to a solid RGBW color (0-255 per channel)",
	Args:  cobra.RangeArgs(3, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		var channels [4]uint8
		for i, raw := range args {
			v, err := strconv.ParseUint(raw, 10, 8)
			if err != nil {
				return fmt.Errorf("invalid channel value %q (want 0-255)", raw)
			}
			channels[i] = uint8(v)
		}
		color := panel.Color{R: channels[0], G: channels[1], B: channels[2], W: channels[3]}

		return withApp(func(a *app.App) error {
			if err := a.Services().Client.SetColor(cmd.Context(), color); err != nil {
				return err
			}
			fmt.Printf("Color set to %s\n", color)
			return nil
		})
	},
}

var colorWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the color every time it changes, until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			return a.WatchColor(cmd.Context(), func(c panel.Color) {
				fmt.Println(c)
			})
		})
	},
}

func init() {
	colorCmd.AddCommand(colorSetCmd)
	colorCmd.AddCommand(colorWatchCmd)
}
