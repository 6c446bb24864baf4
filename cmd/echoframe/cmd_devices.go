package main

import (
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"
	"github.com/spf13/cobra"

	"github.com/VE7LTX/echoframe/internal/audio"
)

func newDevicesCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "devices",
		Short: "List audio devices visible to the capture stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := portaudio.Initialize(); err != nil {
				return err
			}
			defer portaudio.Terminate()

			catalog, err := audio.NewCatalog()
			if err != nil {
				return err
			}

			direction := audio.Direction(mustGetString(cmd, "direction"))
			match := strings.ToLower(mustGetString(cmd, "match"))
			loopbackOnly, _ := cmd.Flags().GetBool("loopback")

			var devices []audio.Device
			if direction == "" {
				devices = append(catalog.List(audio.DirectionInput), catalog.List(audio.DirectionOutput)...)
			} else {
				devices = catalog.List(direction)
			}
			filtered := devices[:0]
			for _, d := range devices {
				if match != "" && !strings.Contains(strings.ToLower(d.Name), match) {
					continue
				}
				if loopbackOnly && !d.CanLoopback {
					continue
				}
				filtered = append(filtered, d)
			}
			devices = filtered

			if format, _ := cmd.Flags().GetString("output"); format == "text" {
				detail, _ := cmd.Flags().GetBool("detail")
				for _, d := range devices {
					if detail {
						fmt.Printf("%3d  %-40s %-6s %dch @%.0fHz loopback=%v\n",
							d.Index, d.Name, d.Direction, d.MaxChannels, d.DefaultSampleRate, d.CanLoopback)
					} else {
						fmt.Printf("%3d  %s\n", d.Index, d.Name)
					}
				}
				return nil
			}
			return printOutput(cmd, devices)
		},
	}
	c.Flags().String("direction", "", "filter by direction: input or output")
	c.Flags().String("match", "", "case-insensitive substring filter on the device name")
	c.Flags().Bool("loopback", false, "only devices whose playback can be captured")
	c.Flags().Bool("detail", false, "include channels, sample rate and loopback capability in text output")
	return c
}
