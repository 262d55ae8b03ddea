package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vkngwrapper/compute/logging"
	"github.com/vkngwrapper/compute/workflow"
)

func newDevicesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List Vulkan physical devices",
		Long: `List every physical device the Vulkan loader reports, with its type,
API version, push constant limit and the queue family a dispatch would use.
Pass the index to --device to pick one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}

			devices, err := workflow.Devices(cfg, logging.Get())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(devices) == 0 {
				fmt.Fprintln(out, "No physical devices found")
				return nil
			}
			for _, d := range devices {
				fmt.Fprintln(out, d)
			}
			return nil
		},
	}
}
