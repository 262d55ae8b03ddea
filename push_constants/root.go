package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vkngwrapper/compute/config"
	"github.com/vkngwrapper/compute/logging"
	"github.com/vkngwrapper/compute/workflow"
)

type cli struct {
	v       *viper.Viper
	cfgFile string
}

func newRootCmd() *cobra.Command {
	return newCLI().command()
}

func newCLI() *cli {
	return &cli{v: viper.New()}
}

func (c *cli) command() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   workflow.AppShortName,
		Short: "Transform a storage buffer with a push constant compute kernel",
		Long: `push_constants fills a storage buffer with 0..N-1, dispatches a compute
kernel that computes value*multiple+addend when enabled, reads the buffer
back and checks every element. It prints Success when all of them match.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          c.run,
	}

	pflags := rootCmd.PersistentFlags()
	pflags.StringVar(&c.cfgFile, "config", "", "config file (default is ./config.yaml or $HOME/.pushconst/config.yaml)")
	pflags.Int("device", -1, "physical device index, -1 picks the first with a compute queue")
	pflags.Bool("validation", false, "enable the Khronos validation layer when installed")
	pflags.String("log-level", "info", "log level (trace, debug, info, warn, error)")

	flags := rootCmd.Flags()
	flags.Int("elements", 65536, "number of uint32 elements in the storage buffer")
	flags.Int32("multiple", 1, "push constant multiple")
	flags.Float32("addend", 1, "push constant addend")
	flags.Bool("enable", true, "set the kernel's enable flag; --enable=false leaves the buffer unchanged")
	flags.String("spirv", "", "precompiled SPIR-V kernel instead of the embedded WGSL source")
	flags.Int("runs", 1, "number of dispatches; later runs must match the first")

	c.bind("device.index", pflags.Lookup("device"))
	c.bind("device.validation", pflags.Lookup("validation"))
	c.bind("logging.level", pflags.Lookup("log-level"))
	c.bind("kernel.elements", flags.Lookup("elements"))
	c.bind("push.multiple", flags.Lookup("multiple"))
	c.bind("push.addend", flags.Lookup("addend"))
	c.bind("push.enable", flags.Lookup("enable"))
	c.bind("kernel.spirv_path", flags.Lookup("spirv"))
	c.bind("runs", flags.Lookup("runs"))

	rootCmd.AddCommand(newDevicesCmd(c))
	return rootCmd
}

func (c *cli) bind(key string, flag *pflag.Flag) {
	if err := c.v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// loadConfig merges defaults, the config file, PUSHCONST_ env vars and flags,
// then starts logging.
func (c *cli) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadWith(c.v, c.cfgFile)
	if err != nil {
		return nil, err
	}

	if err := logging.Init(cfg.Logging.Level, cfg.Logging.File, cfg.Logging.Console); err != nil {
		return nil, err
	}
	if used := c.v.ConfigFileUsed(); used != "" {
		logging.Debugf("using config file %s", used)
	}
	return cfg, nil
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}

	result, err := workflow.Run(cmd.Context(), cfg, logging.Get())
	if err != nil {
		return err
	}
	logging.Infof("%d elements on %s in %v", result.Elements, result.Device, result.GPUDuration)

	fmt.Fprintln(cmd.OutOrStdout(), "Success")
	return nil
}
