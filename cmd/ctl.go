package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"SpeedSplit/config"
	"SpeedSplit/control"
)

const ctlTimeout = 2 * time.Second

var ctlCmd = &cobra.Command{
	Use:   "ctl <command>",
	Short: "Send a command to a running timer",
	Long: `Send one command to a running SpeedSplit over its control socket.

Commands: start_split, stop_reset, cancel, unsplit, skip, exit (or 0-5).`,
	Args:         cobra.ExactArgs(1),
	ValidArgs:    commandNames(),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, err := control.ParseCommand(args[0])
		if err != nil {
			return err
		}
		cfg, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), ctlTimeout)
		defer cancel()
		reply, err := control.Send(ctx, cfg.Control.Socket, typ)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	},
}

func commandNames() []string {
	var names []string
	for c := control.CmdStartSplit; c.Valid(); c++ {
		names = append(names, c.String())
	}
	return names
}
