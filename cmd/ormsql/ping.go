package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func (a *app) pingCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Open the configured database and check the connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel func()
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			start := time.Now()
			drv, err := a.cfg.Open(ctx)
			if err != nil {
				return err
			}
			defer drv.Close()
			a.cfg.Logger().DebugContext(ctx, "ormsql: ping", "dialect", drv.Dialect(), "elapsed", time.Since(start))
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", drv.Dialect())
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "connection timeout")
	return cmd
}
