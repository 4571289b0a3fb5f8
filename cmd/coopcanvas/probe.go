package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Bianca-Alexandru/Retele-CoopCanvas/client"
)

func discoverCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find canvas servers on the local network",
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := client.Discover(cmd.Context(), timeout)
			if err != nil {
				return err
			}

			if len(found) == 0 {
				fmt.Println("No servers found")
			}
			for _, f := range found {
				fmt.Printf("%-20s %-22s %-5s %dx%d\n", f.Instance, f.Addr, f.Transport, f.Width, f.Height)
			}

			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Second, "How long to listen for announcements")

	return cmd
}

func probeCmd() *cobra.Command {
	var opts client.Options

	cmd := &cobra.Command{
		Use:   "probe <addr>",
		Short: "Log into a canvas and report what the room looks like",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Addr = args[0]

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			c, err := client.Dial(ctx, opts)
			if err != nil {
				return err
			}
			defer c.Close()

			w, h := c.Size()
			fmt.Printf("Canvas #%d: %dx%d, %d drawable layers, logged in as uid %d\n",
				c.Canvas(), w, h, c.Layers()-1, c.UID())

			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Transport, "transport", "t", "rudp", "rudp, tcp or ws")
	cmd.Flags().Uint8Var(&opts.Canvas, "canvas", 0, "Canvas id")
	cmd.Flags().StringVar(&opts.Name, "name", "probe", "Username")

	return cmd
}
