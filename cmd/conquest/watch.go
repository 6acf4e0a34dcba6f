package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/freeeve/galactic-conquest/internal/session"
	"github.com/freeeve/galactic-conquest/internal/surface"
)

func newWatchCmd(a *app) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch <match>",
		Short: "Follow a match without playing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			matchID, err := parseMatchID(args[0])
			if err != nil {
				return err
			}
			ch, err := a.channel()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			s := session.New(a.client, ch, matchID, a.id, session.WithBannerWindow(a.cfg.BannerDuration))
			done := make(chan error, 1)
			go func() { done <- s.Run(ctx) }()

			out := cmd.OutOrStdout()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			var last string
			draw := func() {
				if frame := surface.Render(s.View()); frame != last {
					fmt.Fprintln(out, frame)
					last = frame
				}
			}
			for {
				select {
				case err := <-done:
					draw()
					return err
				case <-ticker.C:
					draw()
				}
			}
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "How often to check for a changed board")
	return cmd
}
