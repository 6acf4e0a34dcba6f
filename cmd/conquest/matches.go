package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/freeeve/galactic-conquest/internal/lobby"
	"github.com/freeeve/galactic-conquest/internal/model"
)

func newLobbyCmd(a *app) *cobra.Command {
	var follow bool
	cmd := &cobra.Command{
		Use:   "lobby",
		Short: "List your active matches and the lobbies you can join",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !follow {
				matches, err := a.client.ListMatches(cmd.Context())
				if err != nil {
					return err
				}
				printListing(out, lobby.Split(matches, a.id.PlayerID))
				return nil
			}

			ctx, cancel := signalContext()
			defer cancel()
			ch, err := a.channel()
			if err != nil {
				return err
			}
			return lobby.Watch(ctx, ch, a.client, a.id.PlayerID, func(l lobby.Listing, err error) {
				if err != nil {
					fmt.Fprintf(out, "error: %v\n", err)
					return
				}
				printListing(out, l)
			})
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep listening and reprint when matches change")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show your finished matches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			matches, err := a.client.ListMatches(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			records := lobby.History(matches, a.id.PlayerID)
			if len(records) == 0 {
				fmt.Fprintln(out, "No finished matches yet.")
				return nil
			}
			for _, r := range records {
				mark := " "
				if r.Won {
					mark = "*"
				}
				fmt.Fprintf(out, "%s #%-4d %s  winner: %-12s players: %s\n",
					mark, r.MatchID, r.Date.Local().Format("2006-01-02 15:04"), r.Winner, strings.Join(r.Players, ", "))
			}
			return nil
		},
	}
}

func newCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Open a new match lobby",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.client.CreateMatch(cmd.Context(), a.id.PlayerID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created match #%d\n", m.ID)
			return nil
		},
	}
}

func newJoinCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "join <match>",
		Short: "Join an open match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			matchID, err := parseMatchID(args[0])
			if err != nil {
				return err
			}
			if err := lobby.Join(cmd.Context(), a.client, matchID, a.id.PlayerID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Joined match #%d\n", matchID)
			return nil
		},
	}
}

func newStartCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "start <match>",
		Short: "Start a match you created",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			matchID, err := parseMatchID(args[0])
			if err != nil {
				return err
			}
			if err := a.client.StartMatch(cmd.Context(), matchID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Started match #%d\n", matchID)
			return nil
		},
	}
}

func printListing(w io.Writer, l lobby.Listing) {
	fmt.Fprintln(w, "Your matches:")
	if len(l.Active) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, m := range l.Active {
		fmt.Fprintf(w, "  #%-4d %s\n", m.ID, playerNames(m))
	}
	fmt.Fprintln(w, "Open lobbies:")
	if len(l.Open) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, m := range l.Open {
		fmt.Fprintf(w, "  #%-4d %d player(s): %s\n", m.ID, len(m.Players), playerNames(m))
	}
}

func playerNames(m model.MatchSummary) string {
	names := make([]string, 0, len(m.Players))
	for _, p := range m.Players {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}
