package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/freeeve/galactic-conquest/internal/phase"
	"github.com/freeeve/galactic-conquest/internal/session"
	"github.com/freeeve/galactic-conquest/internal/surface"
)

const replHelp = `Commands:
  click <territory> [n]   select a territory, or plan n troops on it while reinforcing
  confirm [troops]        submit the reinforcement plan, the attack, or a maneuver of troops
  reset                   clear the reinforcement plan
  attack | maneuver       switch action mode
  cancel                  clear the current selection
  end                     finish your turn
  dismiss                 close the combat report and error banner
  say <text>              send a chat message
  show                    redraw the board
  quit                    leave the match`

func newPlayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "play <match>",
		Short: "Play a match interactively",
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

			r := &repl{s: s, out: cmd.OutOrStdout()}
			fmt.Fprintf(r.out, "Playing match #%d as %s. Type 'help' for commands.\n", matchID, a.id.DisplayName())
			return r.loop(ctx, cancel, cmd.InOrStdin(), done)
		},
	}
}

// repl drives a session from line-oriented input.
type repl struct {
	s   *session.Session
	out io.Writer
}

// loop reads commands until the user quits, input ends or the session stops.
// Quitting cancels the session and waits for it so the match room is left.
func (r *repl) loop(ctx context.Context, stop context.CancelFunc, in io.Reader, done <-chan error) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	// Give the initial refresh a moment so the first board is not empty.
	select {
	case <-time.After(200 * time.Millisecond):
	case err := <-done:
		return err
	}
	r.render()

	for {
		select {
		case <-ctx.Done():
			return <-done
		case err := <-done:
			r.render()
			if errors.Is(err, session.ErrDisconnected) {
				fmt.Fprintln(r.out, "Lost connection to the game server.")
			}
			return err
		case line, ok := <-lines:
			if !ok || r.exec(ctx, line) {
				stop()
				return <-done
			}
		}
	}
}

// exec runs one input line and reports whether the user asked to quit.
func (r *repl) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		r.render()
		return false
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	var err error
	switch name {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		fmt.Fprintln(r.out, replHelp)
		return false
	case "show":
	case "click", "c":
		err = r.click(args)
	case "confirm":
		err = r.confirm(ctx, args)
	case "reset":
		r.s.ResetPlan()
	case "mode":
		if len(args) != 1 {
			fmt.Fprintln(r.out, "usage: mode attack|maneuver")
			return false
		}
		err = r.setMode(args[0])
	case "attack", "maneuver":
		err = r.setMode(name)
	case "cancel":
		r.s.Cancel()
	case "end":
		err = r.s.Finalize(ctx)
	case "dismiss":
		r.s.DismissCombat()
		r.s.DismissError()
	case "say":
		if len(args) == 0 {
			fmt.Fprintln(r.out, "usage: say <text>")
			return false
		}
		err = r.s.Say(ctx, strings.Join(args, " "))
	default:
		fmt.Fprintf(r.out, "unknown command %q, type 'help'\n", name)
		return false
	}
	if err != nil {
		log.Debug().Err(err).Str("command", name).Msg("Command failed")
	}
	r.render()
	return false
}

func (r *repl) click(args []string) error {
	if len(args) == 0 || len(args) > 2 {
		fmt.Fprintln(r.out, "usage: click <territory> [n]")
		return nil
	}
	id, ok := r.territory(args[0])
	if !ok {
		fmt.Fprintf(r.out, "no territory %q on this board\n", args[0])
		return nil
	}
	n := 1
	if len(args) == 2 {
		v, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(r.out, "invalid troop count %q\n", args[1])
			return nil
		}
		n = v
	}
	return r.s.Click(id, n)
}

func (r *repl) confirm(ctx context.Context, args []string) error {
	m := r.s.Machine()
	switch {
	case m.Phase() == phase.Reinforce:
		return r.s.ConfirmReinforcement(ctx)
	case m.Mode() == phase.Maneuver:
		if len(args) != 1 {
			fmt.Fprintln(r.out, "usage: confirm <troops>")
			return nil
		}
		troops, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Fprintf(r.out, "invalid troop count %q\n", args[0])
			return nil
		}
		return r.s.ConfirmManeuver(ctx, troops)
	default:
		return r.s.ConfirmAttack(ctx)
	}
}

func (r *repl) setMode(arg string) error {
	mode, ok := phase.ParseMode(arg)
	if !ok {
		fmt.Fprintf(r.out, "unknown mode %q\n", arg)
		return nil
	}
	return r.s.SetMode(mode)
}

// territory resolves an id or a case-insensitive name against the current board.
func (r *repl) territory(arg string) (int, bool) {
	snap := r.s.Store().Current()
	if snap == nil {
		return 0, false
	}
	if id, err := strconv.Atoi(strings.TrimPrefix(arg, "#")); err == nil {
		_, ok := snap.Territory(id)
		return id, ok
	}
	for _, t := range snap.Territories {
		if strings.EqualFold(t.Name(), arg) {
			return t.TerritoryID, true
		}
	}
	return 0, false
}

func (r *repl) render() {
	fmt.Fprintln(r.out, surface.Render(r.s.View()))
}
