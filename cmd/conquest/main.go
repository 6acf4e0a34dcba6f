package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/freeeve/galactic-conquest/internal/api"
	"github.com/freeeve/galactic-conquest/internal/auth"
	"github.com/freeeve/galactic-conquest/internal/config"
	"github.com/freeeve/galactic-conquest/internal/logger"
	"github.com/freeeve/galactic-conquest/internal/push"
)

// app carries what every subcommand needs once the root has resolved it.
type app struct {
	cfg    *config.Config
	token  string
	id     auth.Identity
	client *api.Client
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var apiURL, token, logLevel, transport string

	root := &cobra.Command{
		Use:           "conquest",
		Short:         "Play galactic conquest matches from the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("api-url") {
				cfg.APIURL = apiURL
			}
			if cmd.Flags().Changed("token") {
				cfg.Token = token
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if cmd.Flags().Changed("transport") {
				cfg.PushTransport = transport
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger.Init(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Dev: cfg.Dev})

			cred, err := auth.LoadCredential(cfg.Token, cfg.TokenFile)
			if err != nil {
				return err
			}
			id, err := auth.Decode(cred)
			if err != nil {
				return fmt.Errorf("read credential: %w", err)
			}
			a.cfg, a.token, a.id = cfg, cred, id
			a.client = api.NewClient(cfg.APIURL, cred, api.WithTimeout(cfg.HTTPTimeout))
			log.Debug().Int("playerId", id.PlayerID).Bool("admin", id.IsAdmin()).Str("api", cfg.APIURL).Msg("Client configured")
			return nil
		},
	}

	root.PersistentFlags().StringVar(&apiURL, "api-url", "", "Game server base URL (overrides CONQUEST_API_URL)")
	root.PersistentFlags().StringVarP(&token, "token", "t", "", "Bearer credential (overrides CONQUEST_TOKEN)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&transport, "transport", "", "Push transport: ws or redis")

	root.AddCommand(
		newPlayCmd(a),
		newWatchCmd(a),
		newLobbyCmd(a),
		newHistoryCmd(a),
		newCreateCmd(a),
		newJoinCmd(a),
		newStartCmd(a),
	)
	return root
}

// channel builds the configured push transport.
func (a *app) channel() (push.Channel, error) {
	switch a.cfg.PushTransport {
	case config.TransportRedis:
		ch, err := push.NewRedisChannel(a.cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return ch, nil
	default:
		return push.NewWSChannel(a.cfg.WebSocketURL(), a.token), nil
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sig:
			log.Info().Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sig)
	}()
	return ctx, cancel
}

func parseMatchID(arg string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(arg, "#"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid match id %q", arg)
	}
	return id, nil
}
