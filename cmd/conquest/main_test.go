package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/galactic-conquest/internal/api"
	"github.com/freeeve/galactic-conquest/internal/api/apitest"
	"github.com/freeeve/galactic-conquest/internal/auth"
	"github.com/freeeve/galactic-conquest/internal/model"
	"github.com/freeeve/galactic-conquest/internal/phase"
	"github.com/freeeve/galactic-conquest/internal/push"
	"github.com/freeeve/galactic-conquest/internal/push/pushtest"
	"github.com/freeeve/galactic-conquest/internal/session"
)

const waitFor = 2 * time.Second

func TestParseMatchID(t *testing.T) {
	id, err := parseMatchID("#12")
	require.NoError(t, err)
	assert.Equal(t, 12, id)

	for _, bad := range []string{"", "abc", "0", "-3"} {
		_, err := parseMatchID(bad)
		assert.Error(t, err, bad)
	}
}

func runCLI(t *testing.T, srv *apitest.Server, token string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CONQUEST_API_URL", srv.URL())
	t.Setenv("CONQUEST_LOG_LEVEL", "error")
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--token", token))
	err := root.Execute()
	return out.String(), err
}

func TestHistoryCommand(t *testing.T) {
	srv := apitest.New(t)
	srv.SetMatch(&model.Snapshot{
		ID:        3,
		Status:    model.StatusFinished,
		Players:   apitest.Players(0, 0),
		Missions:  []model.MissionHolding{{PlayerID: 1}, {PlayerID: 2, Fulfilled: true}},
		UpdatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})

	out, err := runCLI(t, srv, srv.Token(t, 1, "Ada"), "history")
	require.NoError(t, err)
	assert.Contains(t, out, "#3")
	assert.Contains(t, out, "winner: Linus")
	assert.Contains(t, out, "Ada, Linus")
}

func TestLobbyJoinStartCommands(t *testing.T) {
	srv := apitest.New(t)
	token := srv.Token(t, 1, "Ada")

	out, err := runCLI(t, srv, token, "create")
	require.NoError(t, err)
	assert.Contains(t, out, "Created match #1")

	out, err = runCLI(t, srv, token, "join", "1")
	require.NoError(t, err, "creator joining again is not an error")
	assert.Contains(t, out, "Joined match #1")

	out, err = runCLI(t, srv, token, "lobby")
	require.NoError(t, err)
	assert.Contains(t, out, "Open lobbies:")
	assert.Contains(t, out, "#1")

	_, err = runCLI(t, srv, token, "start", "1")
	require.NoError(t, err)
	out, err = runCLI(t, srv, token, "lobby")
	require.NoError(t, err)
	assert.Contains(t, out, "Your matches:\n  #1")
}

func TestMissingCredential(t *testing.T) {
	srv := apitest.New(t)
	_, err := runCLI(t, srv, "", "lobby")
	assert.ErrorIs(t, err, auth.ErrMissingCredential)
}

func startSession(t *testing.T, srv *apitest.Server) *session.Session {
	t.Helper()
	hub := pushtest.New(t, nil)
	token := srv.Token(t, 1, "Ada")
	id, err := auth.Decode(token)
	require.NoError(t, err)

	s := session.New(api.NewClient(srv.URL(), token), push.NewWSChannel(hub.URL(), token), 9, id)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	require.Eventually(t, s.Store().Loaded, waitFor, 10*time.Millisecond)
	return s
}

func TestREPLReinforce(t *testing.T) {
	srv := apitest.New(t)
	srv.SetMatch(apitest.Match(9, 1, apitest.Players(3, 0), apitest.Board()...))
	s := startSession(t, srv)
	require.Equal(t, phase.Reinforce, s.Machine().Phase())

	var out bytes.Buffer
	r := &repl{s: s, out: &out}
	ctx := context.Background()

	assert.False(t, r.exec(ctx, "click endor 2"))
	assert.False(t, r.exec(ctx, "c 3"))
	assert.Equal(t, 0, s.Machine().Remaining())
	assert.Equal(t, 2, s.Machine().Plan().Troops(1))

	assert.False(t, r.exec(ctx, "confirm"))
	cmds := srv.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, model.ActionReinforce, cmds[0].Kind)
	assert.True(t, s.Machine().Plan().Empty())
}

func TestREPLInputErrors(t *testing.T) {
	srv := apitest.New(t)
	srv.SetMatch(apitest.Match(9, 1, apitest.Players(0, 0), apitest.Board()...))
	s := startSession(t, srv)

	var out bytes.Buffer
	r := &repl{s: s, out: &out}
	ctx := context.Background()

	r.exec(ctx, "bogus")
	assert.Contains(t, out.String(), `unknown command "bogus"`)
	r.exec(ctx, "click Hoth")
	assert.Contains(t, out.String(), `no territory "Hoth"`)
	r.exec(ctx, "mode sideways")
	assert.Contains(t, out.String(), `unknown mode "sideways"`)

	r.exec(ctx, "maneuver")
	assert.Equal(t, phase.Maneuver, s.Machine().Mode())
	r.exec(ctx, "click Endor")
	r.exec(ctx, "click Naboo")
	r.exec(ctx, "confirm")
	assert.Contains(t, out.String(), "usage: confirm <troops>")
	assert.Empty(t, srv.Commands())

	assert.True(t, r.exec(ctx, "quit"))
}
