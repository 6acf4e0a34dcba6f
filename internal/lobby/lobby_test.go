package lobby

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/galactic-conquest/internal/api"
	"github.com/freeeve/galactic-conquest/internal/api/apitest"
	"github.com/freeeve/galactic-conquest/internal/model"
	"github.com/freeeve/galactic-conquest/internal/push"
	"github.com/freeeve/galactic-conquest/internal/push/pushtest"
)

func match(id int, status model.Status, players []model.Player, updated time.Time, missions ...model.MissionHolding) model.MatchSummary {
	return model.MatchSummary{ID: id, Status: status, Players: players, UpdatedAt: updated, Missions: missions}
}

var (
	ada   = model.Player{ID: 1, Name: "Ada"}
	linus = model.Player{ID: 2, Name: "Linus"}
	grace = model.Player{ID: 3, Name: "Grace"}
	day   = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
)

func TestSplit(t *testing.T) {
	matches := []model.MatchSummary{
		match(1, model.StatusInProgress, []model.Player{ada, linus}, day),
		match(2, model.StatusInProgress, []model.Player{linus, grace}, day),
		match(3, model.StatusLobby, []model.Player{grace}, day),
		match(4, model.StatusFinished, []model.Player{ada}, day),
	}
	l := Split(matches, ada.ID)
	require.Len(t, l.Active, 1)
	assert.Equal(t, 1, l.Active[0].ID)
	require.Len(t, l.Open, 1)
	assert.Equal(t, 3, l.Open[0].ID)
}

func TestHistory(t *testing.T) {
	matches := []model.MatchSummary{
		match(1, model.StatusFinished, []model.Player{ada, linus}, day, model.MissionHolding{PlayerID: 2, Fulfilled: true}),
		match(2, model.StatusFinished, []model.Player{ada, grace}, day.Add(48*time.Hour), model.MissionHolding{PlayerID: 3}, model.MissionHolding{PlayerID: 1, Fulfilled: true}),
		match(3, model.StatusFinished, []model.Player{ada}, day.Add(24*time.Hour)),
		match(4, model.StatusFinished, []model.Player{linus}, day.Add(72*time.Hour), model.MissionHolding{PlayerID: 2, Fulfilled: true}),
		match(5, model.StatusInProgress, []model.Player{ada}, day.Add(96*time.Hour)),
		match(6, model.StatusFinished, []model.Player{ada}, day.Add(-time.Hour), model.MissionHolding{PlayerID: 9, Fulfilled: true}),
	}
	h := History(matches, ada.ID)
	require.Len(t, h, 4)

	assert.Equal(t, []int{2, 3, 1, 6}, []int{h[0].MatchID, h[1].MatchID, h[2].MatchID, h[3].MatchID})
	assert.Equal(t, "Ada", h[0].Winner)
	assert.True(t, h[0].Won)
	assert.Equal(t, "N/A", h[1].Winner)
	assert.Equal(t, "Linus", h[2].Winner)
	assert.False(t, h[2].Won)
	assert.Equal(t, []string{"Ada", "Linus"}, h[2].Players)
	assert.Equal(t, "Unknown", h[3].Winner)
}

func TestJoinTreatsAlreadyJoinedAsSuccess(t *testing.T) {
	srv := apitest.New(t)
	srv.SetMatch(&model.Snapshot{ID: 5, Status: model.StatusLobby, Players: []model.Player{ada}})
	c := api.NewClient(srv.URL(), srv.Token(t, 2, "Linus"))
	ctx := context.Background()

	require.NoError(t, Join(ctx, c, 5, 2))
	require.NoError(t, Join(ctx, c, 5, 2), "second join is a no-op")
	require.NoError(t, Join(ctx, c, 5, 1), "creator already in match")
	assert.Equal(t, []int{2}, srv.Joined(5))

	assert.ErrorIs(t, Join(ctx, c, 404, 2), api.ErrNotFound)
}

type listings struct {
	mu  sync.Mutex
	got []Listing
}

func (l *listings) add(li Listing, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		l.got = append(l.got, li)
	}
}

func (l *listings) last() (Listing, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.got) == 0 {
		return Listing{}, 0
	}
	return l.got[len(l.got)-1], len(l.got)
}

func TestWatchRelistsOnUpdate(t *testing.T) {
	srv := apitest.New(t)
	srv.SetMatch(&model.Snapshot{ID: 1, Status: model.StatusLobby, Players: []model.Player{grace}})
	hub := pushtest.New(t, nil)
	token := srv.Token(t, 1, "Ada")
	c := api.NewClient(srv.URL(), token)

	var seen listings
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, push.NewWSChannel(hub.URL(), token), c, 1, seen.add) }()

	require.Eventually(t, func() bool { _, n := seen.last(); return n == 1 && hub.Registered(1) }, 2*time.Second, 10*time.Millisecond)
	l, _ := seen.last()
	assert.Len(t, l.Open, 1)
	assert.Empty(t, l.Active)

	srv.SetMatch(&model.Snapshot{ID: 1, Status: model.StatusInProgress, Players: []model.Player{grace, ada}})
	hub.SendToPlayer(1, push.EventMatchesUpdated, struct{}{})
	require.Eventually(t, func() bool { _, n := seen.last(); return n == 2 }, 2*time.Second, 10*time.Millisecond)
	l, _ = seen.last()
	assert.Empty(t, l.Open)
	require.Len(t, l.Active, 1)

	cancel()
	assert.NoError(t, <-done)
}
