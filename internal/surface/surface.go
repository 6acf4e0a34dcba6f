// Package surface manages what the player is shown: transient banners,
// the combat report, the game-over overlay and the chat log.
package surface

import (
	"sync"
	"time"

	"github.com/freeeve/galactic-conquest/internal/model"
)

// DefaultWindow is how long error and turn banners stay up.
const DefaultWindow = 3 * time.Second

const (
	chatHistory  = 50
	turnMessage  = "It's your turn!"
	exitToLobby  = "Back to lobby"
	unknownError = "Something went wrong"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Banner is a message shown until a deadline.
type Banner struct {
	Message string
	Until   time.Time
}

func (b *Banner) activeAt(now time.Time) bool {
	return b != nil && now.Before(b.Until)
}

// GameOver is the terminal overlay of a finished match.
type GameOver struct {
	WinnerID   int
	WinnerName string
	// Exit labels the single action the overlay offers.
	Exit string
}

// Decided reports whether the overlay names a winner.
func (g GameOver) Decided() bool { return g.WinnerID != 0 || g.WinnerName != "" }

// ChatLine is one chat message.
type ChatLine struct {
	Author string
	Text   string
}

// Surface holds the presentation state of one match session.
type Surface struct {
	mu     sync.Mutex
	clock  Clock
	window time.Duration

	errBanner  *Banner
	turnBanner *Banner
	notice     *Banner
	turns      TurnWatcher
	combat     *model.CombatOutcome
	gameOver   *GameOver
	chat       []ChatLine
}

// New creates a surface. A nil clock uses the wall clock and a non-positive window uses DefaultWindow.
func New(clock Clock, window time.Duration) *Surface {
	if clock == nil {
		clock = SystemClock
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Surface{clock: clock, window: window}
}

// ShowError replaces the error banner and restarts its timer.
func (s *Surface) ShowError(msg string) {
	if msg == "" {
		msg = unknownError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errBanner = &Banner{Message: msg, Until: s.clock.Now().Add(s.window)}
}

// ErrorBanner returns the error message while it is displayed.
func (s *Surface) ErrorBanner() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active(&s.errBanner)
}

// DismissError hides the error banner.
func (s *Surface) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errBanner = nil
}

// ObserveTurn feeds a snapshot to the turn watcher and raises the turn banner
// on a transition into holding the turn. It reports whether the banner fired.
func (s *Surface) ObserveTurn(snap *model.Snapshot, playerID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	fired := s.turns.Observe(snap, playerID)
	switch {
	case fired:
		s.turnBanner = &Banner{Message: turnMessage, Until: s.clock.Now().Add(s.window)}
	case !s.turns.Holder():
		s.turnBanner = nil
	}
	return fired
}

// TurnBanner returns the turn alert while it is displayed.
func (s *Surface) TurnBanner() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active(&s.turnBanner)
}

// DismissTurn hides the turn banner.
func (s *Surface) DismissTurn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turnBanner = nil
}

// Notify shows an informational notice, such as a player joining.
func (s *Surface) Notify(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = &Banner{Message: msg, Until: s.clock.Now().Add(s.window)}
}

// Notice returns the informational notice while it is displayed.
func (s *Surface) Notice() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active(&s.notice)
}

// ShowCombat holds a combat report until it is dismissed.
func (s *Surface) ShowCombat(c *model.CombatOutcome) {
	if c == nil {
		return
	}
	cp := *c
	s.mu.Lock()
	defer s.mu.Unlock()
	s.combat = &cp
}

// Combat returns the held combat report, if any.
func (s *Surface) Combat() *model.CombatOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.combat
}

// DismissCombat drops the combat report.
func (s *Surface) DismissCombat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.combat = nil
}

// ShowGameOver raises the game-over overlay. It is never cleared. The first
// winner reported sticks; an overlay raised without a winner takes the next one.
func (s *Surface) ShowGameOver(winnerID int, winnerName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := GameOver{WinnerID: winnerID, WinnerName: winnerName, Exit: exitToLobby}
	if s.gameOver != nil && (s.gameOver.Decided() || !next.Decided()) {
		return
	}
	s.gameOver = &next
}

// GameOver returns the overlay once the match has ended.
func (s *Surface) GameOver() (GameOver, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gameOver == nil {
		return GameOver{}, false
	}
	return *s.gameOver, true
}

// AddChat appends a chat line, keeping the most recent ones.
func (s *Surface) AddChat(author, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat = append(s.chat, ChatLine{Author: author, Text: text})
	if len(s.chat) > chatHistory {
		s.chat = append([]ChatLine(nil), s.chat[len(s.chat)-chatHistory:]...)
	}
}

// Chat returns the chat log, oldest first.
func (s *Surface) Chat() []ChatLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChatLine(nil), s.chat...)
}

// active returns the banner's message, dropping it once expired. Caller holds mu.
func (s *Surface) active(b **Banner) (string, bool) {
	if !(*b).activeAt(s.clock.Now()) {
		*b = nil
		return "", false
	}
	return (*b).Message, true
}
