package surface

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/freeeve/galactic-conquest/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#999999"))

	systemStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#874BFD"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#E74C3C")).
			Padding(0, 1)

	turnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1A1A1A")).
			Background(lipgloss.Color("#04B575")).
			Padding(0, 1)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#F25D94")).
			Padding(0, 1)
)

// View is everything needed to draw one frame of a match.
type View struct {
	PlayerID    int
	Snapshot    *model.Snapshot
	Mission     *model.Mission
	Phase       string
	Mode        string
	Planned     map[int]int
	Remaining   int
	Origin      int
	Destination int
	InFlight    bool

	Error    string
	Turn     string
	Notice   string
	Combat   *model.CombatOutcome
	GameOver *GameOver
	Chat     []ChatLine
}

// Render draws the view as terminal text.
func Render(v View) string {
	if v.Snapshot == nil {
		return infoStyle.Render("Loading match...")
	}
	var parts []string
	parts = append(parts, titleStyle.Render(statusLine(v)))
	if v.Error != "" {
		parts = append(parts, errorStyle.Render(v.Error))
	}
	if v.Turn != "" {
		parts = append(parts, turnStyle.Render(v.Turn))
	}
	if v.Notice != "" {
		parts = append(parts, noticeStyle.Render(v.Notice))
	}
	parts = append(parts, boxStyle.Render(renderBoard(v)))
	parts = append(parts, boxStyle.Render(renderDashboard(v.Snapshot)))
	if v.Mission != nil {
		parts = append(parts, infoStyle.Render("Mission: "+missionText(v.Mission)))
	}
	if len(v.Chat) > 0 {
		parts = append(parts, renderChat(v.Chat))
	}
	if v.Combat != nil {
		parts = append(parts, modalStyle.Render(RenderCombat(v.Combat)))
	}
	if v.GameOver != nil {
		parts = append(parts, modalStyle.Render(renderGameOver(*v.GameOver, v.PlayerID)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func statusLine(v View) string {
	turn := "?"
	if p, ok := v.Snapshot.TurnHolder(); ok {
		turn = p.Name
	}
	line := fmt.Sprintf("Match %d | Turn: %s | Phase: %s", v.Snapshot.ID, turn, v.Phase)
	switch v.Phase {
	case "reinforce":
		line += fmt.Sprintf(" (%d left)", v.Remaining)
	case "action":
		line += " | Mode: " + v.Mode
	}
	if v.InFlight {
		line += " | sending..."
	}
	return line
}

func renderBoard(v View) string {
	snap := v.Snapshot
	bySystem := make(map[string][]model.TerritoryState)
	for _, t := range snap.Territories {
		bySystem[t.System()] = append(bySystem[t.System()], t)
	}
	systems := make([]string, 0, len(bySystem))
	for s := range bySystem {
		systems = append(systems, s)
	}
	sort.Strings(systems)

	var b strings.Builder
	for i, sys := range systems {
		if i > 0 {
			b.WriteString("\n")
		}
		name := sys
		if name == "" {
			name = "Unknown system"
		}
		b.WriteString(systemStyle.Render(name))
		terrs := bySystem[sys]
		sort.Slice(terrs, func(a, c int) bool { return terrs[a].TerritoryID < terrs[c].TerritoryID })
		for _, t := range terrs {
			b.WriteString("\n")
			b.WriteString(territoryLine(v, t))
		}
	}
	return b.String()
}

func territoryLine(v View, t model.TerritoryState) string {
	marker := "  "
	switch t.TerritoryID {
	case v.Origin:
		marker = "* "
	case v.Destination:
		marker = "> "
	}
	owner := "?"
	if p, ok := v.Snapshot.Player(t.OwnerID); ok {
		owner = p.Name
	}
	line := fmt.Sprintf("%s[%d] %-14s %-10s %3d", marker, t.TerritoryID, t.Name(), owner, t.Troops)
	if n := v.Planned[t.TerritoryID]; n > 0 {
		line += fmt.Sprintf(" +%d", n)
	}
	return line
}

// PlayerStats summarizes one player's position on the board.
type PlayerStats struct {
	Player      model.Player
	Territories int
	Troops      int
	Systems     int
	Cards       int
}

// Stats computes per-player dashboard figures in player order.
func Stats(snap *model.Snapshot) []PlayerStats {
	systemOwners := make(map[string]map[int]bool)
	out := make([]PlayerStats, len(snap.Players))
	index := make(map[int]int, len(snap.Players))
	for i, p := range snap.Players {
		out[i] = PlayerStats{Player: p, Cards: snap.CardCount(p.ID)}
		index[p.ID] = i
	}
	for _, t := range snap.Territories {
		if i, ok := index[t.OwnerID]; ok {
			out[i].Territories++
			out[i].Troops += t.Troops
		}
		sys := t.System()
		if sys == "" {
			continue
		}
		if systemOwners[sys] == nil {
			systemOwners[sys] = make(map[int]bool)
		}
		systemOwners[sys][t.OwnerID] = true
	}
	for _, owners := range systemOwners {
		if len(owners) != 1 {
			continue
		}
		for id := range owners {
			if i, ok := index[id]; ok {
				out[i].Systems++
			}
		}
	}
	return out
}

func renderDashboard(snap *model.Snapshot) string {
	lines := []string{fmt.Sprintf("%-10s %5s %6s %7s %5s", "Player", "Terr", "Troops", "Systems", "Cards")}
	for _, s := range Stats(snap) {
		lines = append(lines, fmt.Sprintf("%-10s %5d %6d %7d %5d",
			s.Player.Name, s.Territories, s.Troops, s.Systems, s.Cards))
	}
	return strings.Join(lines, "\n")
}

func missionText(m *model.Mission) string {
	text := m.Description
	if text == "" {
		text = fmt.Sprintf("#%d", m.ID)
	}
	if m.Fulfilled {
		text += " (fulfilled)"
	}
	return text
}

func renderChat(lines []ChatLine) string {
	const shown = 5
	if len(lines) > shown {
		lines = lines[len(lines)-shown:]
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = fmt.Sprintf("%s: %s", l.Author, l.Text)
	}
	return infoStyle.Render(strings.Join(out, "\n"))
}

// RenderCombat formats a combat report.
func RenderCombat(c *model.CombatOutcome) string {
	result := "Territory held"
	if c.Conquered {
		result = "Territory conquered!"
	}
	return strings.Join([]string{
		"Combat report",
		"Attacker dice: " + dice(c.AttackerDice),
		"Defender dice: " + dice(c.DefenderDice),
		fmt.Sprintf("Attacker lost %d, defender lost %d", c.AttackerLosses, c.DefenderLosses),
		result,
		infoStyle.Render("(dismiss to continue)"),
	}, "\n")
}

func dice(values []int) string {
	parts := make([]string, len(values))
	for i, d := range values {
		parts[i] = fmt.Sprintf("[%d]", d)
	}
	return strings.Join(parts, " ")
}

func renderGameOver(g GameOver, playerID int) string {
	headline := "Game over"
	switch {
	case g.WinnerID != 0 && g.WinnerID == playerID:
		headline = "Victory! You won the match"
	case g.WinnerName != "":
		headline = "Game over: " + g.WinnerName + " wins"
	}
	return headline + "\n" + infoStyle.Render("["+g.Exit+"]")
}
