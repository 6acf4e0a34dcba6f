// Package apitest provides an in-process game server speaking the command API,
// for tests of the client, the snapshot store and the session.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/galactic-conquest/internal/auth"
	"github.com/freeeve/galactic-conquest/internal/model"
)

const secret = "apitest-secret"

// RecordedCommand is a command as received by the server.
type RecordedCommand struct {
	MatchID  int              `json:"partidaId"`
	PlayerID int              `json:"jugadorId"`
	Kind     model.ActionKind `json:"tipoJugada"`
	Payload  json.RawMessage  `json:"datosJugada"`
}

// Response is what the server answers to a command.
type Response struct {
	Status int
	Reply  *model.CommandReply
	Error  string
}

// CommandHandler decides the answer for a received command.
type CommandHandler func(RecordedCommand) Response

type failure struct {
	status int
	msg    string
}

// Server is a fake game server backed by in-memory matches.
type Server struct {
	mu        sync.Mutex
	jwtMgr    *auth.JWTManager
	matches   map[int]*model.Snapshot
	missions  map[[2]int]model.MissionRecord
	commands  []RecordedCommand
	onCommand CommandHandler
	failNext  map[string]failure
	hits      map[string]int
	joined    map[int][]int
	srv       *httptest.Server
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		jwtMgr:   auth.NewJWTManager(secret),
		matches:  make(map[int]*model.Snapshot),
		missions: make(map[[2]int]model.MissionRecord),
		failNext: make(map[string]failure),
		hits:     make(map[string]int),
		joined:   make(map[int][]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /partidas", s.listMatches)
	mux.HandleFunc("POST /partidas", s.createMatch)
	mux.HandleFunc("GET /partidas/{id}", s.getMatch)
	mux.HandleFunc("POST /partidas/{id}/jugador", s.joinMatch)
	mux.HandleFunc("POST /partidas/{id}/iniciar", s.startMatch)
	mux.HandleFunc("GET /misiones", s.getMissions)
	mux.HandleFunc("POST /jugadas", s.submit)

	s.srv = httptest.NewServer(auth.Middleware(s.jwtMgr)(s.track(mux)))
	t.Cleanup(s.srv.Close)
	return s
}

// URL returns the server's base URL.
func (s *Server) URL() string { return s.srv.URL }

// Token mints a valid credential for the player.
func (s *Server) Token(t testing.TB, playerID int, name string) string {
	t.Helper()
	tok, err := s.jwtMgr.GenerateAccessToken(playerID, name, "")
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return tok
}

// SetMatch replaces the stored state of a match.
func (s *Server) SetMatch(m *model.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.matches[m.ID] = &cp
}

// SetMission assigns a mission to a player.
func (s *Server) SetMission(matchID, playerID int, m model.Mission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := model.MissionRecord{
		ID:        m.ID,
		Fulfilled: m.Fulfilled,
		Mission:   &model.MissionDetail{Description: m.Description},
	}
	s.missions[[2]int{matchID, playerID}] = rec
}

// OnCommand installs the handler for submitted commands. Without one every command succeeds.
func (s *Server) OnCommand(h CommandHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCommand = h
}

// FailNext makes the next request to path fail with the given status and message.
func (s *Server) FailNext(path string, status int, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[path] = failure{status: status, msg: msg}
}

// Commands returns every command received so far.
func (s *Server) Commands() []RecordedCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedCommand(nil), s.commands...)
}

// Hits returns how many requests reached path.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// Joined returns the players that joined a match through the API.
func (s *Server) Joined(matchID int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.joined[matchID]...)
}

func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		f, fail := s.failNext[r.URL.Path]
		delete(s.failNext, r.URL.Path)
		s.mu.Unlock()
		if fail {
			writeError(w, f.status, f.msg)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listMatches(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, 0, len(s.matches))
	for id := range s.matches {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]model.Snapshot, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.matches[id])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createMatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CreatorID int `json:"creadorId"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m := &model.Snapshot{
		ID:      len(s.matches) + 1,
		Status:  model.StatusLobby,
		Players: []model.Player{{ID: body.CreatorID, Name: "Player " + strconv.Itoa(body.CreatorID)}},
	}
	s.matches[m.ID] = m
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) getMatch(w http.ResponseWriter, r *http.Request) {
	m, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) joinMatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PlayerID int `json:"jugadorId"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	m, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if m.HasPlayer(body.PlayerID) {
		writeError(w, http.StatusBadRequest, "El jugador ya está en la partida")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.matches[m.ID]
	stored.Players = append(append([]model.Player(nil), stored.Players...), model.Player{ID: body.PlayerID})
	s.joined[m.ID] = append(s.joined[m.ID], body.PlayerID)
	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) startMatch(w http.ResponseWriter, r *http.Request) {
	m, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[m.ID].Status = model.StatusInProgress
	writeJSON(w, http.StatusOK, map[string]string{"message": "started"})
}

func (s *Server) getMissions(w http.ResponseWriter, r *http.Request) {
	matchID, _ := strconv.Atoi(r.URL.Query().Get("partidaId"))
	playerID, _ := strconv.Atoi(r.URL.Query().Get("jugadorId"))
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.MissionRecord{}
	if rec, ok := s.missions[[2]int{matchID, playerID}]; ok {
		out = append(out, rec)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	var cmd RecordedCommand
	if err := decodeJSON(r, &cmd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if id, ok := auth.IdentityFromContext(r.Context()); ok && cmd.PlayerID != 0 && cmd.PlayerID != id.PlayerID {
		writeError(w, http.StatusForbidden, "No puedes jugar por otro jugador")
		return
	}
	s.mu.Lock()
	s.commands = append(s.commands, cmd)
	h := s.onCommand
	s.mu.Unlock()

	if h == nil {
		writeJSON(w, http.StatusOK, model.CommandReply{})
		return
	}
	resp := h(cmd)
	if resp.Error != "" {
		status := resp.Status
		if status == 0 {
			status = http.StatusBadRequest
		}
		writeError(w, status, resp.Error)
		return
	}
	reply := resp.Reply
	if reply == nil {
		reply = &model.CommandReply{}
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (model.Snapshot, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid match id")
		return model.Snapshot{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Partida no encontrada")
		return model.Snapshot{}, false
	}
	return *m, true
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Error encoding response")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads and decodes JSON from a request body.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
