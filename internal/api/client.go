package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/freeeve/galactic-conquest/internal/model"
)

// Client is the HTTP command channel to the game server for one credential.
type Client struct {
	baseURL string
	httpC   *http.Client
}

type options struct {
	timeout   time.Duration
	transport http.RoundTripper
}

// Option configures a Client.
type Option func(*options)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// NewClient creates a client targeting baseURL that authenticates with the bearer token.
func NewClient(baseURL, token string, opts ...Option) *Client {
	o := options{timeout: 30 * time.Second, transport: http.DefaultTransport}
	for _, opt := range opts {
		opt(&o)
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpC: &http.Client{
			Timeout: o.timeout,
			Transport: &oauth2.Transport{
				Source: src,
				Base:   &loggingTransport{base: o.transport},
			},
		},
	}
}

// GetMatch fetches the full snapshot of a match.
func (c *Client) GetMatch(ctx context.Context, matchID int) (*model.Snapshot, error) {
	var s model.Snapshot
	if err := c.do(ctx, http.MethodGet, "/partidas/"+strconv.Itoa(matchID), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetMission fetches the player's secret mission for a match. Returns nil when none is assigned.
func (c *Client) GetMission(ctx context.Context, matchID, playerID int) (*model.Mission, error) {
	q := url.Values{}
	q.Set("partidaId", strconv.Itoa(matchID))
	q.Set("jugadorId", strconv.Itoa(playerID))

	var records []model.MissionRecord
	if err := c.do(ctx, http.MethodGet, "/misiones?"+q.Encode(), nil, &records); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	m := records[0].ToMission()
	return &m, nil
}

// Submit sends one player intent and returns the server's acknowledgment.
func (c *Client) Submit(ctx context.Context, cmd model.Command) (*model.CommandReply, error) {
	var reply model.CommandReply
	if err := c.do(ctx, http.MethodPost, "/jugadas", cmd, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// ListMatches returns every match visible to the credential.
func (c *Client) ListMatches(ctx context.Context) ([]model.MatchSummary, error) {
	var matches []model.MatchSummary
	if err := c.do(ctx, http.MethodGet, "/partidas", nil, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// CreateMatch opens a new lobby with the given creator.
func (c *Client) CreateMatch(ctx context.Context, creatorID int) (*model.MatchSummary, error) {
	var m model.MatchSummary
	body := map[string]int{"creadorId": creatorID}
	if err := c.do(ctx, http.MethodPost, "/partidas", body, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// JoinMatch adds the player to a lobby.
func (c *Client) JoinMatch(ctx context.Context, matchID, playerID int) error {
	body := map[string]int{"jugadorId": playerID}
	return c.do(ctx, http.MethodPost, "/partidas/"+strconv.Itoa(matchID)+"/jugador", body, nil)
}

// StartMatch starts a lobby (creator only).
func (c *Client) StartMatch(ctx context.Context, matchID int) error {
	return c.do(ctx, http.MethodPost, "/partidas/"+strconv.Itoa(matchID)+"/iniciar", nil, nil)
}

// do issues a JSON request and decodes the reply into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		bodyReader = bytes.NewReader(data)
	} else if method == http.MethodPost {
		bodyReader = bytes.NewReader([]byte("{}"))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpC.Do(req)
	if err != nil {
		return &transportError{op: method + " " + path, err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &transportError{op: method + " " + path, err: err}
	}
	if resp.StatusCode >= 400 {
		return &Error{Method: method, Path: path, Status: resp.StatusCode, Message: errorMessage(body)}
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// errorMessage extracts {"error": "..."} from a failed reply.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
