package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-hclog"
)

// REST talks to a PostgREST style API: tables under /rest/v1, procedures
// under /rest/v1/rpc and the session endpoint under /auth/v1.
type REST struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	log        hclog.Logger
}

var _ Backend = (*REST)(nil)

func NewREST(baseURL, anonKey string, logger hclog.Logger) *REST {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &REST{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: cleanhttp.DefaultPooledClient(),
		log:        logger,
	}
}

func (c *REST) Session(token string) Session {
	return &restSession{c: c, token: token}
}

func (c *REST) Close() {
	c.httpClient.CloseIdleConnections()
}

type restSession struct {
	c     *REST
	token string
}

func (s *restSession) bearer() string {
	if s.token != "" {
		return s.token
	}
	return s.c.anonKey
}

// do sends one request and decodes a 2xx JSON body into result (if non-nil).
func (s *restSession) do(ctx context.Context, method, path string, q url.Values, body any, result any) error {
	u := s.c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", s.c.anonKey)
	req.Header.Set("Authorization", "Bearer "+s.bearer())
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	s.c.log.Debug("backend request", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if result == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(result)
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	e := &APIError{Status: resp.StatusCode}
	var body struct {
		Message          string          `json:"message"`
		Msg              string          `json:"msg"`
		ErrorDescription string          `json:"error_description"`
		Code             json.RawMessage `json:"code"`
		Details          *string         `json:"details"`
		Hint             *string         `json:"hint"`
	}
	if json.Unmarshal(raw, &body) == nil {
		e.Message = firstNonEmpty(body.Message, body.Msg, body.ErrorDescription)
		e.Code = rawCode(body.Code)
		if body.Details != nil {
			e.Details = *body.Details
		}
		if body.Hint != nil {
			e.Hint = *body.Hint
		}
	}
	if e.Message == "" {
		e.Message = strings.TrimSpace(string(raw))
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return e
}

// rawCode accepts both "P0001" and 401 style codes.
func rawCode(r json.RawMessage) string {
	if len(r) == 0 || string(r) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(r, &s) == nil {
		return s
	}
	return string(r)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func (s *restSession) ActiveSession(ctx context.Context) (bool, error) {
	if s.token == "" {
		return false, nil
	}
	err := s.do(ctx, http.MethodGet, "/auth/v1/user", nil, nil, nil)
	if err == nil {
		return true, nil
	}
	var ae *APIError
	if errors.As(err, &ae) && (ae.Status == http.StatusUnauthorized || ae.Status == http.StatusForbidden) {
		return false, nil
	}
	return false, err
}

func (s *restSession) MatchExists(ctx context.Context, matchID int64) error {
	q := url.Values{}
	q.Set("select", "id")
	q.Set("id", "eq."+strconv.FormatInt(matchID, 10))
	q.Set("limit", "1")
	var rows []struct {
		ID int64 `json:"id"`
	}
	if err := s.do(ctx, http.MethodGet, "/rest/v1/matches", q, nil, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("match %d: %w", matchID, ErrNotFound)
	}
	return nil
}

// Call invokes a stored procedure taking a single jsonb argument named payload.
func (s *restSession) Call(ctx context.Context, procedure string, payload any) error {
	return s.do(ctx, http.MethodPost, "/rest/v1/rpc/"+url.PathEscape(procedure), nil,
		map[string]any{"payload": payload}, nil)
}

func (s *restSession) MatchOverview(ctx context.Context, id int64) (MatchOverview, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("id", "eq."+strconv.FormatInt(id, 10))
	var rows []MatchOverview
	if err := s.do(ctx, http.MethodGet, "/rest/v1/match_overview", q, nil, &rows); err != nil {
		return MatchOverview{}, err
	}
	if len(rows) == 0 {
		return MatchOverview{}, fmt.Errorf("match %d: %w", id, ErrNotFound)
	}
	return rows[0], nil
}

func (s *restSession) Players(ctx context.Context, teamIDs []int64) ([]Player, error) {
	q := url.Values{}
	q.Set("select", "id,name,team_id,role")
	q.Set("team_id", "in.("+joinIDs(teamIDs)+")")
	q.Set("order", "name")
	out := []Player{}
	if err := s.do(ctx, http.MethodGet, "/rest/v1/players", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *restSession) Teams(ctx context.Context, ids []int64) ([]Team, error) {
	q := url.Values{}
	q.Set("select", "id,name,short_name")
	q.Set("id", "in.("+joinIDs(ids)+")")
	out := []Team{}
	if err := s.do(ctx, http.MethodGet, "/rest/v1/teams", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
