package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xaitan80/X-Cricket/internal/scorecard"
)

func newTestREST(t *testing.T, h http.HandlerFunc) *REST {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewREST(srv.URL+"/", "anon-key", nil)
}

func TestREST_CallSendsPayloadAndHeaders(t *testing.T) {
	var gotPath, gotKey, gotAuth string
	var gotBody map[string]map[string]any
	c := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	})

	err := c.Session("user-token").Call(context.Background(), scorecard.ProcMatchData, map[string]any{"match_id": 42})
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/rest/v1/rpc/user_submit_match_data" {
		t.Fatalf("path = %s", gotPath)
	}
	if gotKey != "anon-key" || gotAuth != "Bearer user-token" {
		t.Fatalf("headers apikey=%q auth=%q", gotKey, gotAuth)
	}
	if gotBody["payload"]["match_id"] != float64(42) {
		t.Fatalf("body = %v", gotBody)
	}
}

func TestREST_ErrorBodyDecoded(t *testing.T) {
	c := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"P0001","details":null,"hint":"check the match id","message":"match is locked"}`))
	})
	err := c.Session("tok").Call(context.Background(), scorecard.ProcScorecard, struct{}{})
	var ae *APIError
	if !errors.As(err, &ae) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if ae.Status != http.StatusBadRequest || ae.Code != "P0001" || ae.Details != "" {
		t.Fatalf("unexpected %+v", ae)
	}
	if got := scorecard.DescribeError(err); got != "match is locked; code: P0001; hint: check the match id" {
		t.Fatalf("describe = %q", got)
	}
	if got := scorecard.RemoteMessage(err); got != "match is locked" {
		t.Fatalf("remote message = %q", got)
	}
}

func TestREST_ErrorWithoutBody(t *testing.T) {
	c := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	err := c.Session("tok").Call(context.Background(), "x", nil)
	if err == nil || err.Error() != "502 Bad Gateway" {
		t.Fatalf("got %v", err)
	}
}

func TestREST_ActiveSession(t *testing.T) {
	status := http.StatusOK
	c := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"msg":"invalid JWT"}`))
	})
	ctx := context.Background()

	if ok, err := c.Session("tok").ActiveSession(ctx); !ok || err != nil {
		t.Fatalf("valid session: ok=%v err=%v", ok, err)
	}
	status = http.StatusUnauthorized
	if ok, err := c.Session("tok").ActiveSession(ctx); ok || err != nil {
		t.Fatalf("rejected token: ok=%v err=%v", ok, err)
	}
	if ok, err := c.Session("").ActiveSession(ctx); ok || err != nil {
		t.Fatalf("no token: ok=%v err=%v", ok, err)
	}
	status = http.StatusInternalServerError
	if _, err := c.Session("tok").ActiveSession(ctx); err == nil {
		t.Fatalf("server error should surface")
	}
}

func TestREST_MatchExists(t *testing.T) {
	c := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") == "eq.7" {
			_, _ = w.Write([]byte(`[{"id":7}]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})
	s := c.Session("tok")
	if err := s.MatchExists(context.Background(), 7); err != nil {
		t.Fatal(err)
	}
	if err := s.MatchExists(context.Background(), 8); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestREST_Reads(t *testing.T) {
	c := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/v1/match_overview":
			_, _ = w.Write([]byte(`[{"id":5,"competition":"County League","match_name":"Rovers v Town","format":"T20",
				"home_team":"Rovers","away_team":"Town","home_team_id":1,"away_team_id":2,"starts_at":null}]`))
		case "/rest/v1/players":
			if got := r.URL.Query().Get("team_id"); got != "in.(1,2)" {
				t.Errorf("team filter = %q", got)
			}
			_, _ = w.Write([]byte(`[{"id":10,"name":"A. Smith","team_id":1,"role":"batter"}]`))
		case "/rest/v1/teams":
			_, _ = w.Write([]byte(`[{"id":1,"name":"Rovers","short_name":"ROV"},{"id":2,"name":"Town","short_name":"TWN"}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	s := c.Session("")
	ctx := context.Background()

	ov, err := s.MatchOverview(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if ov.HomeTeam != "Rovers" || ov.AwayTeamID != 2 || ov.Format != "T20" {
		t.Fatalf("overview = %+v", ov)
	}
	players, err := s.Players(ctx, []int64{1, 2})
	if err != nil || len(players) != 1 || players[0].Name != "A. Smith" {
		t.Fatalf("players = %+v err=%v", players, err)
	}
	teams, err := s.Teams(ctx, []int64{1, 2})
	if err != nil || len(teams) != 2 || teams[1].ShortName != "TWN" {
		t.Fatalf("teams = %+v err=%v", teams, err)
	}
}

func TestAPIError_IsNotFound(t *testing.T) {
	if !errors.Is(&APIError{Status: 404}, ErrNotFound) {
		t.Fatalf("404 should match ErrNotFound")
	}
	if errors.Is(&APIError{Status: 400}, ErrNotFound) {
		t.Fatalf("400 should not match ErrNotFound")
	}
}
