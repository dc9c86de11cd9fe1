package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xaitan80/X-Cricket/internal/scorecard"
)

var ErrNotFound = errors.New("not found")

type MatchOverview struct {
	ID          int64      `json:"id" db:"id"`
	Competition string     `json:"competition" db:"competition"`
	MatchName   string     `json:"match_name" db:"match_name"`
	Format      string     `json:"format" db:"format"`
	HomeTeam    string     `json:"home_team" db:"home_team"`
	AwayTeam    string     `json:"away_team" db:"away_team"`
	HomeTeamID  int64      `json:"home_team_id" db:"home_team_id"`
	AwayTeamID  int64      `json:"away_team_id" db:"away_team_id"`
	StartsAt    *time.Time `json:"starts_at" db:"starts_at"`
}

type Player struct {
	ID     int64  `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	TeamID int64  `json:"team_id" db:"team_id"`
	Role   string `json:"role" db:"role"`
}

type Team struct {
	ID        int64  `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	ShortName string `json:"short_name" db:"short_name"`
}

// Session is the backend as seen by one caller. Reads and procedure calls
// run with the caller's access token, so row level security applies.
type Session interface {
	scorecard.Remote
	MatchOverview(ctx context.Context, id int64) (MatchOverview, error)
	Players(ctx context.Context, teamIDs []int64) ([]Player, error)
	Teams(ctx context.Context, ids []int64) ([]Team, error)
}

// Backend is constructed once at startup and handed to whatever needs it.
type Backend interface {
	Session(token string) Session
	Close()
}

// APIError is a failure reported by the backend, in PostgREST's error shape.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend returned status %d", e.Status)
}

func (e *APIError) ErrorCode() string    { return e.Code }
func (e *APIError) ErrorDetails() string { return e.Details }
func (e *APIError) ErrorHint() string    { return e.Hint }

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == 404
}
