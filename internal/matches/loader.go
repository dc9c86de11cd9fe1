package matches

import (
	"context"
	"fmt"

	"github.com/xaitan80/X-Cricket/internal/backend"
	"github.com/xaitan80/X-Cricket/internal/scorecard"
)

// LoadPage fetches overview, players and teams one after another. The first
// failure aborts the load; there is no partial page.
func LoadPage(ctx context.Context, s backend.Session, matchID int64) (Page, error) {
	ov, err := s.MatchOverview(ctx, matchID)
	if err != nil {
		return Page{}, fmt.Errorf("load match overview: %w", err)
	}
	ids := []int64{ov.HomeTeamID, ov.AwayTeamID}
	players, err := s.Players(ctx, ids)
	if err != nil {
		return Page{}, fmt.Errorf("load players: %w", err)
	}
	teams, err := s.Teams(ctx, ids)
	if err != nil {
		return Page{}, fmt.Errorf("load teams: %w", err)
	}
	return Page{Overview: ov, Players: players, Teams: teams}, nil
}

func formOverview(ov backend.MatchOverview) scorecard.Overview {
	return scorecard.Overview{
		Competition: ov.Competition,
		MatchName:   ov.MatchName,
		Format:      ov.Format,
		HomeTeam:    ov.HomeTeam,
		AwayTeam:    ov.AwayTeam,
	}
}
