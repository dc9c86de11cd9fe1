package scorecard

import (
	"fmt"
	"strings"
)

type Winner string

const (
	WinnerUnset Winner = ""
	WinnerHome  Winner = "HOME"
	WinnerAway  Winner = "AWAY"
	WinnerTie   Winner = "TIE"
	WinnerNR    Winner = "NR"
)

func ParseWinner(s string) (Winner, error) {
	w := Winner(strings.ToUpper(strings.TrimSpace(s)))
	switch w {
	case WinnerUnset, WinnerHome, WinnerAway, WinnerTie, WinnerNR:
		return w, nil
	}
	return WinnerUnset, fmt.Errorf("unknown winner %q", s)
}

// Overview is the read-only header of the match the form belongs to.
type Overview struct {
	Competition string `json:"competition"`
	MatchName   string `json:"match_name"`
	Format      string `json:"format"`
	HomeTeam    string `json:"home_team"`
	AwayTeam    string `json:"away_team"`
}

// MatchSummaryDraft is the result header of the form.
type MatchSummaryDraft struct {
	HomeScore    string `json:"home_score"`
	HomeWickets  string `json:"home_wickets"`
	HomeOvers    string `json:"home_overs"`
	AwayScore    string `json:"away_score"`
	AwayWickets  string `json:"away_wickets"`
	AwayOvers    string `json:"away_overs"`
	Winner       Winner `json:"winner"`
	TossWinner   string `json:"toss_winner"`
	BattingFirst string `json:"batting_first"`
}

// Form is the whole scorecard entry state for one match.
type Form struct {
	MatchID       int64             `json:"match_id"`
	Overview      Overview          `json:"overview"`
	Summary       MatchSummaryDraft `json:"summary"`
	Innings       [2]InningsCard    `json:"innings"`
	PlayerOfMatch string            `json:"player_of_match"`
}

func NewForm(matchID int64, ov Overview) *Form {
	return &Form{
		MatchID:  matchID,
		Overview: ov,
		Innings:  [2]InningsCard{NewInningsCard(), NewInningsCard()},
	}
}

// ShowRest reports whether the scorecard section is visible; it stays hidden
// until a batting-first team is chosen.
func (f *Form) ShowRest() bool {
	return strings.TrimSpace(f.Summary.BattingFirst) != ""
}

func (f *Form) isTeam(name string) bool {
	return name == f.Overview.HomeTeam || name == f.Overview.AwayTeam
}

// SetBattingFirst chooses which team bats in the first innings. Only the
// home or away team is accepted; "" clears the choice.
func (f *Form) SetBattingFirst(team string) error {
	team = strings.TrimSpace(team)
	if team != "" && !f.isTeam(team) {
		return fmt.Errorf("batting first %q is neither %q nor %q", team, f.Overview.HomeTeam, f.Overview.AwayTeam)
	}
	f.Summary.BattingFirst = team
	return nil
}

func (f *Form) SetTossWinner(team string) error {
	team = strings.TrimSpace(team)
	if team != "" && !f.isTeam(team) {
		return fmt.Errorf("toss winner %q is neither %q nor %q", team, f.Overview.HomeTeam, f.Overview.AwayTeam)
	}
	f.Summary.TossWinner = team
	return nil
}

// InningsTeams returns the batting and bowling team of innings n (0 or 1).
// Both are empty while no batting-first team is chosen.
func (f *Form) InningsTeams(n int) (batting, bowling string) {
	first := f.Summary.BattingFirst
	if first == "" {
		return "", ""
	}
	other := f.Overview.AwayTeam
	if first == f.Overview.AwayTeam {
		other = f.Overview.HomeTeam
	}
	if n == 0 {
		return first, other
	}
	return other, first
}

// Card returns a pointer to innings n (0 or 1).
func (f *Form) Card(n int) (*InningsCard, error) {
	if n != 0 && n != 1 {
		return nil, fmt.Errorf("innings %d: %w", n+1, ErrRowIndex)
	}
	return &f.Innings[n], nil
}

// SetSummaryField updates one header field by its form name.
func (f *Form) SetSummaryField(field, value string) error {
	s := &f.Summary
	switch field {
	case "home_score":
		s.HomeScore = value
	case "home_wickets":
		s.HomeWickets = value
	case "home_overs":
		s.HomeOvers = value
	case "away_score":
		s.AwayScore = value
	case "away_wickets":
		s.AwayWickets = value
	case "away_overs":
		s.AwayOvers = value
	case "winner":
		w, err := ParseWinner(value)
		if err != nil {
			return err
		}
		s.Winner = w
	case "toss_winner":
		return f.SetTossWinner(value)
	case "batting_first":
		return f.SetBattingFirst(value)
	case "player_of_match":
		f.PlayerOfMatch = value
	default:
		return fmt.Errorf("summary %q: %w", field, ErrUnknownField)
	}
	return nil
}

// TracksMinutes reports whether batters' minutes are recorded for a format.
func TracksMinutes(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "t20", "t10", "the hundred":
		return false
	}
	return true
}

func inningsName(n int) string {
	if n == 0 {
		return "First innings"
	}
	return "Second innings"
}
