package scorecard

import (
	"strconv"
	"strings"
)

// Payload is the body sent to both submission procedures.
type Payload struct {
	MatchID       int64          `json:"match_id"`
	Overview      Overview       `json:"overview"`
	MatchSummary  SummaryPayload `json:"match_summary"`
	FirstInnings  InningsPayload `json:"first_innings"`
	SecondInnings InningsPayload `json:"second_innings"`
	PlayerOfMatch *string        `json:"player_of_match"`
}

type TeamScore struct {
	Score   *int     `json:"score"`
	Wickets *int     `json:"wickets"`
	Overs   *float64 `json:"overs"`
}

type SummaryPayload struct {
	Home         TeamScore `json:"home"`
	Away         TeamScore `json:"away"`
	Winner       *string   `json:"winner"`
	TossWinner   *string   `json:"toss_winner"`
	BattingFirst *string   `json:"batting_first"`
}

type InningsPayload struct {
	BattingTeam *string        `json:"batting_team"`
	BowlingTeam *string        `json:"bowling_team"`
	BattingCard []BattingEntry `json:"batting_card"`
	BowlingCard []BowlingEntry `json:"bowling_card"`
}

type BattingEntry struct {
	RowIdx          int     `json:"row_idx"`
	PlayerName      *string `json:"player_name"`
	DidNotBat       bool    `json:"did_not_bat"`
	DismissalMethod *string `json:"dismissal_method"`
	DismissalRef1   *string `json:"dismissal_ref_1"`
	DismissalRef2   *string `json:"dismissal_ref_2"`
	Runs            *int    `json:"runs"`
	Balls           *int    `json:"balls"`
	Minutes         *int    `json:"minutes"`
	Fours           *int    `json:"fours"`
	Sixes           *int    `json:"sixes"`
	IsCaptain       bool    `json:"is_captain"`
	IsKeeper        bool    `json:"is_keeper"`
}

type BowlingEntry struct {
	RowIdx       int     `json:"row_idx"`
	PlayerName   *string `json:"player_name"`
	Balls        *int    `json:"balls"`
	Maidens      *int    `json:"maidens"`
	RunsConceded *int    `json:"runs_conceded"`
	Wickets      *int    `json:"wickets"`
	Dots         *int    `json:"dots"`
	Wides        *int    `json:"wides"`
	NoBalls      *int    `json:"no_balls"`
}

// ParseIntOrNull coerces form text to an integer. Blank or non-numeric input
// gives nil, so blank and zero stay distinct. A leading integer is accepted
// ("3.9" -> 3, "4x" -> 4).
func ParseIntOrNull(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if v, err := strconv.Atoi(s); err == nil {
		return &v
	}
	end := 0
	if s[0] == '-' || s[0] == '+' {
		end = 1
	}
	digits := end
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		digits++
	}
	if digits == end {
		return nil
	}
	v, err := strconv.Atoi(s[:digits])
	if err != nil {
		return nil
	}
	return &v
}

// ParseFloatOrNull is the decimal counterpart used for overs ("19.4").
func ParseFloatOrNull(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func strOrNull(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Assemble builds the submission payload from the form. It does not validate.
func Assemble(f *Form) Payload {
	s := f.Summary
	p := Payload{
		MatchID:  f.MatchID,
		Overview: f.Overview,
		MatchSummary: SummaryPayload{
			Home: TeamScore{
				Score:   ParseIntOrNull(s.HomeScore),
				Wickets: ParseIntOrNull(s.HomeWickets),
				Overs:   ParseFloatOrNull(s.HomeOvers),
			},
			Away: TeamScore{
				Score:   ParseIntOrNull(s.AwayScore),
				Wickets: ParseIntOrNull(s.AwayWickets),
				Overs:   ParseFloatOrNull(s.AwayOvers),
			},
			Winner:       strOrNull(string(s.Winner)),
			TossWinner:   strOrNull(s.TossWinner),
			BattingFirst: strOrNull(s.BattingFirst),
		},
		PlayerOfMatch: strOrNull(f.PlayerOfMatch),
	}
	minutes := TracksMinutes(f.Overview.Format)
	p.FirstInnings = assembleInnings(f, 0, minutes)
	p.SecondInnings = assembleInnings(f, 1, minutes)
	return p
}

func assembleInnings(f *Form, n int, minutes bool) InningsPayload {
	card := f.Innings[n]
	bat, bowl := f.InningsTeams(n)
	out := InningsPayload{
		BattingTeam: strOrNull(bat),
		BowlingTeam: strOrNull(bowl),
		BattingCard: make([]BattingEntry, 0, len(card.Batting)),
		BowlingCard: make([]BowlingEntry, 0, len(card.Bowling)),
	}
	for i, r := range card.Batting {
		e := BattingEntry{
			RowIdx:     i + 1,
			PlayerName: strOrNull(r.PlayerName),
			DidNotBat:  r.DidNotBat,
			IsCaptain:  r.Captain,
			IsKeeper:   r.Keeper,
		}
		if !r.DidNotBat {
			e.DismissalMethod = strOrNull(string(r.Dismissal))
			e.DismissalRef1 = strOrNull(r.DismissalRef1)
			e.DismissalRef2 = strOrNull(r.DismissalRef2)
			e.Runs = ParseIntOrNull(r.Runs)
			e.Balls = ParseIntOrNull(r.Balls)
			if minutes {
				e.Minutes = ParseIntOrNull(r.Minutes)
			}
			e.Fours = ParseIntOrNull(r.Fours)
			e.Sixes = ParseIntOrNull(r.Sixes)
		}
		out.BattingCard = append(out.BattingCard, e)
	}
	for i, r := range card.Bowling {
		out.BowlingCard = append(out.BowlingCard, BowlingEntry{
			RowIdx:       i + 1,
			PlayerName:   strOrNull(r.PlayerName),
			Balls:        ParseIntOrNull(r.Balls),
			Maidens:      ParseIntOrNull(r.Maidens),
			RunsConceded: ParseIntOrNull(r.RunsConceded),
			Wickets:      ParseIntOrNull(r.Wickets),
			Dots:         ParseIntOrNull(r.Dots),
			Wides:        ParseIntOrNull(r.Wides),
			NoBalls:      ParseIntOrNull(r.NoBalls),
		})
	}
	return out
}
