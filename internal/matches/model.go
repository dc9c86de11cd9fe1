package matches

import (
	"time"

	"github.com/xaitan80/X-Cricket/internal/backend"
	"github.com/xaitan80/X-Cricket/internal/scorecard"
)

// Page is everything the entry form needs before the user types anything.
type Page struct {
	Overview backend.MatchOverview `json:"overview"`
	Players  []backend.Player      `json:"players"`
	Teams    []backend.Team        `json:"teams"`
}

// Draft is one open scorecard form. Form and Payload hold JSON.
type Draft struct {
	ID        string  `gorm:"primaryKey"`
	MatchID   int64   `gorm:"index"`
	Form      string
	Phase     string
	Payload   *string
	CreatedBy *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Draft) TableName() string { return "drafts" }

// Attempt is one submission try, kept after the draft itself is gone.
type Attempt struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	DraftID   string    `json:"draft_id"`
	MatchID   int64     `json:"match_id"`
	Kind      string    `json:"kind"`
	Phase     string    `json:"phase"`
	OK        bool      `json:"ok"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func (Attempt) TableName() string { return "submission_attempts" }

// ----- API views -----

type refFieldView struct {
	Slot  int    `json:"slot"`
	Role  string `json:"role"`
	Label string `json:"label"`
}

type battingView struct {
	scorecard.BattingRow
	Fields      []refFieldView `json:"dismissal_fields"`
	Description string         `json:"description"`
}

type inningsView struct {
	Name        string                 `json:"name"`
	BattingTeam string                 `json:"batting_team"`
	BowlingTeam string                 `json:"bowling_team"`
	Batting     []battingView          `json:"batting_rows"`
	Bowling     []scorecard.BowlingRow `json:"bowling_rows"`
	CanAddBat   bool                   `json:"can_add_batting"`
	CanAddBowl  bool                   `json:"can_add_bowling"`
}

type draftView struct {
	ID            string                      `json:"id"`
	MatchID       int64                       `json:"match_id"`
	Overview      scorecard.Overview          `json:"overview"`
	Summary       scorecard.MatchSummaryDraft `json:"match_summary"`
	PlayerOfMatch string                      `json:"player_of_match"`
	ShowRest      bool                        `json:"show_rest"`
	TracksMinutes bool                        `json:"tracks_minutes"`
	Innings       []inningsView               `json:"innings,omitempty"`
	Phase         scorecard.Phase             `json:"phase"`
	State         scorecard.State             `json:"state"`
	UpdatedAt     time.Time                   `json:"updated_at"`
}

func fieldViews(m scorecard.DismissalMethod) []refFieldView {
	fs := scorecard.DetailFields(m)
	out := make([]refFieldView, 0, len(fs))
	for _, f := range fs {
		out = append(out, refFieldView{Slot: f.Slot, Role: string(f.Role), Label: f.Label})
	}
	return out
}

func toView(d Draft, f *scorecard.Form, state scorecard.State) draftView {
	v := draftView{
		ID:            d.ID,
		MatchID:       d.MatchID,
		Overview:      f.Overview,
		Summary:       f.Summary,
		PlayerOfMatch: f.PlayerOfMatch,
		ShowRest:      f.ShowRest(),
		TracksMinutes: scorecard.TracksMinutes(f.Overview.Format),
		Phase:         scorecard.Phase(d.Phase),
		State:         state,
		UpdatedAt:     d.UpdatedAt,
	}
	// Innings stay hidden until batting first is chosen.
	if !v.ShowRest {
		return v
	}
	for n := range f.Innings {
		card := f.Innings[n]
		bat, bowl := f.InningsTeams(n)
		iv := inningsView{
			Name:        inningsTitle(n),
			BattingTeam: bat,
			BowlingTeam: bowl,
			Bowling:     card.Bowling,
			CanAddBat:   len(card.Batting) < scorecard.MaxBattingRows,
			CanAddBowl:  len(card.Bowling) < scorecard.MaxBowlingRows,
		}
		for _, r := range card.Batting {
			iv.Batting = append(iv.Batting, battingView{
				BattingRow:  r,
				Fields:      fieldViews(r.Dismissal),
				Description: scorecard.Describe(r),
			})
		}
		v.Innings = append(v.Innings, iv)
	}
	return v
}

func inningsTitle(n int) string {
	if n == 0 {
		return "First innings"
	}
	return "Second innings"
}
