package scorecard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	DefaultBattingRows = 11
	MaxBattingRows     = 12
	DefaultBowlingRows = 5
	MaxBowlingRows     = 11
)

var (
	ErrRowIndex     = errors.New("row index out of range")
	ErrUnknownField = errors.New("unknown field")
)

// BattingRow holds one batter's line as typed into the form. Numeric fields
// keep the raw text; they are coerced when the payload is assembled.
type BattingRow struct {
	PlayerName    string          `json:"player_name"`
	DidNotBat     bool            `json:"dnb"`
	Dismissal     DismissalMethod `json:"dismissal_method"`
	DismissalRef1 string          `json:"dismissal_ref_1"`
	DismissalRef2 string          `json:"dismissal_ref_2"`
	Runs          string          `json:"runs"`
	Balls         string          `json:"balls"`
	Minutes       string          `json:"minutes"`
	Fours         string          `json:"fours"`
	Sixes         string          `json:"sixes"`
	Captain       bool            `json:"captain"`
	Keeper        bool            `json:"keeper"`
}

type BowlingRow struct {
	PlayerName   string `json:"player_name"`
	Balls        string `json:"balls"`
	Maidens      string `json:"maidens"`
	RunsConceded string `json:"runs_conceded"`
	Wickets      string `json:"wickets"`
	Dots         string `json:"dots"`
	Wides        string `json:"wides"`
	NoBalls      string `json:"no_balls"`
}

// InningsCard is one innings of the form. The batting and bowling teams are
// not stored here; Form.InningsTeams derives them from the batting-first choice.
type InningsCard struct {
	Batting []BattingRow `json:"batting_rows"`
	Bowling []BowlingRow `json:"bowling_rows"`
}

func NewInningsCard() InningsCard {
	return InningsCard{
		Batting: make([]BattingRow, DefaultBattingRows),
		Bowling: make([]BowlingRow, DefaultBowlingRows),
	}
}

// BattingFields lists the field names accepted by UpdateBatting.
var BattingFields = []string{
	"player_name", "dnb", "dismissal_method", "dismissal_ref_1", "dismissal_ref_2",
	"runs", "balls", "minutes", "fours", "sixes",
}

// BowlingFields lists the field names accepted by UpdateBowling.
var BowlingFields = []string{
	"player_name", "balls", "maidens", "runs_conceded", "wickets", "dots", "wides", "no_balls",
}

// UpdateBatting replaces one field of one batting row. The row slice is
// copied so earlier snapshots of the card are left untouched.
// Setting dismissal_method always clears both dismissal references.
func (c *InningsCard) UpdateBatting(index int, field, value string) error {
	if index < 0 || index >= len(c.Batting) {
		return fmt.Errorf("batting row %d: %w", index, ErrRowIndex)
	}
	row := c.Batting[index]
	switch field {
	case "player_name":
		row.PlayerName = value
	case "dnb":
		b, err := ParseFlag(value)
		if err != nil {
			return fmt.Errorf("dnb: %w", err)
		}
		row.DidNotBat = b
	case "dismissal_method":
		m, ok := ParseDismissal(value)
		if !ok {
			return fmt.Errorf("unknown dismissal method %q", value)
		}
		row.Dismissal = m
		row.DismissalRef1 = ""
		row.DismissalRef2 = ""
	case "dismissal_ref_1":
		row.DismissalRef1 = value
	case "dismissal_ref_2":
		row.DismissalRef2 = value
	case "runs":
		row.Runs = value
	case "balls":
		row.Balls = value
	case "minutes":
		row.Minutes = value
	case "fours":
		row.Fours = value
	case "sixes":
		row.Sixes = value
	default:
		return fmt.Errorf("batting %q: %w (want one of %s)", field, ErrUnknownField, strings.Join(BattingFields, ", "))
	}
	next := make([]BattingRow, len(c.Batting))
	copy(next, c.Batting)
	next[index] = row
	c.Batting = next
	return nil
}

// UpdateBowling replaces one field of one bowling row (copy-on-write).
func (c *InningsCard) UpdateBowling(index int, field, value string) error {
	if index < 0 || index >= len(c.Bowling) {
		return fmt.Errorf("bowling row %d: %w", index, ErrRowIndex)
	}
	row := c.Bowling[index]
	switch field {
	case "player_name":
		row.PlayerName = value
	case "balls":
		row.Balls = value
	case "maidens":
		row.Maidens = value
	case "runs_conceded":
		row.RunsConceded = value
	case "wickets":
		row.Wickets = value
	case "dots":
		row.Dots = value
	case "wides":
		row.Wides = value
	case "no_balls":
		row.NoBalls = value
	default:
		return fmt.Errorf("bowling %q: %w (want one of %s)", field, ErrUnknownField, strings.Join(BowlingFields, ", "))
	}
	next := make([]BowlingRow, len(c.Bowling))
	copy(next, c.Bowling)
	next[index] = row
	c.Bowling = next
	return nil
}

// AppendBatting adds a blank batting row. At the cap it does nothing and returns false.
func (c *InningsCard) AppendBatting() bool {
	if len(c.Batting) >= MaxBattingRows {
		return false
	}
	c.Batting = append(c.Batting[:len(c.Batting):len(c.Batting)], BattingRow{})
	return true
}

// AppendBowling adds a blank bowling row. At the cap it does nothing and returns false.
func (c *InningsCard) AppendBowling() bool {
	if len(c.Bowling) >= MaxBowlingRows {
		return false
	}
	c.Bowling = append(c.Bowling[:len(c.Bowling):len(c.Bowling)], BowlingRow{})
	return true
}

// ReplaceBatting swaps in a whole batting list, as an import does. Rows past
// the cap are dropped, like AppendBatting, and the card keeps at least its
// default size. It returns how many rows were dropped.
func (c *InningsCard) ReplaceBatting(rows []BattingRow) int {
	next := make([]BattingRow, min(max(len(rows), DefaultBattingRows), MaxBattingRows))
	n := copy(next, rows)
	for i := range next[:n] {
		if !next[i].Dismissal.Valid() {
			next[i].Dismissal = DismissalOther
		}
	}
	c.Batting = next
	return len(rows) - n
}

// ReplaceBowling is ReplaceBatting for the bowling list.
func (c *InningsCard) ReplaceBowling(rows []BowlingRow) int {
	next := make([]BowlingRow, min(max(len(rows), DefaultBowlingRows), MaxBowlingRows))
	n := copy(next, rows)
	c.Bowling = next
	return len(rows) - n
}

// SetCaptain tags the row at index as captain and clears the tag elsewhere.
// An index of -1 clears the captain.
func (c *InningsCard) SetCaptain(index int) error {
	return c.setRole(index, func(r *BattingRow, on bool) { r.Captain = on })
}

// SetKeeper tags the row at index as wicket keeper and clears the tag elsewhere.
// An index of -1 clears the keeper.
func (c *InningsCard) SetKeeper(index int) error {
	return c.setRole(index, func(r *BattingRow, on bool) { r.Keeper = on })
}

func (c *InningsCard) setRole(index int, set func(*BattingRow, bool)) error {
	if index < -1 || index >= len(c.Batting) {
		return fmt.Errorf("batting row %d: %w", index, ErrRowIndex)
	}
	next := make([]BattingRow, len(c.Batting))
	copy(next, c.Batting)
	for i := range next {
		set(&next[i], i == index)
	}
	c.Batting = next
	return nil
}

// Captain returns the index of the first row tagged captain, or -1.
func (c InningsCard) Captain() int {
	for i, r := range c.Batting {
		if r.Captain {
			return i
		}
	}
	return -1
}

// Keeper returns the index of the first row tagged keeper, or -1.
func (c InningsCard) Keeper() int {
	for i, r := range c.Batting {
		if r.Keeper {
			return i
		}
	}
	return -1
}

// ParseFlag reads a checkbox value: yes/no, on/off, ja/nej or anything
// strconv.ParseBool accepts. Blank is false.
func ParseFlag(s string) (bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return false, nil
	}
	switch strings.ToLower(s) {
	case "on", "yes", "y", "ja":
		return true, nil
	case "off", "no", "n", "nej":
		return false, nil
	}
	return strconv.ParseBool(s)
}
