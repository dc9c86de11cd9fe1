package scorecard

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
)

func fullForm() *Form {
	f := &Form{
		MatchID: 42,
		Overview: Overview{
			Competition: "County League",
			MatchName:   "Rovers v Town",
			Format:      "ODI",
			HomeTeam:    "Rovers",
			AwayTeam:    "Town",
		},
		Summary: MatchSummaryDraft{
			HomeScore: "187", HomeWickets: "6", HomeOvers: "50",
			AwayScore: "150", AwayWickets: "10", AwayOvers: "45.3",
			Winner:       WinnerHome,
			TossWinner:   "Town",
			BattingFirst: "Rovers",
		},
		PlayerOfMatch: "J. Root",
	}
	f.Innings[0] = InningsCard{
		Batting: []BattingRow{
			{
				PlayerName: "J. Root", Dismissal: DismissalCaught,
				DismissalRef1: "B. Stokes", DismissalRef2: "A. Cook",
				Runs: "54", Balls: "61", Minutes: "80", Fours: "6", Sixes: "1",
				Captain: true,
			},
			{PlayerName: "A. Smith", DidNotBat: true, Runs: "12", Balls: "9", Keeper: true},
		},
		Bowling: []BowlingRow{
			{PlayerName: "B. Stokes", Balls: "60", Maidens: "1", RunsConceded: "34", Wickets: "2", Dots: "30", NoBalls: "x"},
		},
	}
	f.Innings[1] = InningsCard{
		Batting: []BattingRow{
			{PlayerName: "A. Cook", Dismissal: DismissalRunOut, DismissalRef1: "J. Root", Runs: "0", Balls: "3"},
		},
	}
	return f
}

func normalizeJSON(t *testing.T, b []byte) string {
	t.Helper()
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(out) + "\n"
}

func TestAssemble_Golden(t *testing.T) {
	raw, err := json.Marshal(Assemble(fullForm()))
	if err != nil {
		t.Fatal(err)
	}
	actual := normalizeJSON(t, raw)

	golden := filepath.Join("testdata", "payload_full.golden.json")
	if os.Getenv("UPDATE_GOLDENS") == "true" {
		if err := os.WriteFile(golden, []byte(actual), 0644); err != nil {
			t.Fatal(err)
		}
		return
	}
	want, err := os.ReadFile(golden)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	expected := normalizeJSON(t, want)
	if actual != expected {
		diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(expected),
			B:        difflib.SplitLines(actual),
			FromFile: "Expected",
			ToFile:   "Actual",
			Context:  3,
		})
		t.Errorf("payload mismatch:\n%s", diff)
	}
}

// DNB voids every stat typed before the box was ticked.
func TestAssemble_DidNotBatNullsStats(t *testing.T) {
	f := NewForm(7, Overview{HomeTeam: "Rovers", AwayTeam: "Town", Format: "Test"})
	if err := f.SetBattingFirst("Rovers"); err != nil {
		t.Fatal(err)
	}
	c := &f.Innings[0]
	for _, kv := range [][2]string{
		{"player_name", "A. Smith"}, {"runs", "44"}, {"balls", "abc"}, {"minutes", "12"},
		{"fours", "3"}, {"sixes", "1"}, {"dismissal_method", "bowled"}, {"dismissal_ref_1", "X"},
		{"dnb", "true"},
	} {
		if err := c.UpdateBatting(0, kv[0], kv[1]); err != nil {
			t.Fatalf("update %s: %v", kv[0], err)
		}
	}
	e := Assemble(f).FirstInnings.BattingCard[0]
	if !e.DidNotBat {
		t.Fatalf("expected did_not_bat")
	}
	if e.PlayerName == nil || *e.PlayerName != "A. Smith" {
		t.Fatalf("player name = %v", e.PlayerName)
	}
	for name, v := range map[string]*int{"runs": e.Runs, "balls": e.Balls, "minutes": e.Minutes, "fours": e.Fours, "sixes": e.Sixes} {
		if v != nil {
			t.Errorf("%s = %d, want null", name, *v)
		}
	}
	if e.DismissalMethod != nil || e.DismissalRef1 != nil || e.DismissalRef2 != nil {
		t.Errorf("dismissal should be null for DNB: %+v", e)
	}
}

func TestAssemble_RowIdxAndTeams(t *testing.T) {
	f := NewForm(1, Overview{HomeTeam: "Rovers", AwayTeam: "Town"})
	_ = f.SetBattingFirst("Town")
	p := Assemble(f)
	assertEq(t, len(p.FirstInnings.BattingCard), DefaultBattingRows)
	assertEq(t, len(p.SecondInnings.BowlingCard), DefaultBowlingRows)
	for i, e := range p.FirstInnings.BattingCard {
		assertEq(t, e.RowIdx, i+1)
	}
	assertEq(t, *p.FirstInnings.BattingTeam, "Town")
	assertEq(t, *p.FirstInnings.BowlingTeam, "Rovers")
	assertEq(t, *p.SecondInnings.BattingTeam, "Rovers")
	assertEq(t, *p.SecondInnings.BowlingTeam, "Town")
	if p.MatchSummary.TossWinner != nil || p.MatchSummary.Winner != nil {
		t.Fatalf("unset toss/winner should be null")
	}
}

func TestAssemble_MinutesDependOnFormat(t *testing.T) {
	f := NewForm(1, Overview{HomeTeam: "A", AwayTeam: "B", Format: "T20"})
	_ = f.Innings[0].UpdateBatting(0, "minutes", "35")
	if m := Assemble(f).FirstInnings.BattingCard[0].Minutes; m != nil {
		t.Fatalf("T20 minutes should be null, got %d", *m)
	}
	f.Overview.Format = "Test"
	if m := Assemble(f).FirstInnings.BattingCard[0].Minutes; m == nil || *m != 35 {
		t.Fatalf("Test minutes = %v", m)
	}
}

func TestParseIntOrNull(t *testing.T) {
	cases := []struct {
		in   string
		want *int
	}{
		{"", nil},
		{"   ", nil},
		{"abc", nil},
		{"-", nil},
		{"0", ptr(0)},
		{" 7 ", ptr(7)},
		{"3.9", ptr(3)},
		{"4x", ptr(4)},
		{"-2", ptr(-2)},
	}
	for _, c := range cases {
		got := ParseIntOrNull(c.in)
		switch {
		case c.want == nil && got != nil:
			t.Errorf("%q: got %d, want null", c.in, *got)
		case c.want != nil && got == nil:
			t.Errorf("%q: got null, want %d", c.in, *c.want)
		case c.want != nil && *got != *c.want:
			t.Errorf("%q: got %d, want %d", c.in, *got, *c.want)
		}
	}
}

func ptr(v int) *int { return &v }

// --- small helpers ---
func assertEq[T comparable](t *testing.T, got, want T) {
	t.Helper()
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
}
