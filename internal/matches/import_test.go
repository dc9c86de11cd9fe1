package matches

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/xaitan80/X-Cricket/internal/scorecard"
)

const printedCard = "Batting\n" +
	"Batter,How out,R,B,M,4s,6s\n" +
	"J. Root (c),c Smith b Jones,45,60,80,5,1\n" +
	"B. Foakes †,not out,12,20,,1,0\n" +
	"J. Anderson,dnb,,,,,\n" +
	"Extras,,4\n" +
	"Total,,61\n" +
	"\n" +
	"Bowling\n" +
	"Bowler,O,M,R,W,Wd,NB\n" +
	"A. Jones,3.4,0,22,1,1,0\n"

func TestParseCSV_PrintedScorecard(t *testing.T) {
	imp, err := parseCSV(strings.NewReader(printedCard), 1)
	if err != nil {
		t.Fatalf("parseCSV error: %v", err)
	}
	if len(imp.Batting) != 3 {
		t.Fatalf("expected 3 batting rows, got %d: %+v", len(imp.Batting), imp.Batting)
	}
	if len(imp.Bowling) != 1 {
		t.Fatalf("expected 1 bowling row, got %d", len(imp.Bowling))
	}

	root := imp.Batting[0]
	if root.PlayerName != "J. Root" || !root.Captain || root.Keeper {
		t.Errorf("role marks not stripped: %+v", root)
	}
	if root.Dismissal != scorecard.DismissalCaught || root.DismissalRef1 != "Jones" || root.DismissalRef2 != "Smith" {
		t.Errorf("how out not parsed: %+v", root)
	}
	if root.Runs != "45" || root.Balls != "60" || root.Minutes != "80" || root.Fours != "5" || root.Sixes != "1" {
		t.Errorf("figures not mapped: %+v", root)
	}

	foakes := imp.Batting[1]
	if foakes.PlayerName != "B. Foakes" || !foakes.Keeper || foakes.Dismissal != scorecard.DismissalNotOut {
		t.Errorf("keeper row: %+v", foakes)
	}
	if !imp.Batting[2].DidNotBat {
		t.Errorf("dnb not detected: %+v", imp.Batting[2])
	}

	b := imp.Bowling[0]
	if b.PlayerName != "A. Jones" || b.Balls != "22" || b.Maidens != "0" || b.RunsConceded != "22" || b.Wickets != "1" {
		t.Errorf("bowling row: %+v", b)
	}
	if b.Wides != "1" || b.NoBalls != "0" {
		t.Errorf("extras: %+v", b)
	}
}

func TestParseCSV_SemicolonDelimiter(t *testing.T) {
	csv := "Player;Runs;Balls;Dismissal\r\n" +
		"K. Williamson;101;140;run out (Smith / Jones)\r\n" +
		"T. Latham;7;9;lbw b Ali\r\n"
	imp, err := parseCSV(strings.NewReader(csv), 1)
	if err != nil {
		t.Fatalf("parseCSV error: %v", err)
	}
	if len(imp.Batting) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(imp.Batting))
	}
	r := imp.Batting[0]
	if r.Dismissal != scorecard.DismissalRunOut || r.DismissalRef1 != "Smith" || r.DismissalRef2 != "Jones" {
		t.Errorf("run out: %+v", r)
	}
	if imp.Batting[1].Dismissal != scorecard.DismissalLBW || imp.Batting[1].DismissalRef1 != "Ali" {
		t.Errorf("lbw: %+v", imp.Batting[1])
	}
}

func TestParseCSV_UnknownDismissalAndExplicitRefs(t *testing.T) {
	csv := "Batter,How out,Bowler,Fielder\n" +
		"A,retired hurt,,\n" +
		"B,c X b Y,Z,\n"
	imp, err := parseCSV(strings.NewReader(csv), 1)
	if err != nil {
		t.Fatal(err)
	}
	if imp.Batting[0].Dismissal != scorecard.DismissalOther {
		t.Errorf("unknown text should become other, got %q", imp.Batting[0].Dismissal)
	}
	// the bowler column wins; the fielder comes from the text
	if imp.Batting[1].DismissalRef1 != "Z" || imp.Batting[1].DismissalRef2 != "X" {
		t.Errorf("refs: %+v", imp.Batting[1])
	}
}

func TestParseCSV_NoTable(t *testing.T) {
	if _, err := parseCSV(strings.NewReader("date,venue\n2025-06-01,Lord's\n"), 1); err == nil {
		t.Fatalf("expected error for a file without a scorecard table")
	}
}

func TestParseXLSX_SeparateSheets(t *testing.T) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", "Batting"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.NewSheet("Bowling"); err != nil {
		t.Fatal(err)
	}

	bat := [][]string{
		{"Player", "How out", "Runs", "Balls"},
		{"S. Smith", "b Wood", "33", "41"},
	}
	bowl := [][]string{
		{"Bowler", "Overs", "Maidens", "Runs", "Wickets"},
		{"M. Wood", "4", "1", "18", "2"},
	}
	for i, row := range bat {
		if err := f.SetSheetRow("Batting", "A"+string(rune('1'+i)), &row); err != nil {
			t.Fatal(err)
		}
	}
	for i, row := range bowl {
		if err := f.SetSheetRow("Bowling", "A"+string(rune('1'+i)), &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	imp, err := parseXLSX(buf.Bytes(), 1)
	if err != nil {
		t.Fatalf("parseXLSX error: %v", err)
	}
	if len(imp.Batting) != 1 || len(imp.Bowling) != 1 {
		t.Fatalf("got %d batting, %d bowling", len(imp.Batting), len(imp.Bowling))
	}
	if r := imp.Batting[0]; r.Dismissal != scorecard.DismissalBowled || r.DismissalRef1 != "Wood" {
		t.Errorf("batting: %+v", r)
	}
	if b := imp.Bowling[0]; b.Balls != "24" || b.RunsConceded != "18" || b.Wickets != "2" {
		t.Errorf("bowling: %+v", b)
	}
}

func TestOversToBalls(t *testing.T) {
	cases := map[string]string{"": "", "3.4": "22", "4": "24", "0.5": "5", "3.7": "3.7", "four": "four"}
	for in, want := range cases {
		if got := oversToBalls(in); got != want {
			t.Errorf("oversToBalls(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestApplyImport_CapsRowsAndKeepsMissingSide(t *testing.T) {
	card := scorecard.NewInningsCard()
	card.Bowling[0].PlayerName = "kept"

	var imp importedCard
	for i := 0; i < scorecard.MaxBattingRows+2; i++ {
		imp.Batting = append(imp.Batting, scorecard.BattingRow{PlayerName: "p"})
	}
	dropped := applyImport(&card, imp)
	if dropped != 2 {
		t.Fatalf("dropped = %d", dropped)
	}
	if len(card.Batting) != scorecard.MaxBattingRows {
		t.Fatalf("batting rows = %d", len(card.Batting))
	}
	if card.Bowling[0].PlayerName != "kept" {
		t.Fatalf("bowling side should be untouched")
	}
}

func TestExportBothInnings_ReimportsOneInnings(t *testing.T) {
	f := scorecard.NewForm(7, scorecard.Overview{HomeTeam: "Lions", AwayTeam: "Tigers", Format: "ODI"})
	for n := 0; n < 2; n++ {
		for i := 0; i < scorecard.DefaultBattingRows; i++ {
			if err := f.Innings[n].UpdateBatting(i, "player_name", fmt.Sprintf("I%d-B%d", n+1, i+1)); err != nil {
				t.Fatal(err)
			}
		}
		if err := f.Innings[n].UpdateBowling(0, "player_name", fmt.Sprintf("I%d-W1", n+1)); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	if err := writeScorecardCSV(&buf, scorecard.Assemble(f)); err != nil {
		t.Fatal(err)
	}

	for _, innings := range []int{1, 2} {
		imp, err := parseCSV(bytes.NewReader(buf.Bytes()), innings)
		if err != nil {
			t.Fatalf("innings %d: %v", innings, err)
		}
		if len(imp.Batting) != scorecard.DefaultBattingRows || len(imp.Bowling) != 1 {
			t.Fatalf("innings %d: %d batting, %d bowling", innings, len(imp.Batting), len(imp.Bowling))
		}
		prefix := fmt.Sprintf("I%d-", innings)
		for _, r := range imp.Batting {
			if !strings.HasPrefix(r.PlayerName, prefix) {
				t.Fatalf("innings %d picked up %q", innings, r.PlayerName)
			}
		}
		card := scorecard.NewInningsCard()
		if dropped := applyImport(&card, imp); dropped != 0 {
			t.Fatalf("innings %d: dropped %d rows", innings, dropped)
		}
	}
}

func TestParseCSV_InningsColumnWithoutWantedRows(t *testing.T) {
	csv := "innings,player_name,runs,dismissal_method\n2,A,4,bowled\n"
	if _, err := parseCSV(strings.NewReader(csv), 1); err == nil || !strings.Contains(err.Error(), "innings 1") {
		t.Fatalf("expected a no-rows error for innings 1, got %v", err)
	}
}
