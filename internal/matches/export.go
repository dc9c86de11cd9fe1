package matches

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/xaitan80/X-Cricket/internal/scorecard"
)

var (
	battingCSVHeader = []string{"innings", "row_idx", "player_name", "did_not_bat", "dismissal_method", "dismissal_ref_1",
		"dismissal_ref_2", "runs", "balls", "minutes", "fours", "sixes", "captain", "keeper"}
	bowlingCSVHeader = []string{"innings", "row_idx", "player_name", "balls", "maidens", "runs_conceded", "wickets",
		"dots", "wides", "no_balls"}
)

func istr(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func yes(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

// writeScorecardCSV writes the batting table then the bowling table for each
// requested innings (1 or 2). Rows without a player name are skipped. The
// output is in the format the import reads.
func writeScorecardCSV(out io.Writer, p scorecard.Payload, innings ...int) error {
	if len(innings) == 0 {
		innings = []int{1, 2}
	}
	w := csv.NewWriter(out)
	for _, n := range innings {
		in := p.FirstInnings
		if n == 2 {
			in = p.SecondInnings
		}
		label := strconv.Itoa(n)

		_ = w.Write(battingCSVHeader)
		for _, e := range in.BattingCard {
			if e.PlayerName == nil {
				continue
			}
			_ = w.Write([]string{
				label, strconv.Itoa(e.RowIdx), *e.PlayerName, yes(e.DidNotBat),
				sval(e.DismissalMethod), sval(e.DismissalRef1), sval(e.DismissalRef2),
				istr(e.Runs), istr(e.Balls), istr(e.Minutes), istr(e.Fours), istr(e.Sixes),
				yes(e.IsCaptain), yes(e.IsKeeper),
			})
		}
		_ = w.Write(bowlingCSVHeader)
		for _, e := range in.BowlingCard {
			if e.PlayerName == nil {
				continue
			}
			_ = w.Write([]string{
				label, strconv.Itoa(e.RowIdx), *e.PlayerName,
				istr(e.Balls), istr(e.Maidens), istr(e.RunsConceded), istr(e.Wickets),
				istr(e.Dots), istr(e.Wides), istr(e.NoBalls),
			})
		}
	}
	w.Flush()
	return w.Error()
}
