package matches

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"

	"github.com/xaitan80/X-Cricket/internal/scorecard"
)

// importedCard is what a scorecard file yields for one innings.
type importedCard struct {
	Batting []scorecard.BattingRow
	Bowling []scorecard.BowlingRow
}

// parseImport reads a CSV or XLSX scorecard from a multipart form file.
// Rows tagged with an innings other than innings (1 or 2) are skipped.
func parseImport(fh *multipart.FileHeader, innings int) (importedCard, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	file, err := fh.Open()
	if err != nil {
		return importedCard{}, err
	}
	defer file.Close()

	switch ext {
	case ".csv":
		return parseCSV(file, innings)
	case ".xlsx":
		b, err := io.ReadAll(io.LimitReader(file, 10<<20))
		if err != nil {
			return importedCard{}, err
		}
		return parseXLSX(b, innings)
	default:
		return importedCard{}, fmt.Errorf("unsupported file type: %s", ext)
	}
}

func parseCSV(r io.Reader, innings int) (importedCard, error) {
	br := bufio.NewReader(r)
	// Peek first line to guess delimiter
	line, _ := br.ReadString('\n')
	rest := io.MultiReader(strings.NewReader(line), br)
	reader := csv.NewReader(rest)
	reader.FieldsPerRecord = -1
	if strings.Count(line, ";") > strings.Count(line, ",") {
		reader.Comma = ';'
	}
	rows, err := reader.ReadAll()
	if err != nil {
		return importedCard{}, err
	}
	if len(rows) == 0 {
		return importedCard{}, fmt.Errorf("empty csv")
	}
	return parseTables(rows, innings)
}

// parseXLSX reads every sheet in order, so batting and bowling may sit on
// separate sheets or one below the other.
func parseXLSX(b []byte, innings int) (importedCard, error) {
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		return importedCard{}, err
	}
	defer f.Close()
	var all [][]string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return importedCard{}, err
		}
		all = append(all, rows...)
		all = append(all, nil) // sheet boundary
	}
	if len(all) == 0 {
		return importedCard{}, fmt.Errorf("empty workbook")
	}
	return parseTables(all, innings)
}

// parseTables walks rows looking for header lines. Each header starts a
// batting or bowling table that runs until the next header. A table with an
// innings column (as the export writes) only contributes the rows of the
// wanted innings.
func parseTables(rows [][]string, innings int) (importedCard, error) {
	var (
		out     importedCard
		headers map[int]string
		kind    string
		skipped int
	)
	want := strconv.Itoa(innings)
	for _, row := range rows {
		if blankRow(row) || summaryRow(row) {
			continue
		}
		tokens := normHeaders(row)
		if k := tableKind(tokens); k != "" && isHeader(tokens) {
			headers, kind = mapHeaders(tokens, k), k
			continue
		}
		if headers == nil {
			continue
		}
		if in := cell(headers, row, "innings"); in != "" && in != want {
			skipped++
			continue
		}
		switch kind {
		case "batting":
			out.Batting = append(out.Batting, rowToBatting(headers, row))
		case "bowling":
			out.Bowling = append(out.Bowling, rowToBowling(headers, row))
		}
	}
	if len(out.Batting) == 0 && len(out.Bowling) == 0 {
		if skipped > 0 {
			return out, fmt.Errorf("no rows for innings %d", innings)
		}
		return out, fmt.Errorf("no batting or bowling table found")
	}
	return out, nil
}

func blankRow(row []string) bool {
	return len(strings.TrimSpace(strings.Join(row, ""))) == 0
}

// summaryRow matches section titles and the extras/total lines printed under
// a batting table.
func summaryRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) == "" {
			continue
		}
		switch normHeaders([]string{c})[0] {
		case "batting", "bowling", "extras", "total", "totals", "fallofwickets", "fow":
			return true
		}
		return false
	}
	return false
}

// normHeaders lowercases and keeps only letters and digits ("4s", "Runs
// conceded" -> "runsconceded").
func normHeaders(hdr []string) map[int]string {
	m := make(map[int]string, len(hdr))
	for i, h := range hdr {
		b := strings.Builder{}
		for _, r := range strings.ToLower(strings.TrimSpace(h)) {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(r)
			}
		}
		m[i] = b.String()
	}
	return m
}

var (
	nameTokens = map[string]bool{"player": true, "name": true, "playername": true, "batter": true, "batsman": true, "bowler": true}

	battingOnly = map[string]bool{"batter": true, "batsman": true, "howout": true, "dismissal": true, "dismissalmethod": true,
		"4s": true, "6s": true, "fours": true, "sixes": true, "dnb": true, "didnotbat": true}
	bowlingOnly = map[string]bool{"o": true, "overs": true, "maidens": true, "md": true, "w": true, "wkts": true, "wickets": true,
		"conceded": true, "runsconceded": true, "wd": true, "wides": true, "nb": true, "noballs": true, "0s": true, "dots": true}
)

func isHeader(tokens map[int]string) bool {
	for _, t := range tokens {
		if nameTokens[t] {
			return true
		}
	}
	return false
}

func tableKind(tokens map[int]string) string {
	for _, t := range tokens {
		if battingOnly[t] {
			return "batting"
		}
	}
	for _, t := range tokens {
		if bowlingOnly[t] {
			return "bowling"
		}
	}
	return ""
}

// mapHeaders resolves tokens to field keys. Some abbreviations depend on the
// table: "m" is minutes when batting and maidens when bowling, "r" is runs
// scored or runs conceded, "bowler" is the dismissing bowler or the player.
func mapHeaders(tokens map[int]string, kind string) map[int]string {
	out := make(map[int]string, len(tokens))
	for i, t := range tokens {
		var k string
		if t == "innings" || t == "inns" {
			out[i] = "innings"
			continue
		}
		if kind == "batting" {
			switch t {
			case "player", "name", "playername", "batter", "batsman":
				k = "player_name"
			case "howout", "dismissal", "dismissalmethod":
				k = "dismissal_method"
			case "bowler", "bowledby", "ref1", "dismissalref1":
				k = "dismissal_ref_1"
			case "fielder", "catcher", "caughtby", "stumpedby", "ref2", "dismissalref2":
				k = "dismissal_ref_2"
			case "dnb", "didnotbat":
				k = "dnb"
			case "r", "runs":
				k = "runs"
			case "b", "balls":
				k = "balls"
			case "m", "min", "mins", "minutes":
				k = "minutes"
			case "4s", "fours":
				k = "fours"
			case "6s", "sixes":
				k = "sixes"
			case "captain", "capt":
				k = "captain"
			case "wk", "keeper", "wicketkeeper":
				k = "keeper"
			}
		} else {
			switch t {
			case "player", "name", "playername", "bowler":
				k = "player_name"
			case "o", "overs":
				k = "overs"
			case "b", "balls":
				k = "balls"
			case "m", "md", "maidens":
				k = "maidens"
			case "r", "runs", "conceded", "runsconceded":
				k = "runs_conceded"
			case "w", "wkts", "wickets":
				k = "wickets"
			case "0s", "dots", "dotballs":
				k = "dots"
			case "wd", "wides":
				k = "wides"
			case "nb", "noballs":
				k = "no_balls"
			}
		}
		if k != "" {
			out[i] = k
		}
	}
	return out
}

func cell(h map[int]string, row []string, key string) string {
	for i, k := range h {
		if k == key && i < len(row) {
			return strings.TrimSpace(row[i])
		}
	}
	return ""
}

func rowToBatting(h map[int]string, row []string) scorecard.BattingRow {
	get := func(key string) string { return cell(h, row, key) }
	flag := func(s string) bool { b, _ := scorecard.ParseFlag(s); return b }

	r := scorecard.BattingRow{
		PlayerName:    get("player_name"),
		DidNotBat:     flag(get("dnb")),
		DismissalRef1: get("dismissal_ref_1"),
		DismissalRef2: get("dismissal_ref_2"),
		Runs:          get("runs"),
		Balls:         get("balls"),
		Minutes:       get("minutes"),
		Fours:         get("fours"),
		Sixes:         get("sixes"),
		Captain:       flag(get("captain")),
		Keeper:        flag(get("keeper")),
	}
	// Scorebooks mark the captain and keeper next to the name: "J. Root (c)", "B. Foakes †".
	r.PlayerName, r.Captain, r.Keeper = stripRoleMarks(r.PlayerName, r.Captain, r.Keeper)

	how := get("dismissal_method")
	switch strings.ToLower(how) {
	case "dnb", "did not bat":
		r.DidNotBat = true
	default:
		m, ref1, ref2, ok := scorecard.ParseDescribed(how)
		if !ok {
			m = scorecard.DismissalOther
		}
		r.Dismissal = m
		// explicit reference columns win over names parsed from the text
		if r.DismissalRef1 == "" {
			r.DismissalRef1 = ref1
		}
		if r.DismissalRef2 == "" {
			r.DismissalRef2 = ref2
		}
	}
	return r
}

func stripRoleMarks(name string, captain, keeper bool) (string, bool, bool) {
	for {
		n := strings.TrimSpace(name)
		switch {
		case strings.HasSuffix(n, "(c)"):
			n, captain = strings.TrimSuffix(n, "(c)"), true
		case strings.HasSuffix(n, "(wk)"):
			n, keeper = strings.TrimSuffix(n, "(wk)"), true
		case strings.HasSuffix(n, "†"):
			n, keeper = strings.TrimSuffix(n, "†"), true
		case strings.HasSuffix(n, "*"):
			n, captain = strings.TrimSuffix(n, "*"), true
		default:
			return n, captain, keeper
		}
		name = n
	}
}

func rowToBowling(h map[int]string, row []string) scorecard.BowlingRow {
	get := func(key string) string { return cell(h, row, key) }
	r := scorecard.BowlingRow{
		PlayerName:   get("player_name"),
		Balls:        get("balls"),
		Maidens:      get("maidens"),
		RunsConceded: get("runs_conceded"),
		Wickets:      get("wickets"),
		Dots:         get("dots"),
		Wides:        get("wides"),
		NoBalls:      get("no_balls"),
	}
	if r.Balls == "" {
		r.Balls = oversToBalls(get("overs"))
	}
	return r
}

// oversToBalls turns "3.4" (three overs and four balls) into "22". Text that
// is not in overs notation is passed through untouched.
func oversToBalls(s string) string {
	if s == "" {
		return ""
	}
	whole, part, _ := strings.Cut(s, ".")
	o, err := strconv.Atoi(whole)
	if err != nil || o < 0 {
		return s
	}
	b := 0
	if part != "" {
		b, err = strconv.Atoi(part)
		if err != nil || b < 0 || b > 5 {
			return s
		}
	}
	return strconv.Itoa(o*6 + b)
}

// applyImport writes the imported tables into one innings. A table missing
// from the file leaves that side of the card as it was.
func applyImport(card *scorecard.InningsCard, imp importedCard) (dropped int) {
	if len(imp.Batting) > 0 {
		dropped += card.ReplaceBatting(imp.Batting)
	}
	if len(imp.Bowling) > 0 {
		dropped += card.ReplaceBowling(imp.Bowling)
	}
	return dropped
}
