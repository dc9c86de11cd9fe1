package scorecard

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	MaxWickets       = 10
	MaxUniquePlayers = 24
	MinUniquePlayers = 22
)

// ValidationError is a user-facing rejection of the form. Only the first
// failing check is reported.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "Submission Failed: " + e.Message
}

func failf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Options tunes the validation pipeline.
type Options struct {
	// StrictChecks turns on per-row dismissal completeness and the
	// 22-player minimum. Off unless configured.
	StrictChecks bool
}

type check func(f *Form) error

// Validate runs the checks in order and returns the first failure.
func Validate(f *Form, opts Options) error {
	checks := []check{
		checkHeaderWickets,
		checkBowlingWickets,
		checkUniquePlayerCap,
		checkRoles,
	}
	if opts.StrictChecks {
		checks = append(checks, checkDismissalDetails, checkMinimumPlayers)
	}
	for _, c := range checks {
		if err := c(f); err != nil {
			return err
		}
	}
	return nil
}

// Prepare validates the form and assembles its payload.
func Prepare(f *Form, opts Options) (Payload, error) {
	if err := Validate(f, opts); err != nil {
		return Payload{}, err
	}
	return Assemble(f), nil
}

// wicketsProblem returns "" when s is blank or a whole number in [0,10].
func wicketsProblem(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return "must be a whole number"
	}
	if v < 0 {
		return "cannot be negative"
	}
	if v > MaxWickets {
		return fmt.Sprintf("cannot exceed %d", MaxWickets)
	}
	return ""
}

func checkHeaderWickets(f *Form) error {
	if p := wicketsProblem(f.Summary.HomeWickets); p != "" {
		return failf("%s wickets %s.", teamLabel(f.Overview.HomeTeam, "Home"), p)
	}
	if p := wicketsProblem(f.Summary.AwayWickets); p != "" {
		return failf("%s wickets %s.", teamLabel(f.Overview.AwayTeam, "Away"), p)
	}
	return nil
}

func teamLabel(name, side string) string {
	if name = strings.TrimSpace(name); name == "" {
		return side
	}
	return side + " (" + name + ")"
}

func checkBowlingWickets(f *Form) error {
	for n := range f.Innings {
		for i, r := range f.Innings[n].Bowling {
			if p := wicketsProblem(r.Wickets); p != "" {
				return failf("%s: wickets %s.", rowLabel(n, "bowling", i, r.PlayerName), p)
			}
		}
	}
	return nil
}

func rowLabel(n int, card string, i int, name string) string {
	l := fmt.Sprintf("%s %s row %d", inningsName(n), card, i+1)
	if name = strings.TrimSpace(name); name != "" {
		l += " (" + name + ")"
	}
	return l
}

// UniquePlayers collects every trimmed, non-empty name on the form: batters,
// bowlers and all dismissal references. Names are case-sensitive.
func UniquePlayers(f *Form) map[string]struct{} {
	seen := make(map[string]struct{})
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			seen[s] = struct{}{}
		}
	}
	for _, card := range f.Innings {
		for _, r := range card.Batting {
			add(r.PlayerName)
			add(r.DismissalRef1)
			add(r.DismissalRef2)
		}
		for _, r := range card.Bowling {
			add(r.PlayerName)
		}
	}
	return seen
}

func checkUniquePlayerCap(f *Form) error {
	if n := len(UniquePlayers(f)); n > MaxUniquePlayers {
		return failf("%d different player names entered; a match allows at most %d.", n, MaxUniquePlayers)
	}
	return nil
}

func checkRoles(f *Form) error {
	for n, card := range f.Innings {
		captains, keepers := 0, 0
		for _, r := range card.Batting {
			if r.Captain {
				captains++
			}
			if r.Keeper {
				keepers++
			}
		}
		if captains > 1 {
			return failf("%s has %d captains; pick one.", inningsName(n), captains)
		}
		if keepers > 1 {
			return failf("%s has %d wicket keepers; pick one.", inningsName(n), keepers)
		}
	}
	return nil
}

func checkDismissalDetails(f *Form) error {
	for n, card := range f.Innings {
		for i, r := range card.Batting {
			if strings.TrimSpace(r.PlayerName) == "" || r.DidNotBat {
				continue
			}
			if r.Dismissal == DismissalUnset {
				return failf("%s: choose how the batter was out (or Not Out).", rowLabel(n, "batting", i, r.PlayerName))
			}
			for _, fld := range DetailFields(r.Dismissal) {
				// a run-out needs one fielder, the second is optional
				if r.Dismissal == DismissalRunOut && fld.Slot == 2 {
					continue
				}
				v := r.DismissalRef1
				if fld.Slot == 2 {
					v = r.DismissalRef2
				}
				if strings.TrimSpace(v) == "" {
					return failf("%s: missing %s for %s.", rowLabel(n, "batting", i, r.PlayerName), fld.Role, strings.ToLower(r.Dismissal.Label()))
				}
			}
		}
	}
	return nil
}

func checkMinimumPlayers(f *Form) error {
	if n := len(UniquePlayers(f)); n < MinUniquePlayers {
		return failf("only %d different player names entered; a match needs at least %d.", n, MinUniquePlayers)
	}
	return nil
}
