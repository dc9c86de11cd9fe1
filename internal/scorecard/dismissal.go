package scorecard

import "strings"

type DismissalMethod string

const (
	DismissalUnset   DismissalMethod = ""
	DismissalBowled  DismissalMethod = "bowled"
	DismissalCaught  DismissalMethod = "caught"
	DismissalLBW     DismissalMethod = "lbw"
	DismissalRunOut  DismissalMethod = "run_out"
	DismissalStumped DismissalMethod = "stumped"
	DismissalNotOut  DismissalMethod = "not_out"
	DismissalOther   DismissalMethod = "other"
)

// DismissalMethods in the order the select box lists them.
var DismissalMethods = []DismissalMethod{
	DismissalBowled,
	DismissalCaught,
	DismissalLBW,
	DismissalRunOut,
	DismissalStumped,
	DismissalNotOut,
	DismissalOther,
}

func (m DismissalMethod) Valid() bool {
	if m == DismissalUnset {
		return true
	}
	for _, k := range DismissalMethods {
		if k == m {
			return true
		}
	}
	return false
}

func (m DismissalMethod) Label() string {
	switch m {
	case DismissalBowled:
		return "Bowled"
	case DismissalCaught:
		return "Caught"
	case DismissalLBW:
		return "LBW"
	case DismissalRunOut:
		return "Run-out"
	case DismissalStumped:
		return "Stumped"
	case DismissalNotOut:
		return "Not Out"
	case DismissalOther:
		return "Other"
	}
	return ""
}

// ParseDismissal accepts the stored value or the display label ("Run-out", "Not Out").
func ParseDismissal(s string) (DismissalMethod, bool) {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.NewReplacer("-", "_", " ", "_").Replace(k)
	switch k {
	case "":
		return DismissalUnset, true
	case "b":
		return DismissalBowled, true
	case "c", "ct":
		return DismissalCaught, true
	case "st":
		return DismissalStumped, true
	case "runout", "ro":
		return DismissalRunOut, true
	case "notout", "no":
		return DismissalNotOut, true
	}
	m := DismissalMethod(k)
	if !m.Valid() {
		return DismissalUnset, false
	}
	return m, true
}

type RefRole string

const (
	RoleBowler  RefRole = "bowler"
	RoleFielder RefRole = "fielder"
	RoleCatcher RefRole = "catcher"
	RoleStumper RefRole = "stumper"
)

// RefField is one dismissal reference input. Slot is the payload slot
// (1 = dismissal_ref_1, 2 = dismissal_ref_2).
type RefField struct {
	Slot  int     `json:"slot"`
	Role  RefRole `json:"role"`
	Label string  `json:"label"`
}

// DetailFields returns the reference fields for a dismissal method in display order.
// The bowler always sits in slot 1, except for run-outs where both slots are fielders;
// caught and stumped show the fielder (slot 2) before the bowler.
func DetailFields(m DismissalMethod) []RefField {
	switch m {
	case DismissalBowled, DismissalLBW:
		return []RefField{{Slot: 1, Role: RoleBowler, Label: "b"}}
	case DismissalRunOut:
		return []RefField{{Slot: 1, Role: RoleFielder}, {Slot: 2, Role: RoleFielder}}
	case DismissalCaught:
		return []RefField{{Slot: 2, Role: RoleCatcher, Label: "c"}, {Slot: 1, Role: RoleBowler, Label: "b"}}
	case DismissalStumped:
		return []RefField{{Slot: 2, Role: RoleStumper, Label: "st"}, {Slot: 1, Role: RoleBowler, Label: "b"}}
	}
	return nil
}

// Describe renders the scorecard dismissal text for a batting row.
func Describe(r BattingRow) string {
	if r.DidNotBat {
		return "did not bat"
	}
	ref := func(slot int) string {
		if slot == 1 {
			return strings.TrimSpace(r.DismissalRef1)
		}
		return strings.TrimSpace(r.DismissalRef2)
	}
	switch r.Dismissal {
	case DismissalRunOut:
		var names []string
		for _, f := range DetailFields(r.Dismissal) {
			if n := ref(f.Slot); n != "" {
				names = append(names, n)
			}
		}
		if len(names) == 0 {
			return "run out"
		}
		return "run out (" + strings.Join(names, " / ") + ")"
	case DismissalLBW:
		if b := ref(1); b != "" {
			return "lbw b " + b
		}
		return "lbw"
	case DismissalNotOut:
		return "not out"
	case DismissalOther:
		return "other"
	case DismissalUnset:
		return ""
	}
	var parts []string
	for _, f := range DetailFields(r.Dismissal) {
		if n := ref(f.Slot); n != "" {
			parts = append(parts, f.Label+" "+n)
		}
	}
	if len(parts) == 0 {
		return strings.ToLower(r.Dismissal.Label())
	}
	return strings.Join(parts, " ")
}

// ParseDescribed reads dismissal text in the form Describe writes it, plus
// "c & b X" for caught and bowled. Bare method names fall back to ParseDismissal.
func ParseDescribed(s string) (m DismissalMethod, ref1, ref2 string, ok bool) {
	t := strings.Join(strings.Fields(s), " ")
	switch {
	case hasPrefixFold(t, "run out"):
		inner := strings.TrimSpace(t[len("run out"):])
		inner = strings.TrimSuffix(strings.TrimPrefix(inner, "("), ")")
		a, b, _ := strings.Cut(inner, "/")
		return DismissalRunOut, strings.TrimSpace(a), strings.TrimSpace(b), true
	case hasPrefixFold(t, "lbw b "):
		return DismissalLBW, t[len("lbw b "):], "", true
	case hasPrefixFold(t, "c & b "):
		x := t[len("c & b "):]
		return DismissalCaught, x, x, true
	case hasPrefixFold(t, "c "), hasPrefixFold(t, "st "):
		method, rest := DismissalCaught, t[2:]
		if hasPrefixFold(t, "st ") {
			method, rest = DismissalStumped, t[3:]
		}
		if i := indexFold(rest, " b "); i >= 0 {
			return method, strings.TrimSpace(rest[i+3:]), strings.TrimSpace(rest[:i]), true
		}
		return method, "", strings.TrimSpace(rest), true
	case hasPrefixFold(t, "b "):
		return DismissalBowled, t[2:], "", true
	}
	m, ok = ParseDismissal(t)
	return m, "", "", ok
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func indexFold(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}
