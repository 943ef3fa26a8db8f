package enums

import "strings"

// Bookmaker is a normalized bookmaker name (lowercase, alphanumeric only).
type Bookmaker string

const (
	Xbet1       Bookmaker = "1xbet"
	Bet365      Bookmaker = "bet365"
	Betway      Bookmaker = "betway"
	Unibet      Bookmaker = "unibet"
	Bwin        Bookmaker = "bwin"
	WilliamHill Bookmaker = "williamhill"
	Betfair     Bookmaker = "betfair"
	Pinnacle    Bookmaker = "pinnacle"
)

// defaultBookmakerIDs maps bookmakers to their ids at the odds provider.
var defaultBookmakerIDs = map[Bookmaker]int{
	Xbet1:       80,
	Bet365:      8,
	Betway:      17,
	Unibet:      16,
	Bwin:        1,
	WilliamHill: 11,
	Betfair:     6,
	Pinnacle:    4,
}

// NormalizeBookmaker lowercases the name and strips everything that is not a letter or digit,
// so "William Hill", "william-hill" and "WilliamHill" are the same bookmaker.
func NormalizeBookmaker(name string) Bookmaker {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return Bookmaker(b.String())
}

// BookmakerTable resolves bookmaker names to provider ids.
type BookmakerTable map[Bookmaker]int

// DefaultBookmakerTable returns a copy of the built-in alias table.
func DefaultBookmakerTable() BookmakerTable {
	t := make(BookmakerTable, len(defaultBookmakerIDs))
	for k, v := range defaultBookmakerIDs {
		t[k] = v
	}
	return t
}

// WithOverrides returns a table extended with name → id pairs; names are normalized.
func (t BookmakerTable) WithOverrides(extra map[string]int) BookmakerTable {
	out := make(BookmakerTable, len(t)+len(extra))
	for k, v := range t {
		out[k] = v
	}
	for name, id := range extra {
		if n := NormalizeBookmaker(name); n != "" && id > 0 {
			out[n] = id
		}
	}
	return out
}

// ID returns the provider id for a bookmaker name.
func (t BookmakerTable) ID(name string) (int, bool) {
	id, ok := t[NormalizeBookmaker(name)]
	return id, ok
}

// String returns string representation
func (b Bookmaker) String() string {
	return string(b)
}
