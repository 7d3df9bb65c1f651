package device

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrNoDevices is returned when the account has no devices to resolve against.
var ErrNoDevices = errors.New("no devices found on account")

// Tier identifies which matching rule selected a device.
type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierSubstring
	TierToken
	TierDefault
	TierFirst
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierSubstring:
		return "substring"
	case TierToken:
		return "token"
	case TierDefault:
		return "default"
	case TierFirst:
		return "first"
	default:
		return "none"
	}
}

// minTokenLen is the shortest query token, in characters, considered for
// token overlap.
const minTokenLen = 3

// Match finds query among names using the exact, substring and token overlap
// rules in that order. Within a rule the first name in list order wins. It
// returns -1 and TierNone when nothing matches or query is blank.
func Match(names []string, query string) (int, Tier) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return -1, TierNone
	}

	lowered := make([]string, len(names))
	for i, n := range names {
		lowered[i] = strings.ToLower(strings.TrimSpace(n))
	}

	if i := indexExact(lowered, q); i >= 0 {
		return i, TierExact
	}

	for i, n := range lowered {
		if n == "" {
			continue
		}
		if strings.Contains(n, q) || strings.Contains(q, n) {
			return i, TierSubstring
		}
	}

	var tokens []string
	for _, tok := range strings.Fields(q) {
		if utf8.RuneCountInString(tok) >= minTokenLen {
			tokens = append(tokens, tok)
		}
	}
	if len(tokens) == 0 {
		return -1, TierNone
	}
	for i, n := range lowered {
		for _, nt := range strings.Fields(n) {
			for _, qt := range tokens {
				if nt == qt {
					return i, TierToken
				}
			}
		}
	}

	return -1, TierNone
}

func indexExact(lowered []string, q string) int {
	for i, n := range lowered {
		if n == q {
			return i
		}
	}
	return -1
}

// Resolution is the device selected for a query and the rule that chose it.
type Resolution struct {
	Device Record
	Tier   Tier
}

// Resolver maps free-text device references to concrete devices.
type Resolver struct {
	// DefaultName is used when the query does not match, located by exact
	// name. Empty disables it.
	DefaultName string
	// TypeFilter restricts candidates to one device type. Empty keeps all.
	TypeFilter string
}

// Resolve picks a device for query. It prefers a precise match and falls back
// to the default device, then to the first device. It only fails when there
// are no candidates.
func (r Resolver) Resolve(query string, devices []Record) (Resolution, error) {
	candidates := FilterType(devices, r.TypeFilter)
	if len(candidates) == 0 {
		return Resolution{}, ErrNoDevices
	}

	names := Names(candidates)
	if i, tier := Match(names, query); i >= 0 {
		return Resolution{Device: candidates[i], Tier: tier}, nil
	}

	if def := strings.ToLower(strings.TrimSpace(r.DefaultName)); def != "" {
		lowered := make([]string, len(names))
		for i, n := range names {
			lowered[i] = strings.ToLower(strings.TrimSpace(n))
		}
		if i := indexExact(lowered, def); i >= 0 {
			return Resolution{Device: candidates[i], Tier: TierDefault}, nil
		}
	}

	return Resolution{Device: candidates[0], Tier: TierFirst}, nil
}
