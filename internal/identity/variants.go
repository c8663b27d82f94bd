// Package identity generates alternate spellings of a contact's email address
// and decides whether an address seen on an external message belongs to that
// contact.
//
// The rules are deliberately narrow. Each generated variant is tagged with the
// rule that produced it so callers can tell a provider fact (dots are ignored
// in Gmail local parts) from a guess (a dot inserted at a fixed offset) or a
// hard-coded alias. Nothing here claims exact identity resolution; the goal is
// fewer false negatives for common same-provider spellings.
package identity

import (
	"strings"
	"unicode/utf8"
)

// MaxVariants caps the number of variants so mailbox search fan-out stays bounded.
const MaxVariants = 8

// Kind records which rule produced a Variant.
type Kind string

const (
	KindOriginal        Kind = "original"
	KindProviderRule    Kind = "provider-rule"
	KindPositionalGuess Kind = "positional-guess"
	KindAllowlist       Kind = "allowlist"
)

// Variant is one candidate address for a contact.
type Variant struct {
	Address string
	Kind    Kind
}

// AliasRule appends Aliases when the local part contains any of Fragments.
type AliasRule struct {
	Fragments []string
	Aliases   []string
}

// DefaultAllowlist holds the known alias set for the site owner's own
// mailbox, which shows up under several spellings.
var DefaultAllowlist = []AliasRule{
	{
		Fragments: []string{"bhashkar", "bhaskar"},
		Aliases: []string{
			"bhashkar.connect@gmail.com",
			"bhaskar.connect@gmail.com",
			"bhashkarconnect@gmail.com",
			"bhaskarconnect@gmail.com",
		},
	},
}

// dotInsensitiveDomains ignore '.' in the local part.
var dotInsensitiveDomains = map[string]bool{
	"gmail.com":      true,
	"googlemail.com": true,
}

// knownSuffixes are word endings that often follow a dot in a local part.
var knownSuffixes = []string{"connect"}

// Matcher generates and matches variants. The zero value has no allowlist and
// no positional guesses; use New for the default behavior.
type Matcher struct {
	// PositionalGuesses enables dot insertion at fixed offsets. It has no
	// principled basis beyond the addresses it was tuned on.
	PositionalGuesses bool
	Allowlist         []AliasRule
}

// New returns a Matcher with positional guesses on and DefaultAllowlist.
func New() *Matcher {
	return &Matcher{PositionalGuesses: true, Allowlist: DefaultAllowlist}
}

var defaultMatcher = New()

// GenerateVariants returns the default Matcher's variant addresses for email.
// The original address is always first.
func GenerateVariants(email string) []string {
	return defaultMatcher.GenerateVariants(email)
}

// IsMatch reports whether candidate matches any of variants.
func IsMatch(candidate string, variants []string) bool {
	return defaultMatcher.IsMatch(candidate, variants)
}

// GenerateVariants is the address projection of Expand.
func (m *Matcher) GenerateVariants(email string) []string {
	vs := m.Expand(email)
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Address
	}
	return out
}

// Expand returns between 1 and MaxVariants tagged variants for email, the
// original (trimmed, lowercased) first. Order follows rule precedence:
// provider rule, suffix and offset guesses, allowlist, then the remaining
// offset guesses.
func (m *Matcher) Expand(email string) []Variant {
	email = strings.ToLower(strings.TrimSpace(email))
	set := newVariantSet()
	set.add(email, KindOriginal)

	local, domain, ok := split(email)
	if !ok || !dotInsensitiveDomains[domain] {
		return set.items
	}

	set.add(stripDots(local)+"@"+domain, KindProviderRule)

	// Offsets count runes so guesses never split a multi-byte character.
	runes := []rune(local)
	n := len(runes)
	noDot := !strings.Contains(local, ".")
	if m.PositionalGuesses && noDot && n > 8 {
		for _, pos := range []int{8, 7} {
			set.add(insertDot(runes, pos)+"@"+domain, KindPositionalGuess)
		}
		for _, suf := range knownSuffixes {
			sn := utf8.RuneCountInString(suf)
			if strings.HasSuffix(local, suf) && n > sn {
				set.add(insertDot(runes, n-sn)+"@"+domain, KindPositionalGuess)
			}
		}
	}

	for _, rule := range m.Allowlist {
		if !containsAny(local, rule.Fragments) {
			continue
		}
		for _, alias := range rule.Aliases {
			set.add(strings.ToLower(alias), KindAllowlist)
		}
	}

	if m.PositionalGuesses && noDot && n > 6 {
		for _, pos := range []int{6, 7, 8} {
			if pos < n-2 {
				set.add(insertDot(runes, pos)+"@"+domain, KindPositionalGuess)
			}
		}
	}
	return set.items
}

// IsMatch lowercases both sides, folds dots for dot-insensitive providers and
// then accepts when either address contains the other. The containment check
// tolerates display-name prefixes such as "Jane <jane@x.com>". Empty inputs
// never match.
func (m *Matcher) IsMatch(candidate string, variants []string) bool {
	cand := strings.ToLower(strings.TrimSpace(candidate))
	if cand == "" {
		return false
	}
	foldedCand := fold(cand)
	for _, v := range variants {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		fv := fold(v)
		if strings.Contains(foldedCand, fv) || strings.Contains(fv, foldedCand) ||
			strings.Contains(cand, v) || strings.Contains(v, cand) {
			return true
		}
	}
	return false
}

func fold(addr string) string {
	i := strings.LastIndex(addr, "@")
	if i <= 0 {
		return addr
	}
	// Display-name forms keep everything before the local part.
	domain := strings.TrimRight(addr[i+1:], "> ")
	if !dotInsensitiveDomains[domain] {
		return addr
	}
	start := strings.LastIndexAny(addr[:i], "< ") + 1
	return addr[:start] + stripDots(addr[start:i]) + addr[i:]
}

func split(email string) (local, domain string, ok bool) {
	i := strings.LastIndex(email, "@")
	if i <= 0 || i == len(email)-1 {
		return "", "", false
	}
	return email[:i], email[i+1:], true
}

func stripDots(s string) string { return strings.ReplaceAll(s, ".", "") }

func insertDot(r []rune, pos int) string { return string(r[:pos]) + "." + string(r[pos:]) }

func containsAny(s string, frags []string) bool {
	for _, f := range frags {
		if f != "" && strings.Contains(s, f) {
			return true
		}
	}
	return false
}

// variantSet keeps insertion order, drops duplicates and enforces MaxVariants.
type variantSet struct {
	seen  map[string]bool
	items []Variant
}

func newVariantSet() *variantSet {
	return &variantSet{seen: make(map[string]bool, MaxVariants)}
}

func (s *variantSet) add(addr string, kind Kind) {
	if addr == "" || s.seen[addr] || len(s.items) >= MaxVariants {
		return
	}
	s.seen[addr] = true
	s.items = append(s.items, Variant{Address: addr, Kind: kind})
}
