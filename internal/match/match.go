// Package match implements dictionary-based extraction of security
// identifiers from news text. Matching is restricted to a closed table of
// known codes and names built once from the security master; it is not a
// general entity recognizer.
package match

import (
	"sort"
	"strings"
	"unicode/utf8"

	"taipulse/internal/refdata"
)

// Excluded lists names that collide with news-outlet names or generic
// words. They never enter the name table; their codes still match.
var Excluded = []string{
	"時報", "中時", "聯合", "自由", "經濟", "工商", "中央",
	"大眾", "國際", "世界", "中國", "台灣", "亞洲",
}

// Matcher holds the compiled lookup tables. Build once with New; a
// reference refresh builds a fresh Matcher rather than mutating this one.
type Matcher struct {
	codes map[string]struct{}
	names map[string]string // cleaned display name -> security id
}

// New compiles a Matcher from security master rows. Rows with an empty id
// are skipped. Names are cleaned of listing suffixes (-DR, -KY, *) and must
// keep at least two runes to enter the name table.
func New(secs []refdata.Security) *Matcher {
	m := &Matcher{
		codes: make(map[string]struct{}, len(secs)),
		names: make(map[string]string, len(secs)),
	}
	excluded := make(map[string]struct{}, len(Excluded))
	for _, name := range Excluded {
		excluded[name] = struct{}{}
	}

	for _, s := range secs {
		id := strings.TrimSpace(s.ID)
		if id == "" {
			continue
		}
		m.codes[id] = struct{}{}

		name := cleanName(s.Name)
		if len([]rune(name)) < 2 {
			continue
		}
		if _, bad := excluded[name]; bad {
			continue
		}
		m.names[name] = id
	}
	return m
}

func cleanName(name string) string {
	name = strings.ReplaceAll(name, "-DR", "")
	name = strings.ReplaceAll(name, "-KY", "")
	name = strings.ReplaceAll(name, "*", "")
	return strings.TrimSpace(name)
}

// Extract returns the sorted unique security ids mentioned in text. Text
// with no hits yields an empty slice, never an error.
func (m *Matcher) Extract(text string) []string {
	if text == "" {
		return nil
	}
	found := make(map[string]struct{})
	m.extractCodes(text, found)
	m.extractNames(text, found)

	ids := make([]string, 0, len(found))
	for id := range found {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// extractCodes finds maximal digit runs and accepts those that exactly
// equal a known code and are not followed by a year marker. Maximal runs
// reject codes embedded in longer numbers (12330) by construction.
func (m *Matcher) extractCodes(text string, found map[string]struct{}) {
	runes := []rune(text)
	for i := 0; i < len(runes); {
		if !isDigit(runes[i]) {
			i++
			continue
		}
		j := i
		for j < len(runes) && isDigit(runes[j]) {
			j++
		}
		run := string(runes[i:j])
		if _, ok := m.codes[run]; ok {
			if j >= len(runes) || runes[j] != '年' {
				found[run] = struct{}{}
			}
		}
		i = j
	}
}

// extractNames scans for each table name and accepts occurrences bounded by
// non-word runes on both sides. Letters and CJK ideographs block a
// boundary; digits and punctuation do not, so "2330台積電" still matches.
func (m *Matcher) extractNames(text string, found map[string]struct{}) {
	for name, id := range m.names {
		if _, dup := found[id]; dup {
			continue
		}
		offset := 0
		for {
			idx := strings.Index(text[offset:], name)
			if idx < 0 {
				break
			}
			start := offset + idx
			end := start + len(name)
			if boundaryOK(text, start, end) {
				found[id] = struct{}{}
				break
			}
			offset = start + len(name)
		}
	}
}

func boundaryOK(text string, start, end int) bool {
	if start > 0 {
		before, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(before) {
			return false
		}
	}
	if end < len(text) {
		after, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(after) {
			return false
		}
	}
	return true
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// isWordRune reports whether r is an ASCII letter or a CJK ideograph, the
// rune classes that extend a token across a candidate name boundary.
func isWordRune(r rune) bool {
	if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
		return true
	}
	return r >= 0x4E00 && r <= 0x9FFF
}
