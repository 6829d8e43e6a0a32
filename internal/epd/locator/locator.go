// Package locator finds labeled scalar fields in normalized EPD lines.
package locator

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"epdparser/internal/epd"
	"epdparser/internal/epd/profile"
)

// Match is the resolved value of one field together with its confidence.
// Only the value member matching the field kind is set.
type Match struct {
	Field      epd.FieldName
	Confidence epd.Confidence
	Line       int
	Raw        string

	Text   string
	Amount decimal.Decimal
	Period epd.Period
	Date   time.Time
}

// Result holds the matches for every field that was found.
type Result map[epd.FieldName]Match

// Confidence returns the tier for name, missing when it was not found.
func (r Result) Confidence(name epd.FieldName) epd.Confidence {
	if m, ok := r[name]; ok {
		return m.Confidence
	}
	return epd.ConfidenceMissing
}

type plan struct {
	name   epd.FieldName
	field  *profile.Field
	groups [][]int
}

// Locator scans lines using the label tables of a profile.
type Locator struct {
	profile *profile.Profile
	plans   []plan
}

// New prepares a Locator for every scalar field the profile defines.
func New(p *profile.Profile) *Locator {
	l := &Locator{profile: p}
	for _, name := range epd.ScalarFields {
		f, ok := p.Field(name)
		if !ok {
			continue
		}
		l.plans = append(l.plans, plan{name: name, field: f, groups: f.PriorityGroups()})
	}
	return l
}

// Locate resolves every field independently. Fields that cannot be found
// are absent from the result.
func (l *Locator) Locate(lines []string) Result {
	res := make(Result, len(l.plans))
	for i := range l.plans {
		if m, ok := l.locate(&l.plans[i], lines); ok {
			res[m.Field] = m
		}
	}
	return res
}

// locate tries priority groups highest first; inside a group the earliest
// line wins and, on the same line, the earlier declared candidate.
func (l *Locator) locate(pl *plan, lines []string) (Match, bool) {
	for _, group := range pl.groups {
		for i, line := range lines {
			for _, ci := range group {
				c := &pl.field.Candidates[ci]
				loc := c.Find(line)
				if loc == nil {
					continue
				}
				raw, at, ok := extract(c, lines, i, loc)
				if !ok {
					continue
				}
				m, ok := l.convert(pl.field, c.Take, raw)
				if !ok {
					continue
				}
				m.Field = pl.name
				m.Confidence = c.Confidence()
				m.Line = at
				m.Raw = raw
				return m, true
			}
		}
	}
	return Match{}, false
}

// extract returns the value text for a label hit and the line it came from.
func extract(c *profile.Candidate, lines []string, i int, loc []int) (string, int, bool) {
	line := lines[i]
	rest := trimLead(line[loc[1]:])
	alone := rest == "" && strings.TrimSpace(line[:loc[0]]) == ""

	switch c.Extract {
	case profile.ExtractNextLine:
		if i+1 < len(lines) {
			return lines[i+1], i + 1, true
		}
	case profile.ExtractInlineOrNext:
		if rest != "" {
			return rest, i, true
		}
		if alone && i+1 < len(lines) {
			return lines[i+1], i + 1, true
		}
	default:
		if rest != "" {
			return rest, i, true
		}
	}
	return "", 0, false
}

// trimLead drops separators between a label and its value.
func trimLead(s string) string {
	return strings.TrimLeftFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(":;-\u2013\u2014№#=", r)
	})
}

func (l *Locator) convert(f *profile.Field, take, raw string) (Match, bool) {
	switch f.Kind {
	case profile.KindText:
		return textValue(f, raw)
	case profile.KindAccount:
		return accountValue(f, take, raw)
	case profile.KindAmount:
		return amountValue(f, take, raw)
	case profile.KindPeriod:
		p, ok := parsePeriod(l.profile, raw)
		return Match{Period: p}, ok
	case profile.KindDate:
		d, ok := parseDate(l.profile, raw)
		return Match{Date: d}, ok
	}
	return Match{}, false
}
