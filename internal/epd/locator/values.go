package locator

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"epdparser/internal/epd"
	"epdparser/internal/epd/amount"
	"epdparser/internal/epd/profile"
)

var (
	defaultAccount = regexp.MustCompile(`\d[\d \-]{3,}\d`)
	defaultAmount  = regexp.MustCompile(`\d(?:[\d.,]| \d)*`)

	wordPeriod    = regexp.MustCompile(`(\p{L}+)\.?\s+(\d{4})`)
	numericPeriod = regexp.MustCompile(`(?:^|[^\d.])(\d{1,2})[./](\d{4})(?:\D|$)`)

	numericDate = regexp.MustCompile(`\d{4}-\d{2}-\d{2}|\d{1,2}[./-]\d{1,2}[./-]\d{2,4}`)
	wordDate    = regexp.MustCompile(`(\d{1,2})\s+(\p{L}+)\.?\s+(\d{4})`)
)

func pick(re *regexp.Regexp, take, s string) string {
	if take == "last" {
		all := re.FindAllString(s, -1)
		if len(all) == 0 {
			return ""
		}
		return all[len(all)-1]
	}
	return re.FindString(s)
}

// firstCell cuts s at the first column gap.
func firstCell(s string) string {
	if i := strings.Index(s, "  "); i >= 0 {
		return s[:i]
	}
	return s
}

func textValue(f *profile.Field, raw string) (Match, bool) {
	v := firstCell(raw)
	if re := f.ValuePattern(); re != nil {
		v = re.FindString(v)
	}
	v = strings.TrimFunc(v, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';' || r == ':'
	})
	if strings.IndexFunc(v, unicode.IsLetter) < 0 {
		return Match{}, false
	}
	return Match{Text: v}, true
}

func accountValue(f *profile.Field, take, raw string) (Match, bool) {
	re := f.ValuePattern()
	if re == nil {
		re = defaultAccount
	}
	v := pick(re, take, firstCell(raw))
	v = strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, v)
	if v == "" {
		return Match{}, false
	}
	return Match{Text: v}, true
}

func amountValue(f *profile.Field, take, raw string) (Match, bool) {
	re := f.ValuePattern()
	if re == nil {
		re = defaultAmount
	}
	v := strings.TrimRight(pick(re, take, raw), ".,")
	if v == "" {
		return Match{}, false
	}
	d, err := amount.Normalize(v)
	if err != nil || d.IsNegative() {
		return Match{}, false
	}
	return Match{Text: v, Amount: d}, true
}

// parsePeriod reads "июль 2025", "за июль 2025 г." or "07.2025". The month is
// not range-checked here.
func parsePeriod(p *profile.Profile, raw string) (epd.Period, bool) {
	raw = firstCell(raw)
	for _, m := range wordPeriod.FindAllStringSubmatch(raw, -1) {
		if month := p.Month(m[1]); month > 0 {
			year, _ := strconv.Atoi(m[2])
			return epd.Period{Month: month, Year: year}, true
		}
	}
	if m := numericPeriod.FindStringSubmatch(raw); m != nil {
		month, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[2])
		return epd.Period{Month: month, Year: year}, true
	}
	return epd.Period{}, false
}

// parseDate reads numeric dates using the profile layouts, or "10 августа 2025".
func parseDate(p *profile.Profile, raw string) (time.Time, bool) {
	if tok := numericDate.FindString(raw); tok != "" {
		norm := strings.NewReplacer("/", ".", "-", ".").Replace(tok)
		for _, layout := range p.DateLayouts {
			if d, err := time.Parse(layout, tok); err == nil {
				return d, true
			}
			if d, err := time.Parse(layout, norm); err == nil {
				return d, true
			}
		}
	}
	for _, m := range wordDate.FindAllStringSubmatch(raw, -1) {
		month := p.Month(m[2])
		if month == 0 {
			continue
		}
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if d.Day() == day {
			return d, true
		}
	}
	return time.Time{}, false
}
