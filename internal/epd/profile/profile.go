// Package profile loads the label-pattern and column-layout tables that drive
// the EPD pipeline. A Profile is immutable after loading and safe to share
// between goroutines.
package profile

import (
	"bytes"
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"epdparser/internal/epd"
)

//go:embed default.yaml
var defaultYAML []byte

// Field kinds understood by the locator.
const (
	KindText    = "text"
	KindAccount = "account"
	KindPeriod  = "period"
	KindDate    = "date"
	KindAmount  = "amount"
)

// Extraction rules for a label hit.
const (
	ExtractInline       = "inline"
	ExtractNextLine     = "next_line"
	ExtractInlineOrNext = "inline_or_next"
)

// Service table columns.
const (
	ColName          = "name"
	ColVolume        = "volume"
	ColUnit          = "unit"
	ColTariff        = "tariff"
	ColCharged       = "charged"
	ColRecalculation = "recalculation"
	ColDebt          = "debt"
	ColPaid          = "paid"
	ColTotal         = "total"
	ColReason        = "reason"
	ColAmount        = "amount"
)

var serviceColumns = map[string]bool{
	ColName: true, ColVolume: true, ColUnit: true, ColTariff: true, ColCharged: true,
	ColRecalculation: true, ColDebt: true, ColPaid: true, ColTotal: true,
}

var recalculationColumns = map[string]bool{ColName: true, ColReason: true, ColAmount: true}

// Candidate is one label pattern for a field.
type Candidate struct {
	Label    string   `mapstructure:"label"`
	Tier     string   `mapstructure:"tier"`
	Priority int      `mapstructure:"priority"`
	Extract  string   `mapstructure:"extract"`
	Take     string   `mapstructure:"take"`
	Exclude  []string `mapstructure:"exclude"`

	label   *regexp.Regexp
	exclude []*regexp.Regexp
}

// Find returns the byte span of the label in line, or nil when the label is
// absent or an exclude pattern matches the line.
func (c *Candidate) Find(line string) []int {
	loc := c.label.FindStringIndex(line)
	if loc == nil {
		return nil
	}
	for _, ex := range c.exclude {
		if ex.MatchString(line) {
			return nil
		}
	}
	return loc
}

// Confidence maps the declared tier onto the result model.
func (c *Candidate) Confidence() epd.Confidence {
	if c.Tier == string(epd.ConfidenceExact) {
		return epd.ConfidenceExact
	}
	return epd.ConfidenceFuzzy
}

// Field describes how one scalar field is located.
type Field struct {
	Kind       string      `mapstructure:"kind"`
	Value      string      `mapstructure:"value"`
	Candidates []Candidate `mapstructure:"candidates"`

	value *regexp.Regexp
}

// ValuePattern returns the compiled value pattern, or nil if the field takes
// the whole remainder.
func (f *Field) ValuePattern() *regexp.Regexp { return f.value }

// PriorityGroups returns candidate indexes grouped by priority, highest first.
// Declaration order is kept within a group.
func (f *Field) PriorityGroups() [][]int {
	idx := make([]int, len(f.Candidates))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return f.Candidates[idx[a]].Priority > f.Candidates[idx[b]].Priority
	})
	var groups [][]int
	for i, ci := range idx {
		if i == 0 || f.Candidates[ci].Priority != f.Candidates[idx[i-1]].Priority {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], ci)
	}
	return groups
}

// Header is a set of keyword groups; a line is a header when it contains a
// keyword from at least MinGroups groups.
type Header struct {
	MinGroups int        `mapstructure:"min_groups"`
	Groups    [][]string `mapstructure:"groups"`
}

// Matches reports whether line is a header line.
func (h *Header) Matches(line string) bool {
	if len(h.Groups) == 0 {
		return false
	}
	lower := strings.ToLower(line)
	hit := 0
	for _, g := range h.Groups {
		for _, kw := range g {
			if strings.Contains(lower, kw) {
				hit++
				break
			}
		}
	}
	return hit >= h.MinGroups
}

// Table describes the service-charge and recalculation tables.
type Table struct {
	Header               Header     `mapstructure:"header"`
	RecalculationHeader  Header     `mapstructure:"recalculation_header"`
	Stop                 []string   `mapstructure:"stop"`
	Section              []string   `mapstructure:"section"`
	Skip                 []string   `mapstructure:"skip"`
	Delimiters           []string   `mapstructure:"delimiters"`
	EmptyMarkers         []string   `mapstructure:"empty_markers"`
	Layouts              [][]string `mapstructure:"layouts"`
	RecalculationLayouts [][]string `mapstructure:"recalculation_layouts"`

	stop, section, skip []*regexp.Regexp
	empty               map[string]bool
	layouts             map[int][]string
	recalcLayouts       map[int][]string
}

func (t *Table) IsStop(line string) bool    { return matchAny(t.stop, line) }
func (t *Table) IsSection(line string) bool { return matchAny(t.section, line) }
func (t *Table) IsSkip(line string) bool    { return matchAny(t.skip, line) }

// IsEmpty reports whether a cell holds a placeholder rather than a value.
func (t *Table) IsEmpty(cell string) bool {
	return cell == "" || t.empty[strings.ToLower(cell)]
}

// Layout returns the column names for a row with n cells.
func (t *Table) Layout(n int) ([]string, bool) {
	l, ok := t.layouts[n]
	return l, ok
}

// RecalculationLayout returns the column names for a recalculation row with n cells.
func (t *Table) RecalculationLayout(n int) ([]string, bool) {
	l, ok := t.recalcLayouts[n]
	return l, ok
}

// Validation holds consistency-check settings.
type Validation struct {
	TotalTolerance float64 `mapstructure:"total_tolerance"`
	MinYear        int     `mapstructure:"min_year"`
	// MaxYear pins the upper bound of the period window. Zero means the
	// current year plus one.
	MaxYear int `mapstructure:"max_year"`
}

// Tolerance returns the total tolerance as a decimal.
func (v *Validation) Tolerance() decimal.Decimal {
	return decimal.NewFromFloat(v.TotalTolerance)
}

// Profile is a complete, compiled layout profile.
type Profile struct {
	Version     int              `mapstructure:"version"`
	Name        string           `mapstructure:"name"`
	MinLines    int              `mapstructure:"min_lines"`
	Months      [][]string       `mapstructure:"months"`
	DateLayouts []string         `mapstructure:"date_layouts"`
	Fields      map[string]Field `mapstructure:"fields"`
	Table       Table            `mapstructure:"table"`
	Validation  Validation       `mapstructure:"validation"`
}

// Field returns the definition of a scalar field.
func (p *Profile) Field(name epd.FieldName) (*Field, bool) {
	f, ok := p.Fields[string(name)]
	if !ok {
		return nil, false
	}
	return &f, true
}

// Month returns the month number (1-12) whose stem prefixes word, or 0.
func (p *Profile) Month(word string) int {
	w := strings.ToLower(word)
	for i, stems := range p.Months {
		for _, s := range stems {
			if strings.HasPrefix(w, s) {
				return i + 1
			}
		}
	}
	return 0
}

// Default returns the embedded default profile.
func Default() (*Profile, error) {
	return Parse(defaultYAML)
}

// Load reads a profile from a YAML file. An empty path loads the default.
func Load(path string) (*Profile, error) {
	if path == "" {
		return Default()
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("profile.Load: reading %s: %w", path, err)
	}
	return decode(v)
}

// Parse reads a profile from YAML bytes.
func Parse(data []byte) (*Profile, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("profile.Parse: %w", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Profile, error) {
	var p Profile
	if err := v.Unmarshal(&p); err != nil {
		return nil, fmt.Errorf("profile: unmarshaling: %w", err)
	}
	if err := p.compile(); err != nil {
		return nil, fmt.Errorf("profile %q: %w", p.Name, err)
	}
	return &p, nil
}

var validKinds = map[string]bool{
	KindText: true, KindAccount: true, KindPeriod: true, KindDate: true, KindAmount: true,
}

func (p *Profile) compile() error {
	if len(p.Fields) == 0 {
		return fmt.Errorf("no fields defined")
	}
	known := make(map[string]bool, len(epd.ScalarFields))
	for _, f := range epd.ScalarFields {
		known[string(f)] = true
	}
	if v := p.Validation; v.MaxYear != 0 && v.MaxYear < v.MinYear {
		return fmt.Errorf("validation: max_year %d below min_year %d", v.MaxYear, v.MinYear)
	}
	if len(p.Months) != 0 && len(p.Months) != 12 {
		return fmt.Errorf("months: want 12 entries, got %d", len(p.Months))
	}
	for i := range p.Months {
		for j := range p.Months[i] {
			p.Months[i][j] = strings.ToLower(p.Months[i][j])
		}
	}

	for name, f := range p.Fields {
		if !known[name] {
			return fmt.Errorf("unknown field %q", name)
		}
		if !validKinds[f.Kind] {
			return fmt.Errorf("field %s: unknown kind %q", name, f.Kind)
		}
		if len(f.Candidates) == 0 {
			return fmt.Errorf("field %s: no candidates", name)
		}
		if f.Value != "" {
			re, err := regexp.Compile(f.Value)
			if err != nil {
				return fmt.Errorf("field %s: value pattern: %w", name, err)
			}
			f.value = re
		}
		for i := range f.Candidates {
			if err := f.Candidates[i].compile(); err != nil {
				return fmt.Errorf("field %s candidate %d: %w", name, i, err)
			}
		}
		p.Fields[name] = f
	}
	return p.Table.compile()
}

func (c *Candidate) compile() error {
	if c.Label == "" {
		return fmt.Errorf("empty label")
	}
	switch c.Tier {
	case string(epd.ConfidenceExact), string(epd.ConfidenceFuzzy):
	default:
		return fmt.Errorf("unknown tier %q", c.Tier)
	}
	switch c.Extract {
	case "":
		c.Extract = ExtractInline
	case ExtractInline, ExtractNextLine, ExtractInlineOrNext:
	default:
		return fmt.Errorf("unknown extract rule %q", c.Extract)
	}
	switch c.Take {
	case "":
		c.Take = "first"
	case "first", "last":
	default:
		return fmt.Errorf("unknown take %q", c.Take)
	}
	re, err := regexp.Compile("(?i)" + c.Label)
	if err != nil {
		return fmt.Errorf("label: %w", err)
	}
	c.label = re
	c.exclude, err = compileAll(c.Exclude)
	if err != nil {
		return fmt.Errorf("exclude: %w", err)
	}
	return nil
}

func (t *Table) compile() error {
	var err error
	if t.stop, err = compileAll(t.Stop); err != nil {
		return fmt.Errorf("table stop: %w", err)
	}
	if t.section, err = compileAll(t.Section); err != nil {
		return fmt.Errorf("table section: %w", err)
	}
	if t.skip, err = compileAll(t.Skip); err != nil {
		return fmt.Errorf("table skip: %w", err)
	}
	for _, h := range []*Header{&t.Header, &t.RecalculationHeader} {
		if h.MinGroups <= 0 {
			h.MinGroups = len(h.Groups)
		}
		for i := range h.Groups {
			for j := range h.Groups[i] {
				h.Groups[i][j] = strings.ToLower(h.Groups[i][j])
			}
		}
	}
	if len(t.Header.Groups) == 0 {
		return fmt.Errorf("table header: no keyword groups")
	}

	t.empty = make(map[string]bool, len(t.EmptyMarkers))
	for _, m := range t.EmptyMarkers {
		t.empty[strings.ToLower(m)] = true
	}

	if t.layouts, err = indexLayouts(t.Layouts, serviceColumns, ColTotal); err != nil {
		return fmt.Errorf("table layouts: %w", err)
	}
	if len(t.layouts) == 0 {
		return fmt.Errorf("table layouts: none defined")
	}
	if t.recalcLayouts, err = indexLayouts(t.RecalculationLayouts, recalculationColumns, ColAmount); err != nil {
		return fmt.Errorf("recalculation layouts: %w", err)
	}
	return nil
}

// indexLayouts keys layouts by column count and checks that each names its
// columns from allowed and contains name and the required amount column.
func indexLayouts(layouts [][]string, allowed map[string]bool, required string) (map[int][]string, error) {
	out := make(map[int][]string, len(layouts))
	for _, l := range layouts {
		seen := map[string]bool{}
		for _, col := range l {
			if !allowed[col] {
				return nil, fmt.Errorf("unknown column %q", col)
			}
			if seen[col] {
				return nil, fmt.Errorf("duplicate column %q", col)
			}
			seen[col] = true
		}
		if !seen[ColName] || !seen[required] {
			return nil, fmt.Errorf("layout %v lacks %s or %s", l, ColName, required)
		}
		if _, dup := out[len(l)]; dup {
			return nil, fmt.Errorf("two layouts with %d columns", len(l))
		}
		out[len(l)] = l
	}
	return out, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
