// Package table segments the service-charge and recalculation tables of an EPD.
package table

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"epdparser/internal/epd"
	"epdparser/internal/epd/amount"
	"epdparser/internal/epd/profile"
)

// TableStructureError means no service table header was recognized.
type TableStructureError struct {
	Lines int
}

func (e *TableStructureError) Error() string {
	return "no service table header found"
}

// Result is the outcome of table segmentation.
type Result struct {
	Services       []epd.ServiceCharge
	Recalculations []epd.Recalculation
	// Skipped counts rows that had a known layout but failed admission.
	Skipped int
}

type region int

const (
	outside region = iota
	services
	recalculations
)

type rowStatus int

const (
	notRow rowStatus = iota
	skipped
	accepted
)

var columnGap = regexp.MustCompile(`\s{2,}`)

// Parser splits table rows using the layouts of a profile. It is safe for
// concurrent use.
type Parser struct {
	table   *profile.Table
	maxCols int
	logger  *zap.Logger
}

// New creates a Parser. A nil logger disables logging.
func New(p *profile.Profile, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxCols := 0
	for _, l := range p.Table.Layouts {
		if len(l) > maxCols {
			maxCols = len(l)
		}
	}
	return &Parser{table: &p.Table, maxCols: maxCols, logger: logger}
}

// Parse walks the lines once. A region opens after a header line and closes
// at a stop line or at the first non-blank line that is not a row; scanning
// then continues for further headers. Services and recalculations keep
// source order and are indexed from zero over accepted rows.
func (p *Parser) Parse(lines []string) (Result, error) {
	var (
		res      Result
		mode     = outside
		found    bool
		category string
	)
	t := p.table

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if t.IsSection(line) {
			category = strings.TrimRight(line, ": ")
			continue
		}
		if t.RecalculationHeader.Matches(line) {
			mode = recalculations
			continue
		}
		if t.IsStop(line) {
			mode = outside
			continue
		}
		if t.Header.Matches(line) {
			mode = services
			found = true
			continue
		}
		if mode == outside || t.IsSkip(line) {
			continue
		}

		cells := p.split(line)
		var status rowStatus
		if mode == services {
			status = p.serviceRow(cells, category, &res)
		} else {
			status = p.recalculationRow(cells, &res)
		}
		switch status {
		case notRow:
			mode = outside
		case skipped:
			res.Skipped++
			p.logger.Debug("table: row skipped", zap.String("line", line))
		}
	}

	if !found {
		return res, &TableStructureError{Lines: len(lines)}
	}
	return res, nil
}

// split cuts a row on an explicit delimiter when one is present, otherwise
// on runs of two or more spaces.
func (p *Parser) split(line string) []string {
	for _, d := range p.table.Delimiters {
		if d == "" || !strings.Contains(line, d) {
			continue
		}
		cells := strings.Split(line, d)
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		if len(cells) > 0 && cells[0] == "" {
			cells = cells[1:]
		}
		if n := len(cells); n > 0 && cells[n-1] == "" {
			cells = cells[:n-1]
		}
		return cells
	}
	return columnGap.Split(line, -1)
}

func (p *Parser) serviceRow(cells []string, category string, res *Result) rowStatus {
	if len(cells) > p.maxCols && p.maxCols > 1 {
		// extra leading cells belong to a name that contains wide spacing
		extra := len(cells) - p.maxCols
		cells = append([]string{strings.Join(cells[:extra+1], " ")}, cells[extra+1:]...)
	}
	layout, ok := p.table.Layout(len(cells))
	if !ok {
		return notRow
	}

	sc := epd.ServiceCharge{Category: category}
	haveTotal := false
	for i, col := range layout {
		cell := cells[i]
		if col != profile.ColName && p.table.IsEmpty(cell) {
			continue
		}
		switch col {
		case profile.ColName:
			sc.Name = cell
		case profile.ColUnit:
			unit := cell
			sc.Unit = &unit
		case profile.ColVolume:
			sc.Volume = quantity(cell)
		case profile.ColTariff:
			sc.Tariff = quantity(cell)
		case profile.ColCharged:
			sc.Charged = money(cell)
		case profile.ColRecalculation:
			sc.Recalculation = money(cell)
		case profile.ColDebt:
			sc.Debt = money(cell)
		case profile.ColPaid:
			sc.Paid = money(cell)
		case profile.ColTotal:
			if d, err := amount.Normalize(cell); err == nil {
				sc.Total = d
				haveTotal = true
			}
		}
	}
	// a name without letters is a column-numbering row ("1  2  3")
	if !hasLetter(sc.Name) || !haveTotal {
		return skipped
	}
	sc.OrderIndex = len(res.Services)
	res.Services = append(res.Services, sc)
	return accepted
}

func (p *Parser) recalculationRow(cells []string, res *Result) rowStatus {
	layout, ok := p.table.RecalculationLayout(len(cells))
	if !ok {
		return notRow
	}
	rc := epd.Recalculation{}
	haveAmount := false
	for i, col := range layout {
		cell := cells[i]
		switch col {
		case profile.ColName:
			rc.ServiceName = cell
		case profile.ColReason:
			if !p.table.IsEmpty(cell) {
				rc.Reason = cell
			}
		case profile.ColAmount:
			if d, err := amount.Normalize(cell); err == nil {
				rc.Amount = d
				haveAmount = true
			}
		}
	}
	if !hasLetter(rc.ServiceName) || !haveAmount {
		return skipped
	}
	rc.OrderIndex = len(res.Recalculations)
	res.Recalculations = append(res.Recalculations, rc)
	return accepted
}

func money(cell string) decimal.NullDecimal {
	d, err := amount.Normalize(cell)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func quantity(cell string) decimal.NullDecimal {
	d, err := amount.Quantity(cell)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}
