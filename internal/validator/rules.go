package validator

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"epdparser/internal/epd"
	"epdparser/internal/epd/profile"
)

// Rule keys of the built-in validators.
const (
	RuleServicesSum     = "total.services_sum"
	RuleInsurance       = "total.insurance"
	RulePeriodPlausible = "period.plausible"
	RuleDueAfterPeriod  = "due_date.after_period"
)

// Settings parameterize the built-in rules.
type Settings struct {
	Tolerance decimal.Decimal
	MinYear   int
	// MaxYear fixes the upper year bound. When zero the bound is Now().Year()+1.
	MaxYear int
	// Now supplies the current time for the year window. Defaults to time.Now.
	Now func() time.Time
}

// SettingsFromProfile reads tolerance and year window from a profile.
func SettingsFromProfile(v profile.Validation) Settings {
	return Settings{Tolerance: v.Tolerance(), MinYear: v.MinYear, MaxYear: v.MaxYear}
}

// ruleValidator adapts a plain function to the Validator interface.
type ruleValidator struct {
	ruleKey  string
	ruleName string
	validate func(*epd.ParsedDocument) []epd.ValidationWarning
}

func (v *ruleValidator) RuleKey() string  { return v.ruleKey }
func (v *ruleValidator) RuleName() string { return v.ruleName }

func (v *ruleValidator) Validate(doc *epd.ParsedDocument) []epd.ValidationWarning {
	return v.validate(doc)
}

func amountWarning(kind epd.WarningKind, rule, ruleName string, field epd.FieldName, expected, computed decimal.Decimal) epd.ValidationWarning {
	return epd.ValidationWarning{
		Kind:     kind,
		Rule:     rule,
		Field:    string(field),
		Expected: decimal.NewNullDecimal(expected),
		Computed: decimal.NewNullDecimal(computed),
		Message: fmt.Sprintf("%s: %s mismatch (expected %s, got %s)",
			ruleName, field, expected.StringFixed(2), computed.StringFixed(2)),
	}
}

func plausible(p epd.Period, minYear, maxYear int) bool {
	return p.Month >= 1 && p.Month <= 12 && p.Year >= minYear && p.Year <= maxYear
}

// Builtin returns the built-in consistency rules.
func Builtin(s Settings) []Validator {
	now := s.Now
	if now == nil {
		now = time.Now
	}
	tolerance := s.Tolerance.Abs()

	return []Validator{
		&ruleValidator{
			ruleKey: RuleServicesSum, ruleName: "Total: Services Sum",
			validate: func(d *epd.ParsedDocument) []epd.ValidationWarning {
				if !d.TotalAmount.Valid || len(d.Services) == 0 {
					return nil
				}
				stated := d.TotalAmount.Decimal
				computed := d.ServicesTotal()
				if computed.Sub(stated).Abs().LessThanOrEqual(tolerance) {
					return nil
				}
				return []epd.ValidationWarning{amountWarning(epd.WarningTotalMismatch, RuleServicesSum,
					"Total: Services Sum", epd.FieldTotalAmount, stated, computed)}
			},
		},
		&ruleValidator{
			ruleKey: RuleInsurance, ruleName: "Total: With Insurance",
			validate: func(d *epd.ParsedDocument) []epd.ValidationWarning {
				if !d.TotalAmount.Valid || !d.TotalWithInsurance.Valid {
					return nil
				}
				if !d.TotalWithInsurance.Decimal.LessThan(d.TotalAmount.Decimal) {
					return nil
				}
				return []epd.ValidationWarning{amountWarning(epd.WarningInsuranceBelowTotal, RuleInsurance,
					"Total: With Insurance", epd.FieldTotalWithInsurance,
					d.TotalAmount.Decimal, d.TotalWithInsurance.Decimal)}
			},
		},
		&ruleValidator{
			ruleKey: RulePeriodPlausible, ruleName: "Period: Plausible",
			validate: func(d *epd.ParsedDocument) []epd.ValidationWarning {
				p := d.BillingPeriod
				if p == nil {
					return nil
				}
				maxYear := s.MaxYear
				if maxYear == 0 {
					maxYear = now().Year() + 1
				}
				if plausible(*p, s.MinYear, maxYear) {
					return nil
				}
				return []epd.ValidationWarning{{
					Kind:  epd.WarningPeriodImplausible,
					Rule:  RulePeriodPlausible,
					Field: string(epd.FieldBillingPeriod),
					Message: fmt.Sprintf("Period: Plausible: %02d.%d is outside months 1-12 or years %d-%d",
						p.Month, p.Year, s.MinYear, maxYear),
				}}
			},
		},
		&ruleValidator{
			ruleKey: RuleDueAfterPeriod, ruleName: "Due Date: After Period Start",
			validate: func(d *epd.ParsedDocument) []epd.ValidationWarning {
				p := d.BillingPeriod
				if d.DueDate == nil || p == nil || p.Month < 1 || p.Month > 12 {
					return nil
				}
				start := p.FirstDay()
				if !d.DueDate.Before(start) {
					return nil
				}
				return []epd.ValidationWarning{{
					Kind:  epd.WarningDueDateBeforePeriod,
					Rule:  RuleDueAfterPeriod,
					Field: string(epd.FieldDueDate),
					Message: fmt.Sprintf("Due Date: After Period Start: %s is before %s",
						d.DueDate.Format("2006-01-02"), start.Format("2006-01-02")),
				}}
			},
		},
	}
}
