// Package amount converts locale-formatted numeric tokens into fixed-point decimals.
package amount

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// MaxAbs bounds any amount found on a bill.
var MaxAbs = decimal.RequireFromString("999999999.99")

// AmountFormatError is returned for tokens that cannot be read as an amount.
type AmountFormatError struct {
	Token  string
	Reason string
}

func (e *AmountFormatError) Error() string {
	return fmt.Sprintf("amount %q: %s", e.Token, e.Reason)
}

// currency markers are matched after lower-casing; longer forms come first.
var currency = strings.NewReplacer(
	"руб.", "", "руб", "", "р.", "", "₽", "",
	"rub", "", "usd", "", "eur", "", "$", "", "€", "",
	"р", "",
)

// Normalize reads a money token such as "1 234,56 руб." and returns it with
// exactly two fractional digits, rounded half to even.
func Normalize(token string) (decimal.Decimal, error) {
	d, err := parse(token, false)
	if err != nil {
		return decimal.Zero, err
	}
	return d.RoundBank(2), nil
}

// Quantity reads a volume or tariff token. A single separator is always a
// decimal point there, and up to four fractional digits are kept.
func Quantity(token string) (decimal.Decimal, error) {
	d, err := parse(token, true)
	if err != nil {
		return decimal.Zero, err
	}
	return d.RoundBank(4), nil
}

func parse(token string, lone bool) (decimal.Decimal, error) {
	fail := func(reason string) (decimal.Decimal, error) {
		return decimal.Zero, &AmountFormatError{Token: token, Reason: reason}
	}

	s := strings.TrimSpace(token)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = currency.Replace(strings.ToLower(s))
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	s, signed := stripSign(s)
	if signed {
		neg = !neg
	}

	if s == "" || !strings.ContainsAny(s, "0123456789") {
		return fail("no digits")
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != ',' && r != '.' {
			return fail(fmt.Sprintf("unexpected character %q", r))
		}
	}

	intPart, frac, reason := splitSeparators(s, lone)
	if reason != "" {
		return fail(reason)
	}
	if intPart == "" {
		intPart = "0"
	}
	num := intPart
	if frac != "" {
		num += "." + frac
	}
	d, perr := decimal.NewFromString(num)
	if perr != nil {
		return fail(perr.Error())
	}
	if d.Abs().GreaterThan(MaxAbs) {
		return fail("out of range")
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// stripSign removes one leading or trailing sign and reports whether it was negative.
func stripSign(s string) (string, bool) {
	for _, minus := range []string{"-", "\u2212", "\u2013"} {
		if strings.HasPrefix(s, minus) {
			return strings.TrimPrefix(s, minus), true
		}
		if strings.HasSuffix(s, minus) {
			return strings.TrimSuffix(s, minus), true
		}
	}
	return strings.TrimPrefix(s, "+"), false
}

// splitSeparators resolves which of ',' and '.' is the decimal point and
// returns the integer digits and fractional digits.
func splitSeparators(s string, lone bool) (intPart, frac, reason string) {
	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")

	switch {
	case comma >= 0 && dot >= 0:
		dec, thou := byte(','), byte('.')
		at := comma
		if dot > comma {
			dec, thou, at = '.', ',', dot
		}
		if strings.Count(s, string(dec)) > 1 {
			return "", "", "repeated decimal separator"
		}
		intPart, ok := ungroup(s[:at], thou)
		if !ok {
			return "", "", "malformed thousands grouping"
		}
		return intPart, s[at+1:], ""

	case comma >= 0 || dot >= 0:
		sep := byte(',')
		at := comma
		if dot >= 0 {
			sep, at = '.', dot
		}
		after := len(s) - at - 1
		if strings.Count(s, string(sep)) == 1 && (lone || (after >= 1 && after <= 2)) {
			return s[:at], s[at+1:], ""
		}
		intPart, ok := ungroup(s, sep)
		if !ok {
			return "", "", "malformed thousands grouping"
		}
		return intPart, "", ""
	}
	return s, "", ""
}

// ungroup removes thousands separators, requiring three-digit groups after the first.
func ungroup(s string, sep byte) (string, bool) {
	groups := strings.Split(s, string(sep))
	for i, g := range groups {
		if i == 0 && (len(g) == 0 || len(g) > 3) && len(groups) > 1 {
			return "", false
		}
		if i > 0 && len(g) != 3 {
			return "", false
		}
	}
	return strings.Join(groups, ""), true
}
