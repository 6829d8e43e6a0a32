// Package validator cross-checks a parsed EPD and annotates it with warnings.
package validator

import "epdparser/internal/epd"

// Validator is a single consistency rule. A rule never modifies the document;
// it only reports warnings.
type Validator interface {
	Validate(doc *epd.ParsedDocument) []epd.ValidationWarning
	RuleKey() string
	RuleName() string
}
