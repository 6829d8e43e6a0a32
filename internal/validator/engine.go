package validator

import (
	"go.uber.org/zap"

	"epdparser/internal/epd"
)

// Engine runs every registered rule against a document.
type Engine struct {
	registry *Registry
	logger   *zap.Logger
}

// NewEngine creates a new validation engine. A nil logger disables logging.
func NewEngine(registry *Registry, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{registry: registry, logger: logger}
}

// NewDefaultEngine registers the built-in rules.
func NewDefaultEngine(s Settings, logger *zap.Logger) *Engine {
	r := NewRegistry()
	for _, v := range Builtin(s) {
		r.Register(v)
	}
	return NewEngine(r, logger)
}

// Run returns the warnings of all rules in rule-key order. The document is
// not modified.
func (e *Engine) Run(doc *epd.ParsedDocument) []epd.ValidationWarning {
	var warnings []epd.ValidationWarning
	for _, v := range e.registry.All() {
		w := v.Validate(doc)
		if len(w) > 0 {
			e.logger.Debug("validator: rule reported warnings",
				zap.String("rule", v.RuleKey()),
				zap.String("source", doc.SourceName),
				zap.Int("count", len(w)),
			)
		}
		warnings = append(warnings, w...)
	}
	return warnings
}
