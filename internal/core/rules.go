package core

import "deepcopy/pkg/domain"

type (
	// Rule aliases domain.Rule.
	Rule = domain.Rule
	// RulesEngine aliases domain.RulesEngine.
	RulesEngine = domain.RulesEngine
	// Result aliases domain.Result.
	Result = domain.Result
	// Change aliases domain.Change.
	Change = domain.Change
	// Violation aliases domain.Violation.
	Violation = domain.Violation
)

// NewRulesEngine constructs an engine with no rules registered.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine(schema domain.Schema) *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewReferentialIntegrityRule(schema))
	return engine
}
