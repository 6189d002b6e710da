package usecase

import (
	"maps"
	"slices"

	"github.com/m-mizutani/gitdub/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

// Matcher selects the routing rule for a repository
type Matcher struct {
	defaults map[string]any
	rules    []*model.RoutingRule
}

// RuleMatch is the result of matching a repository against the rules
type RuleMatch struct {
	Rule *model.RoutingRule
	Kind model.BackendKind

	// Values are the notifier defaults overlaid by the rule's overrides
	Values map[string]any
}

// NewMatcher creates a Matcher. Rules are evaluated in the given order.
func NewMatcher(defaults map[string]any, rules []*model.RoutingRule) *Matcher {
	return &Matcher{
		defaults: defaults,
		rules:    rules,
	}
}

// Match returns the first rule whose pattern matches fullName ("owner/repo").
// Later rules are not evaluated.
func (m *Matcher) Match(fullName string) (*RuleMatch, error) {
	for _, rule := range m.rules {
		if !rule.Match(fullName) {
			continue
		}

		values := maps.Clone(m.defaults)
		if values == nil {
			values = make(map[string]any, len(rule.Overrides))
		}
		maps.Copy(values, rule.Overrides)
		delete(values, model.RuleKeyID)

		kind, err := model.ParseBackend(values[model.RuleKeyImplementation])
		if err != nil {
			return nil, goerr.Wrap(err, "failed to select notifier",
				goerr.V("repository", fullName),
				goerr.V("rule", rule.ID),
			)
		}
		delete(values, model.RuleKeyImplementation)

		return &RuleMatch{
			Rule:   rule,
			Kind:   kind,
			Values: values,
		}, nil
	}

	return nil, goerr.Wrap(model.ErrNoMatchingRepository, "no rule matched", goerr.V("repository", fullName))
}

// Rules returns the rules in evaluation order
func (m *Matcher) Rules() []*model.RoutingRule {
	return m.rules
}

// Kinds returns the distinct backends the rules can select, in rule order
func (m *Matcher) Kinds() ([]model.BackendKind, error) {
	var kinds []model.BackendKind
	for _, rule := range m.rules {
		impl, ok := rule.Overrides[model.RuleKeyImplementation]
		if !ok {
			impl = m.defaults[model.RuleKeyImplementation]
		}
		kind, err := model.ParseBackend(impl)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid routing rule", goerr.V("id", rule.ID))
		}
		if !slices.Contains(kinds, kind) {
			kinds = append(kinds, kind)
		}
	}
	return kinds, nil
}
