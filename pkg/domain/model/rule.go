package model

import (
	"fmt"
	"maps"
	"regexp"

	"github.com/m-mizutani/goerr/v2"
)

// BackendKind selects the notifier implementation for a routing rule.
type BackendKind string

const (
	// BackendGitNotifier is the flag-driven diff-log notifier run against the bare mirror.
	BackendGitNotifier BackendKind = "git-notifier"
	// BackendGitCommitNotifier is the helper script run against the working clone.
	BackendGitCommitNotifier BackendKind = "git-commit-notifier"

	DefaultBackend = BackendGitNotifier
)

// Reserved keys of a routing rule entry. They are consumed by the matcher and never
// handed to a notifier.
const (
	RuleKeyID             = "id"
	RuleKeyImplementation = "implementation"
)

// RoutingRule maps repositories whose "owner/repo" matches ID to notifier option overrides.
type RoutingRule struct {
	ID        string
	Overrides map[string]any

	pattern *regexp.Regexp
}

// NewRoutingRule builds a rule from one entry of the "github" config section and
// compiles its pattern.
func NewRoutingRule(entry map[string]any) (*RoutingRule, error) {
	raw, ok := entry[RuleKeyID]
	if !ok {
		return nil, goerr.New("routing rule has no id")
	}
	id, ok := raw.(string)
	if !ok || id == "" {
		return nil, goerr.New("routing rule id must be a non-empty string", goerr.V("id", raw))
	}

	pattern, err := regexp.Compile(id)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid routing rule pattern", goerr.V("id", id))
	}

	overrides := maps.Clone(entry)
	delete(overrides, RuleKeyID)

	rule := &RoutingRule{
		ID:        id,
		Overrides: overrides,
		pattern:   pattern,
	}
	if _, err := rule.Backend(); err != nil {
		return nil, err
	}

	return rule, nil
}

// Match reports whether the pattern matches anywhere in fullName. The pattern is not
// anchored, so "acme/widgets" also matches "acme/widgets-extra".
func (r *RoutingRule) Match(fullName string) bool {
	return r.pattern.MatchString(fullName)
}

// Backend returns the notifier kind requested by the rule, DefaultBackend if none.
func (r *RoutingRule) Backend() (BackendKind, error) {
	kind, err := ParseBackend(r.Overrides[RuleKeyImplementation])
	if err != nil {
		return "", goerr.Wrap(err, "invalid routing rule", goerr.V("id", r.ID))
	}
	return kind, nil
}

// ParseBackend converts an "implementation" option value into a BackendKind. nil
// selects DefaultBackend.
func ParseBackend(v any) (BackendKind, error) {
	if v == nil {
		return DefaultBackend, nil
	}

	kind := BackendKind(fmt.Sprint(v))
	switch kind {
	case BackendGitNotifier, BackendGitCommitNotifier:
		return kind, nil
	default:
		return "", goerr.Wrap(ErrUnknownBackend, "unsupported notifier implementation",
			goerr.V("implementation", v),
		)
	}
}
