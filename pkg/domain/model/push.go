package model

import (
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// PushEvent is the part of a GitHub push payload the dispatcher needs.
type PushEvent struct {
	DeliveryID string
	URL        string // repository.url
	Owner      string // repository.owner.name
	Repo       string // repository.name
	Before     string
	After      string
	Ref        string
}

// FullName returns "owner/repo", the string routing rules are matched against.
func (e *PushEvent) FullName() string {
	return e.Owner + "/" + e.Repo
}

// CompareLink returns the web URL comparing the pushed range.
func (e *PushEvent) CompareLink() string {
	return fmt.Sprintf("%s/compare/%s...%s", e.URL, e.Before, e.After)
}

// ShortRange returns the abbreviated commit range used in log lines.
func (e *PushEvent) ShortRange() string {
	return shortID(e.Before) + "..." + shortID(e.After)
}

// Validate checks that owner and repository names are usable as path elements.
func (e *PushEvent) Validate() error {
	for _, v := range []struct {
		field string
		value string
	}{
		{"owner", e.Owner},
		{"repo", e.Repo},
	} {
		if v.value == "" {
			return goerr.New("missing field in push event", goerr.V("field", v.field))
		}
		if v.value == "." || v.value == ".." || strings.ContainsAny(v.value, `/\`) {
			return goerr.New("invalid name in push event",
				goerr.V("field", v.field),
				goerr.V("value", v.value),
			)
		}
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 6 {
		return id[:6]
	}
	return id
}

// PingEvent is sent by GitHub when a hook is created.
type PingEvent struct {
	Zen    string
	HookID int64
}
