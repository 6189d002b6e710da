package model

// MirrorPaths locates the local mirrors of one repository.
type MirrorPaths struct {
	Checkout string // <workdir>/<owner>/<repo>, a regular clone with a working tree
	Bare     string // <workdir>/<owner>/<repo>_bare, a bare clone tracking upstream branches
}

// NotifierOptions is everything a notifier needs for one push. It is built per event
// and never shared.
type NotifierOptions struct {
	Kind BackendKind

	// Values holds the global notifier defaults overlaid by the matched rule's overrides.
	Values map[string]any

	Link   string
	Before string
	After  string
	Ref    string

	// UpdateOnly asks the notifier to record the current state without sending anything.
	UpdateOnly bool
}

// Outcome is the terminal state of processing one push event.
type Outcome string

const (
	OutcomeSucceeded    Outcome = "succeeded"
	OutcomeRejected     Outcome = "rejected"
	OutcomeMirrorFailed Outcome = "mirror_failed"
	OutcomeNotifyFailed Outcome = "notify_failed"
)

// OK reports whether the push resulted in a successful notifier run.
func (o Outcome) OK() bool {
	return o == OutcomeSucceeded
}
