package model

import "github.com/m-mizutani/goerr/v2"

var (
	ErrNoMatchingRepository = goerr.New("no matching repository")
	ErrCloneFailed          = goerr.New("failed to clone repository")
	ErrFetchFailed          = goerr.New("failed to fetch repository")
	ErrNotifierFailed       = goerr.New("notifier failed")
	ErrUnknownBackend       = goerr.New("unknown notifier backend")
)
