package interfaces

//go:generate moq -out mocks/usecase_mock.go -pkg mocks . DispatchUseCase EventProcessor

import (
	"context"

	"github.com/m-mizutani/gitdub/pkg/domain/model"
)

// DispatchUseCase turns webhook events into notifier runs
type DispatchUseCase interface {
	// ProcessPush matches, mirrors and notifies for one push. Every failure is
	// reported through the returned outcome and error; it never panics.
	ProcessPush(ctx context.Context, event *model.PushEvent) (model.Outcome, error)

	// ProcessPing acknowledges a ping by logging it
	ProcessPing(ctx context.Context, event *model.PingEvent)
}

// EventProcessor routes parsed GitHub payloads to the dispatcher
type EventProcessor interface {
	// ProcessEvent handles payload, the result of parsing event.RawPayload
	ProcessEvent(ctx context.Context, event *model.WebhookEvent, payload any) error
}
