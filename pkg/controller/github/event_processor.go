package github

import (
	"context"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gitdub/pkg/domain/interfaces"
	"github.com/m-mizutani/gitdub/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

// EventProcessor processes GitHub webhook events
type EventProcessor struct {
	dispatchUC interfaces.DispatchUseCase
}

// NewEventProcessor creates a new GitHub event processor
func NewEventProcessor(dispatchUC interfaces.DispatchUseCase) *EventProcessor {
	return &EventProcessor{
		dispatchUC: dispatchUC,
	}
}

// ProcessEvent processes a GitHub webhook event
func (p *EventProcessor) ProcessEvent(ctx context.Context, event *model.WebhookEvent, payload any) error {
	logger := ctxlog.From(ctx)

	switch event.Type {
	case model.EventTypePing:
		return p.processPingEvent(ctx, payload)
	case model.EventTypePush:
		return p.processPushEvent(ctx, event.ID, payload)
	default:
		logger.Info("Ignoring unsupported event type", "event_type", event.Type)
		return nil
	}
}

func (p *EventProcessor) processPingEvent(ctx context.Context, payload any) error {
	pingEvent, ok := payload.(*github.PingEvent)
	if !ok {
		ctxlog.From(ctx).Warn("Invalid ping event payload")
		return nil
	}

	p.dispatchUC.ProcessPing(ctx, &model.PingEvent{
		Zen:    pingEvent.GetZen(),
		HookID: pingEvent.GetHookID(),
	})
	return nil
}

func (p *EventProcessor) processPushEvent(ctx context.Context, deliveryID string, payload any) error {
	pushEvent, ok := payload.(*github.PushEvent)
	if !ok {
		ctxlog.From(ctx).Warn("Invalid push event payload")
		return nil
	}

	event, err := extractPushEvent(pushEvent)
	if err != nil {
		return err
	}
	event.DeliveryID = deliveryID

	outcome, err := p.dispatchUC.ProcessPush(ctx, event)
	if err != nil {
		return goerr.Wrap(err, "failed to process push event",
			goerr.V("repository", event.FullName()),
			goerr.V("outcome", outcome),
		)
	}

	return nil
}

// extractPushEvent extracts the fields the dispatcher needs from a push payload
func extractPushEvent(event *github.PushEvent) (*model.PushEvent, error) {
	repo := event.GetRepo()
	if repo == nil {
		return nil, goerr.New("missing repository information in push event")
	}

	// Push payloads carry the owner's name; login is only set on newer payloads.
	owner := repo.GetOwner().GetName()
	if owner == "" {
		owner = repo.GetOwner().GetLogin()
	}

	pushed := &model.PushEvent{
		URL:    repo.GetURL(),
		Owner:  owner,
		Repo:   repo.GetName(),
		Before: event.GetBefore(),
		After:  event.GetAfter(),
		Ref:    event.GetRef(),
	}
	if err := pushed.Validate(); err != nil {
		return nil, err
	}

	return pushed, nil
}
