package relay

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/hackclub/stonepheus/internal/events"
	"github.com/hackclub/stonepheus/internal/observability"
)

// Notifier consumes ticket lifecycle notifications and posts the human
// facing follow-ups: resolution notices, status reactions and assignment
// DMs. Each side effect is independent; failures are logged and the rest
// still run.
type Notifier struct {
	messenger    Messenger
	workspaceURL string
	metrics      *observability.Metrics
	logger       *zap.Logger
}

func NewNotifier(messenger Messenger, workspaceURL string, metrics *observability.Metrics, logger *zap.Logger) *Notifier {
	return &Notifier{
		messenger:    messenger,
		workspaceURL: workspaceURL,
		metrics:      metrics,
		logger:       logger,
	}
}

// Register subscribes the notifier's handlers on the dispatcher.
func (n *Notifier) Register(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketOpened, n.HandleTicketOpened)
	dispatcher.Subscribe(events.EventTicketResolved, n.HandleTicketResolved)
	dispatcher.Subscribe(events.EventTicketAssigned, n.HandleTicketAssigned)
}

func (n *Notifier) HandleTicketOpened(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.TicketOpenedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.metrics.RecordEvent(string(event.Type))
	n.logger.Info("ticket opened",
		zap.String("channel", p.Channel),
		zap.String("ts", p.TS),
		zap.String("backend_ts", p.BackendTS),
		zap.String("user", p.User))
	return nil
}

// HandleTicketResolved posts the resolution notice in both threads and marks
// both root messages with the resolved reaction.
func (n *Notifier) HandleTicketResolved(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.TicketResolvedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.metrics.RecordEvent(string(event.Type))

	notice := resolutionNotice(p.Actor)
	if _, _, err := n.messenger.PostMessage(ctx, p.Channel, notice, nil,
		PostOptions{ThreadTS: p.TS}); err != nil {
		n.logger.Error("post frontend resolution notice", zap.String("ts", p.TS), zap.Error(err))
	}
	if _, _, err := n.messenger.PostMessage(ctx, p.BackendChannel, notice, nil,
		PostOptions{ThreadTS: p.BackendTS}); err != nil {
		n.logger.Error("post backend resolution notice", zap.String("ts", p.BackendTS), zap.Error(err))
	}
	if err := n.messenger.AddReaction(ctx, p.Channel, resolvedEmoji, p.TS); err != nil {
		n.logger.Error("react on frontend message", zap.String("ts", p.TS), zap.Error(err))
	}
	if err := n.messenger.AddReaction(ctx, p.BackendChannel, resolvedEmoji, p.BackendTS); err != nil {
		n.logger.Error("react on backend message", zap.String("ts", p.BackendTS), zap.Error(err))
	}
	return nil
}

// HandleTicketAssigned pings the assignee over DM with links to both sides
// of the ticket.
func (n *Notifier) HandleTicketAssigned(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.metrics.RecordEvent(string(event.Type))

	// The picker offers the whole workspace; flag picks outside the
	// backend channel so misassignments are visible in the logs.
	if members, err := n.messenger.GetConversationMembers(ctx, p.BackendChannel); err != nil {
		n.logger.Warn("list backend members", zap.String("channel", p.BackendChannel), zap.Error(err))
	} else if !slices.Contains(members, p.AssignedUser) {
		n.logger.Warn("assignee is not a backend channel member",
			zap.String("user", p.AssignedUser), zap.String("channel", p.BackendChannel))
	}

	dm, err := n.messenger.OpenDM(ctx, p.AssignedUser)
	if err != nil {
		return fmt.Errorf("open dm with %s: %w", p.AssignedUser, err)
	}
	_, _, err = n.messenger.PostMessage(ctx, dm, "",
		assignmentDMBlocks(p.Channel, p.TS, p.BackendChannel, p.BackendTS, n.workspaceURL),
		PostOptions{})
	return err
}
