package events

import (
	"time"

	"github.com/hackclub/stonepheus/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

// Inbound events produced by the normalizer from provider payloads.
const (
	EventNewTicket     EventType = "new_ticket"
	EventFrontendReply EventType = "frontend_reply"
	EventBackendReply  EventType = "backend_reply"
	EventResolveTicket EventType = "resolve_ticket"
	EventAssignTicket  EventType = "assign_ticket"
	EventLinkShared    EventType = "link_shared"
	EventSlashCommand  EventType = "slash_command"
)

// Notifications published by the relay engine after a state change.
const (
	EventTicketOpened   EventType = "ticket_opened"
	EventTicketResolved EventType = "ticket_resolved"
	EventTicketAssigned EventType = "ticket_assigned"
)

// Event is the unit the dispatcher routes. Payload holds one of the payload
// structs below, selected by Type.
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Payload   interface{}
}

// MessagePayload carries a channel message for the relay engine. It backs
// NewTicket, FrontendReply and BackendReply events.
type MessagePayload struct {
	Channel  string
	User     string
	Text     string
	TS       string
	ThreadTS string
	Files    []domain.File
}

// ResolvePayload identifies the ticket to resolve by its frontend side.
type ResolvePayload struct {
	Channel string
	TS      string
	Actor   string
}

// AssignPayload carries a user-assignment button action.
type AssignPayload struct {
	Channel      string
	TS           string
	SelectedUser string
	Actor        string
}

// LinkSharedPayload carries candidate URLs for unfurling.
type LinkSharedPayload struct {
	Channel   string
	MessageTS string
	URLs      []string
}

// SlashCommandPayload carries a slash command invocation.
type SlashCommandPayload struct {
	Command     string
	Text        string
	UserID      string
	ChannelID   string
	ResponseURL string
}

// TicketOpenedPayload notification payload.
type TicketOpenedPayload struct {
	Channel        string
	TS             string
	BackendChannel string
	BackendTS      string
	User           string
}

// TicketResolvedPayload notification payload.
type TicketResolvedPayload struct {
	Channel        string
	TS             string
	BackendChannel string
	BackendTS      string
	Actor          string
}

// TicketAssignedPayload notification payload.
type TicketAssignedPayload struct {
	Channel        string
	TS             string
	BackendChannel string
	BackendTS      string
	AssignedUser   string
}
