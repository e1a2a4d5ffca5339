package relay

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/slack-go/slack"

	"github.com/hackclub/stonepheus/internal/config"
	"github.com/hackclub/stonepheus/internal/domain"
	"github.com/hackclub/stonepheus/internal/events"
)

// projectURLPattern matches showcase project URLs in both their review and
// armory forms, capturing the numeric project id.
var projectURLPattern = regexp.MustCompile(`/(?:review/projects|armory)/([0-9]+)$`)

// ParseProjectID extracts the numeric project id from a showcase URL.
func ParseProjectID(url string) (int, bool) {
	m := projectURLPattern.FindStringSubmatch(url)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return id, true
}

// inboundMessage is the subset of a Slack message event the relay cares
// about. Parsed by hand because the upstream event structs do not expose
// app_id or attached files.
type inboundMessage struct {
	Channel  string        `json:"channel"`
	User     string        `json:"user"`
	Text     string        `json:"text"`
	TS       string        `json:"ts"`
	ThreadTS string        `json:"thread_ts"`
	SubType  string        `json:"subtype"`
	AppID    string        `json:"app_id"`
	Files    []inboundFile `json:"files"`
}

type inboundFile struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Mimetype           string `json:"mimetype"`
	URLPrivateDownload string `json:"url_private_download"`
	Permalink          string `json:"permalink"`
}

type inboundLinkShared struct {
	Channel   string `json:"channel"`
	MessageTS string `json:"message_ts"`
	Source    string `json:"source"`
	Links     []struct {
		URL string `json:"url"`
	} `json:"links"`
}

// Normalizer turns raw Slack callbacks into relay events. Anything that is
// not relevant to ticket flow is dropped at this stage so the engine only
// ever sees well formed events.
type Normalizer struct {
	channels config.ChannelPairs
	appID    string
}

func NewNormalizer(channels config.ChannelPairs, appID string) *Normalizer {
	return &Normalizer{channels: channels, appID: appID}
}

func newEvent(eventType events.EventType, payload interface{}) events.Event {
	return events.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// NormalizeEvent classifies an inner Events API event. The second return
// value is false when the event should be ignored.
func (n *Normalizer) NormalizeEvent(raw json.RawMessage) (events.Event, bool) {
	var peek struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &peek); err != nil {
		return events.Event{}, false
	}

	switch peek.Type {
	case "message":
		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return events.Event{}, false
		}
		return n.normalizeMessage(msg)
	case "link_shared":
		var ls inboundLinkShared
		if err := json.Unmarshal(raw, &ls); err != nil {
			return events.Event{}, false
		}
		return n.normalizeLinkShared(ls)
	}
	return events.Event{}, false
}

func (n *Normalizer) normalizeMessage(msg inboundMessage) (events.Event, bool) {
	// Edits, deletions, joins and the like never participate in relay.
	if msg.SubType != "" && msg.SubType != "file_share" {
		return events.Event{}, false
	}
	// The bot's own posts echo back through the Events API.
	if msg.AppID != "" && msg.AppID == n.appID {
		return events.Event{}, false
	}
	if msg.User == "" || msg.TS == "" {
		return events.Event{}, false
	}

	payload := events.MessagePayload{
		Channel:  msg.Channel,
		User:     msg.User,
		Text:     msg.Text,
		TS:       msg.TS,
		ThreadTS: msg.ThreadTS,
		Files:    normalizeFiles(msg.Files),
	}

	switch {
	case n.channels.IsFrontend(msg.Channel) && msg.ThreadTS == "":
		return newEvent(events.EventNewTicket, payload), true
	case n.channels.IsFrontend(msg.Channel) && msg.ThreadTS != "":
		return newEvent(events.EventFrontendReply, payload), true
	case n.channels.IsBackend(msg.Channel) && msg.ThreadTS != "":
		return newEvent(events.EventBackendReply, payload), true
	}
	return events.Event{}, false
}

func (n *Normalizer) normalizeLinkShared(ls inboundLinkShared) (events.Event, bool) {
	// Links pasted into the message composer unfurl before anything is
	// sent; those previews are not ours to attach.
	if ls.Source == "composer" || ls.MessageTS == "" {
		return events.Event{}, false
	}
	var urls []string
	for _, link := range ls.Links {
		if _, ok := ParseProjectID(link.URL); ok {
			urls = append(urls, link.URL)
		}
	}
	if len(urls) == 0 {
		return events.Event{}, false
	}
	return newEvent(events.EventLinkShared, events.LinkSharedPayload{
		Channel:   ls.Channel,
		MessageTS: ls.MessageTS,
		URLs:      urls,
	}), true
}

func normalizeFiles(files []inboundFile) []domain.File {
	if len(files) == 0 {
		return nil
	}
	out := make([]domain.File, 0, len(files))
	for _, f := range files {
		out = append(out, domain.File{
			ID:          f.ID,
			Name:        f.Name,
			Mimetype:    f.Mimetype,
			DownloadURL: f.URLPrivateDownload,
			Permalink:   f.Permalink,
		})
	}
	return out
}

// NormalizeInteraction maps a block_actions payload onto a relay event by
// action id. Unknown actions are dropped.
func (n *Normalizer) NormalizeInteraction(cb *slack.InteractionCallback) (events.Event, bool) {
	if cb.Type != slack.InteractionTypeBlockActions {
		return events.Event{}, false
	}
	if len(cb.ActionCallback.BlockActions) == 0 {
		return events.Event{}, false
	}
	action := cb.ActionCallback.BlockActions[0]

	switch {
	case action.ActionID == "resolve_ticket":
		// Fired from the frontend ack message; the value carries the
		// root message timestamp.
		if action.Value == "" {
			return events.Event{}, false
		}
		return newEvent(events.EventResolveTicket, events.ResolvePayload{
			Channel: cb.Channel.ID,
			TS:      action.Value,
			Actor:   cb.User.ID,
		}), true

	case action.ActionID == "resolve_ticket_backend":
		// The backend button encodes the frontend coordinates as a
		// two element JSON array.
		var ref [2]string
		if err := json.Unmarshal([]byte(action.Value), &ref); err != nil {
			return events.Event{}, false
		}
		return newEvent(events.EventResolveTicket, events.ResolvePayload{
			Channel: ref[0],
			TS:      ref[1],
			Actor:   cb.User.ID,
		}), true

	case strings.HasPrefix(action.ActionID, "assign_user_backend::"):
		if action.SelectedUser == "" {
			return events.Event{}, false
		}
		parts := strings.Split(action.ActionID, "::")
		if len(parts) != 3 {
			return events.Event{}, false
		}
		return newEvent(events.EventAssignTicket, events.AssignPayload{
			Channel:      parts[1],
			TS:           parts[2],
			SelectedUser: action.SelectedUser,
			Actor:        cb.User.ID,
		}), true
	}
	return events.Event{}, false
}

// NormalizeSlashCommand wraps a slash command invocation. The command name
// comes from the route rather than the payload so one handler can serve
// every registered command.
func (n *Normalizer) NormalizeSlashCommand(name string, cmd slack.SlashCommand) events.Event {
	return newEvent(events.EventSlashCommand, events.SlashCommandPayload{
		Command:     name,
		Text:        strings.TrimSpace(cmd.Text),
		UserID:      cmd.UserID,
		ChannelID:   cmd.ChannelID,
		ResponseURL: cmd.ResponseURL,
	})
}
