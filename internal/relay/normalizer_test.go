package relay

import (
	"encoding/json"
	"testing"

	"github.com/slack-go/slack"

	"github.com/hackclub/stonepheus/internal/config"
	"github.com/hackclub/stonepheus/internal/events"
)

var testChannels = config.ChannelPairs{"C_FRONT": "C_BACK"}

func newTestNormalizer() *Normalizer {
	return NewNormalizer(testChannels, "A_SELF")
}

func TestNormalizeMessageClassification(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantType events.EventType
		wantOK   bool
	}{
		{
			name:     "new ticket",
			raw:      `{"type":"message","channel":"C_FRONT","user":"U1","text":"help","ts":"1.0"}`,
			wantType: events.EventNewTicket,
			wantOK:   true,
		},
		{
			name:     "frontend reply",
			raw:      `{"type":"message","channel":"C_FRONT","user":"U1","text":"more","ts":"2.0","thread_ts":"1.0"}`,
			wantType: events.EventFrontendReply,
			wantOK:   true,
		},
		{
			name:     "backend reply",
			raw:      `{"type":"message","channel":"C_BACK","user":"U2","text":"answer","ts":"3.0","thread_ts":"1.5"}`,
			wantType: events.EventBackendReply,
			wantOK:   true,
		},
		{
			name:   "backend top level message ignored",
			raw:    `{"type":"message","channel":"C_BACK","user":"U2","text":"chatter","ts":"4.0"}`,
			wantOK: false,
		},
		{
			name:   "unrelated channel ignored",
			raw:    `{"type":"message","channel":"C_OTHER","user":"U1","text":"hi","ts":"5.0"}`,
			wantOK: false,
		},
		{
			name:   "edit subtype ignored",
			raw:    `{"type":"message","subtype":"message_changed","channel":"C_FRONT","user":"U1","ts":"6.0"}`,
			wantOK: false,
		},
		{
			name:     "file_share subtype kept",
			raw:      `{"type":"message","subtype":"file_share","channel":"C_FRONT","user":"U1","text":"","ts":"7.0","files":[{"id":"F1","name":"a.png","permalink":"https://x/a"}]}`,
			wantType: events.EventNewTicket,
			wantOK:   true,
		},
		{
			name:   "own app echo ignored",
			raw:    `{"type":"message","channel":"C_FRONT","user":"U9","app_id":"A_SELF","text":"echo","ts":"8.0","thread_ts":"1.0"}`,
			wantOK: false,
		},
		{
			name:     "foreign app message kept",
			raw:      `{"type":"message","channel":"C_FRONT","user":"U9","app_id":"A_OTHER","text":"bot says","ts":"9.0","thread_ts":"1.0"}`,
			wantType: events.EventFrontendReply,
			wantOK:   true,
		},
		{
			name:   "unknown event type ignored",
			raw:    `{"type":"reaction_added","user":"U1"}`,
			wantOK: false,
		},
	}

	n := newTestNormalizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, ok := n.NormalizeEvent(json.RawMessage(tt.raw))
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if event.Type != tt.wantType {
				t.Errorf("type = %s, want %s", event.Type, tt.wantType)
			}
			if event.ID == "" {
				t.Error("event id is empty")
			}
		})
	}
}

func TestNormalizeMessageFiles(t *testing.T) {
	raw := `{"type":"message","channel":"C_FRONT","user":"U1","text":"see","ts":"1.0","files":[
		{"id":"F1","name":"shot.png","mimetype":"image/png","url_private_download":"https://dl/1","permalink":"https://pl/1"}]}`

	n := newTestNormalizer()
	event, ok := n.NormalizeEvent(json.RawMessage(raw))
	if !ok {
		t.Fatal("event dropped")
	}
	p := event.Payload.(events.MessagePayload)
	if len(p.Files) != 1 {
		t.Fatalf("files = %d, want 1", len(p.Files))
	}
	f := p.Files[0]
	if f.ID != "F1" || f.Name != "shot.png" || f.DownloadURL != "https://dl/1" || f.Permalink != "https://pl/1" {
		t.Errorf("unexpected file mapping: %+v", f)
	}
}

func TestNormalizeLinkShared(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantOK   bool
		wantURLs int
	}{
		{
			name: "project urls kept",
			raw: `{"type":"link_shared","channel":"C1","message_ts":"1.0","links":[
				{"url":"https://siege.hackclub.com/armory/42"},
				{"url":"https://example.com/other"}]}`,
			wantOK:   true,
			wantURLs: 1,
		},
		{
			name:   "composer source ignored",
			raw:    `{"type":"link_shared","channel":"C1","message_ts":"1.0","source":"composer","links":[{"url":"https://siege.hackclub.com/armory/42"}]}`,
			wantOK: false,
		},
		{
			name:   "no matching urls ignored",
			raw:    `{"type":"link_shared","channel":"C1","message_ts":"1.0","links":[{"url":"https://example.com"}]}`,
			wantOK: false,
		},
	}

	n := newTestNormalizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, ok := n.NormalizeEvent(json.RawMessage(tt.raw))
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			p := event.Payload.(events.LinkSharedPayload)
			if len(p.URLs) != tt.wantURLs {
				t.Errorf("urls = %d, want %d", len(p.URLs), tt.wantURLs)
			}
		})
	}
}

func TestParseProjectID(t *testing.T) {
	tests := []struct {
		url    string
		wantID int
		wantOK bool
	}{
		{"https://siege.hackclub.com/armory/42", 42, true},
		{"https://siege.hackclub.com/review/projects/7", 7, true},
		{"https://siege.hackclub.com/armory/42/edit", 0, false},
		{"https://siege.hackclub.com/armory/", 0, false},
		{"https://example.com", 0, false},
	}
	for _, tt := range tests {
		id, ok := ParseProjectID(tt.url)
		if id != tt.wantID || ok != tt.wantOK {
			t.Errorf("ParseProjectID(%q) = (%d, %v), want (%d, %v)", tt.url, id, ok, tt.wantID, tt.wantOK)
		}
	}
}

func TestNormalizeInteraction(t *testing.T) {
	n := newTestNormalizer()

	t.Run("frontend resolve button", func(t *testing.T) {
		cb := &slack.InteractionCallback{Type: slack.InteractionTypeBlockActions}
		cb.Channel.ID = "C_FRONT"
		cb.User.ID = "U1"
		cb.ActionCallback.BlockActions = []*slack.BlockAction{{
			ActionID: "resolve_ticket",
			Value:    "1.0",
		}}
		event, ok := n.NormalizeInteraction(cb)
		if !ok {
			t.Fatal("interaction dropped")
		}
		p := event.Payload.(events.ResolvePayload)
		if p.Channel != "C_FRONT" || p.TS != "1.0" || p.Actor != "U1" {
			t.Errorf("unexpected payload: %+v", p)
		}
	})

	t.Run("backend resolve button", func(t *testing.T) {
		cb := &slack.InteractionCallback{Type: slack.InteractionTypeBlockActions}
		cb.Channel.ID = "C_BACK"
		cb.User.ID = "U2"
		cb.ActionCallback.BlockActions = []*slack.BlockAction{{
			ActionID: "resolve_ticket_backend",
			Value:    `["C_FRONT","1.0"]`,
		}}
		event, ok := n.NormalizeInteraction(cb)
		if !ok {
			t.Fatal("interaction dropped")
		}
		p := event.Payload.(events.ResolvePayload)
		if p.Channel != "C_FRONT" || p.TS != "1.0" || p.Actor != "U2" {
			t.Errorf("unexpected payload: %+v", p)
		}
	})

	t.Run("assignment select", func(t *testing.T) {
		cb := &slack.InteractionCallback{Type: slack.InteractionTypeBlockActions}
		cb.User.ID = "U2"
		cb.ActionCallback.BlockActions = []*slack.BlockAction{{
			ActionID:     "assign_user_backend::C_FRONT::1.0",
			SelectedUser: "U3",
		}}
		event, ok := n.NormalizeInteraction(cb)
		if !ok {
			t.Fatal("interaction dropped")
		}
		p := event.Payload.(events.AssignPayload)
		if p.Channel != "C_FRONT" || p.TS != "1.0" || p.SelectedUser != "U3" || p.Actor != "U2" {
			t.Errorf("unexpected payload: %+v", p)
		}
	})

	t.Run("unknown action dropped", func(t *testing.T) {
		cb := &slack.InteractionCallback{Type: slack.InteractionTypeBlockActions}
		cb.ActionCallback.BlockActions = []*slack.BlockAction{{ActionID: "something_else"}}
		if _, ok := n.NormalizeInteraction(cb); ok {
			t.Error("unknown action produced an event")
		}
	})

	t.Run("malformed backend value dropped", func(t *testing.T) {
		cb := &slack.InteractionCallback{Type: slack.InteractionTypeBlockActions}
		cb.ActionCallback.BlockActions = []*slack.BlockAction{{
			ActionID: "resolve_ticket_backend",
			Value:    "not json",
		}}
		if _, ok := n.NormalizeInteraction(cb); ok {
			t.Error("malformed value produced an event")
		}
	})
}

func TestNormalizeSlashCommand(t *testing.T) {
	n := newTestNormalizer()
	event := n.NormalizeSlashCommand("ai", slack.SlashCommand{
		Text:        "  what is the week theme?  ",
		UserID:      "U1",
		ChannelID:   "C_FRONT",
		ResponseURL: "https://hooks/respond",
	})
	p := event.Payload.(events.SlashCommandPayload)
	if p.Command != "ai" {
		t.Errorf("command = %q, want ai", p.Command)
	}
	if p.Text != "what is the week theme?" {
		t.Errorf("text not trimmed: %q", p.Text)
	}
	if p.ResponseURL != "https://hooks/respond" {
		t.Errorf("response url = %q", p.ResponseURL)
	}
}
