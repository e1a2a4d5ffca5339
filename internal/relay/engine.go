package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/hackclub/stonepheus/internal/config"
	"github.com/hackclub/stonepheus/internal/domain"
	"github.com/hackclub/stonepheus/internal/events"
	"github.com/hackclub/stonepheus/internal/repository"
)

// EngineConfig carries the static relay settings.
type EngineConfig struct {
	Channels     config.ChannelPairs
	WorkspaceURL string
	TeamID       string
	FAQFileID    string
}

// Engine implements the ticket relay flow. It consumes normalized inbound
// events and publishes lifecycle notifications for the notifier.
type Engine struct {
	cfg        EngineConfig
	messenger  Messenger
	tickets    repository.TicketRepository
	users      repository.UserRepository
	visibility *VisibilityPolicy
	projects   ProjectSource
	assistant  Assistant
	dispatcher events.Dispatcher
	logger     *zap.Logger
	faqURL     string
}

// NewEngine wires the relay engine. assistant may be nil when AI is disabled.
func NewEngine(
	cfg EngineConfig,
	messenger Messenger,
	tickets repository.TicketRepository,
	users repository.UserRepository,
	projects ProjectSource,
	assistant Assistant,
	dispatcher events.Dispatcher,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		cfg:        cfg,
		messenger:  messenger,
		tickets:    tickets,
		users:      users,
		visibility: NewVisibilityPolicy(users),
		projects:   projects,
		assistant:  assistant,
		dispatcher: dispatcher,
		logger:     logger,
		faqURL:     docsURL(cfg.WorkspaceURL, cfg.TeamID, cfg.FAQFileID),
	}
}

// Register subscribes the engine's handlers on the dispatcher.
func (e *Engine) Register() {
	e.dispatcher.Subscribe(events.EventNewTicket, e.HandleNewTicket)
	e.dispatcher.Subscribe(events.EventFrontendReply, e.HandleFrontendReply)
	e.dispatcher.Subscribe(events.EventBackendReply, e.HandleBackendReply)
	e.dispatcher.Subscribe(events.EventResolveTicket, e.HandleResolveTicket)
	e.dispatcher.Subscribe(events.EventAssignTicket, e.HandleAssignTicket)
	e.dispatcher.Subscribe(events.EventLinkShared, e.HandleLinkShared)
	e.dispatcher.Subscribe(events.EventSlashCommand, e.HandleSlashCommand)
}

// HandleNewTicket mirrors a fresh frontend message into the backend channel,
// records the pairing and acknowledges in the frontend thread. Side effects
// after the mirror post are independent; one failing does not abort the rest.
func (e *Engine) HandleNewTicket(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.MessagePayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	backendChannel, ok := e.cfg.Channels.BackendFor(p.Channel)
	if !ok {
		return nil
	}

	profile, err := e.messenger.GetUserProfile(ctx, p.User)
	if err != nil {
		return fmt.Errorf("lookup user %s: %w", p.User, err)
	}

	_, backendTS, err := e.messenger.PostMessage(ctx, backendChannel, p.Text,
		messageBlocks(p.Text, p.Files), PostOptions{
			Username: profile.DisplayName,
			IconURL:  profile.AvatarURL,
		})
	if err != nil {
		return fmt.Errorf("mirror ticket to backend: %w", err)
	}

	ticket := &domain.Ticket{Channel: p.Channel, TS: p.TS, BackendTS: backendTS}
	if err := e.tickets.Create(ctx, ticket); err != nil {
		e.logger.Error("create ticket record",
			zap.String("channel", p.Channel), zap.String("ts", p.TS), zap.Error(err))
	}

	if _, _, err := e.messenger.PostMessage(ctx, p.Channel, "",
		newTicketAckBlocks(p.TS, e.faqURL), PostOptions{ThreadTS: p.TS}); err != nil {
		e.logger.Error("post ticket ack", zap.String("ts", p.TS), zap.Error(err))
	}

	if _, _, err := e.messenger.PostMessage(ctx, backendChannel, "",
		backendControlBlocks(p.Channel, p.TS, e.cfg.WorkspaceURL),
		PostOptions{ThreadTS: backendTS}); err != nil {
		e.logger.Error("post backend controls", zap.String("ts", backendTS), zap.Error(err))
	}

	e.publish(ctx, events.EventTicketOpened, events.TicketOpenedPayload{
		Channel:        p.Channel,
		TS:             p.TS,
		BackendChannel: backendChannel,
		BackendTS:      backendTS,
		User:           p.User,
	})

	if e.assistant != nil && p.Text != "" {
		e.tryAIReply(ctx, p.Channel, p.TS, p.Text)
	}
	return nil
}

func (e *Engine) tryAIReply(ctx context.Context, channel, ts, query string) {
	answer, err := e.assistant.Ask(ctx, query)
	if err != nil {
		e.logger.Warn("ai auto-reply failed", zap.String("ts", ts), zap.Error(err))
		return
	}
	// Refusals stay silent on new tickets; a stonemason will answer anyway.
	if !answer.OK {
		return
	}
	if _, _, err := e.messenger.PostMessage(ctx, channel, "",
		aiAnswerBlocks(aiTicketPretext, answer.Answer, answer.Explanation),
		PostOptions{ThreadTS: ts}); err != nil {
		e.logger.Warn("post ai auto-reply", zap.String("ts", ts), zap.Error(err))
	}
}

// HandleFrontendReply relays a thread reply from the ticket opener side to
// the paired backend thread, impersonating the author.
func (e *Engine) HandleFrontendReply(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.MessagePayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}

	ticket, err := e.tickets.GetByFrontend(ctx, p.Channel, p.ThreadTS)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			e.logger.Warn("reply in unknown thread",
				zap.String("channel", p.Channel), zap.String("thread_ts", p.ThreadTS))
			return nil
		}
		return err
	}

	if ticket.Resolved {
		_, _, err := e.messenger.PostMessage(ctx, p.Channel, closedThreadText, nil,
			PostOptions{ThreadTS: p.ThreadTS, EphemeralUser: p.User})
		return err
	}

	if section, ok := strings.CutPrefix(p.Text, "?faq "); ok {
		return e.postFAQSection(ctx, p.Channel, p.ThreadTS, strings.TrimSpace(section))
	}

	backendChannel, ok := e.cfg.Channels.BackendFor(p.Channel)
	if !ok {
		return nil
	}
	profile, err := e.messenger.GetUserProfile(ctx, p.User)
	if err != nil {
		return fmt.Errorf("lookup user %s: %w", p.User, err)
	}
	_, _, err = e.messenger.PostMessage(ctx, backendChannel, p.Text,
		messageBlocks(p.Text, p.Files), PostOptions{
			ThreadTS: ticket.BackendTS,
			Username: profile.DisplayName,
			IconURL:  profile.AvatarURL,
		})
	return err
}

func (e *Engine) postFAQSection(ctx context.Context, channel, threadTS, section string) error {
	if section == "" {
		return nil
	}
	if e.assistant == nil {
		_, _, err := e.messenger.PostMessage(ctx, channel, aiDisabledText, nil,
			PostOptions{ThreadTS: threadTS})
		return err
	}
	result, err := e.assistant.FAQSection(ctx, section)
	if err != nil {
		return fmt.Errorf("faq lookup: %w", err)
	}
	_, _, err = e.messenger.PostMessage(ctx, channel, faqSectionText(result.Found, result.Text),
		nil, PostOptions{ThreadTS: threadTS})
	return err
}

// HandleBackendReply relays a stonemason's thread reply back to the frontend
// thread, honoring the author's visibility preference. Replies starting with
// a backslash are internal notes and never leave the backend.
func (e *Engine) HandleBackendReply(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.MessagePayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	if strings.HasPrefix(p.Text, `\`) {
		return nil
	}

	ticket, err := e.tickets.GetByBackend(ctx, p.ThreadTS, e.cfg.Channels.FrontendsFor(p.Channel))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Ordinary backend conversation, nothing to relay.
			return nil
		}
		return err
	}

	show, err := e.visibility.ShouldShowIdentity(ctx, p.User, p.Text)
	if err != nil {
		e.logger.Warn("load visibility preference", zap.String("user", p.User), zap.Error(err))
		show = false
	}
	text := StripVisibilityMarker(p.Text)
	if text == "" && len(p.Files) == 0 {
		return nil
	}

	opts := PostOptions{ThreadTS: ticket.TS, Username: anonymousUsername}
	if show {
		profile, err := e.messenger.GetUserProfile(ctx, p.User)
		if err != nil {
			return fmt.Errorf("lookup user %s: %w", p.User, err)
		}
		opts.Username = profile.DisplayName
		opts.IconURL = profile.AvatarURL
	}

	// Backend file URLs are private to the backend channel, so files are
	// re-uploaded rather than linked.
	files := p.Files
	if len(files) > 0 {
		files, err = e.messenger.ReuploadFiles(ctx, files)
		if err != nil {
			e.logger.Error("reupload files", zap.String("ts", p.TS), zap.Error(err))
			files = nil
		}
	}

	_, _, err = e.messenger.PostMessage(ctx, ticket.Channel, text,
		messageBlocks(text, files), opts)
	return err
}

// HandleResolveTicket marks a ticket resolved. Unknown or already resolved
// tickets are a no-op, so button double-presses are harmless.
func (e *Engine) HandleResolveTicket(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.ResolvePayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}

	ticket, err := e.tickets.GetByFrontend(ctx, p.Channel, p.TS)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	if ticket.Resolved {
		return nil
	}
	if err := e.tickets.SetResolved(ctx, p.Channel, p.TS, true); err != nil {
		return fmt.Errorf("mark resolved: %w", err)
	}

	backendChannel, _ := e.cfg.Channels.BackendFor(p.Channel)
	e.publish(ctx, events.EventTicketResolved, events.TicketResolvedPayload{
		Channel:        p.Channel,
		TS:             p.TS,
		BackendChannel: backendChannel,
		BackendTS:      ticket.BackendTS,
		Actor:          p.Actor,
	})
	return nil
}

// HandleAssignTicket records the assignee picked via the backend select.
func (e *Engine) HandleAssignTicket(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.AssignPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}

	ticket, err := e.tickets.GetByFrontend(ctx, p.Channel, p.TS)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	if err := e.tickets.SetAssignedUser(ctx, p.Channel, p.TS, p.SelectedUser); err != nil {
		return fmt.Errorf("assign user: %w", err)
	}

	backendChannel, _ := e.cfg.Channels.BackendFor(p.Channel)
	e.publish(ctx, events.EventTicketAssigned, events.TicketAssignedPayload{
		Channel:        p.Channel,
		TS:             p.TS,
		BackendChannel: backendChannel,
		BackendTS:      ticket.BackendTS,
		AssignedUser:   p.SelectedUser,
	})
	return nil
}

// HandleLinkShared attaches project previews to showcase links. Lookups that
// fail or resolve to nothing drop that URL; the rest of the batch still
// unfurls.
func (e *Engine) HandleLinkShared(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.LinkSharedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}

	unfurls := make(map[string][]slack.Block)
	for _, url := range p.URLs {
		id, ok := ParseProjectID(url)
		if !ok {
			continue
		}
		project, err := e.projects.GetProjectInfo(ctx, id)
		if err != nil {
			e.logger.Warn("project lookup failed", zap.Int("id", id), zap.Error(err))
			continue
		}
		if project == nil {
			continue
		}
		unfurls[url] = projectPreviewBlocks(project)
	}
	if len(unfurls) == 0 {
		return nil
	}
	return e.messenger.UnfurlLinks(ctx, p.Channel, p.MessageTS, unfurls)
}

// HandleSlashCommand serves the registered slash commands, answering through
// the invocation's response URL.
func (e *Engine) HandleSlashCommand(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.SlashCommandPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}

	switch p.Command {
	case "ai":
		return e.commandAI(ctx, p)
	case "faq":
		return e.commandFAQ(ctx, p)
	case "show":
		if err := e.users.Upsert(ctx, p.UserID, true); err != nil {
			return fmt.Errorf("save visibility preference: %w", err)
		}
		return e.messenger.Respond(ctx, p.ResponseURL,
			"got it! your name and avatar will now show on relayed replies.")
	case "hide":
		if err := e.users.Upsert(ctx, p.UserID, false); err != nil {
			return fmt.Errorf("save visibility preference: %w", err)
		}
		return e.messenger.Respond(ctx, p.ResponseURL,
			"got it! your relayed replies will now appear as "+anonymousUsername+".")
	}
	return e.messenger.Respond(ctx, p.ResponseURL, unknownCmdText)
}

func (e *Engine) commandAI(ctx context.Context, p events.SlashCommandPayload) error {
	if e.assistant == nil {
		return e.messenger.Respond(ctx, p.ResponseURL, aiDisabledText)
	}
	if p.Text == "" {
		return e.messenger.Respond(ctx, p.ResponseURL, aiNoQuestionText)
	}
	answer, err := e.assistant.Ask(ctx, p.Text)
	if err != nil {
		if respondErr := e.messenger.Respond(ctx, p.ResponseURL,
			"something went wrong while consulting the portal... please try again later!"); respondErr != nil {
			e.logger.Warn("respond to slash command", zap.Error(respondErr))
		}
		return fmt.Errorf("ai query: %w", err)
	}
	return e.messenger.Respond(ctx, p.ResponseURL,
		aiAnswerText(answer.OK, answer.Answer, answer.Explanation, answer.Reason))
}

func (e *Engine) commandFAQ(ctx context.Context, p events.SlashCommandPayload) error {
	if e.assistant == nil {
		return e.messenger.Respond(ctx, p.ResponseURL, aiDisabledText)
	}
	if p.Text == "" {
		return e.messenger.Respond(ctx, p.ResponseURL, faqNoSectionText)
	}
	result, err := e.assistant.FAQSection(ctx, p.Text)
	if err != nil {
		if respondErr := e.messenger.Respond(ctx, p.ResponseURL,
			"the librarian automaton seems to be asleep... please try again later!"); respondErr != nil {
			e.logger.Warn("respond to slash command", zap.Error(respondErr))
		}
		return fmt.Errorf("faq lookup: %w", err)
	}
	return e.messenger.Respond(ctx, p.ResponseURL, faqSectionText(result.Found, result.Text))
}

func (e *Engine) publish(ctx context.Context, eventType events.EventType, payload interface{}) {
	if err := e.dispatcher.Publish(ctx, newEvent(eventType, payload)); err != nil {
		e.logger.Error("publish notification", zap.String("type", string(eventType)), zap.Error(err))
	}
}
