package relay

import (
	"context"

	"github.com/slack-go/slack"

	"github.com/hackclub/stonepheus/internal/ai"
	"github.com/hackclub/stonepheus/internal/domain"
)

// PostOptions adjusts an outbound message. Username/IconURL impersonate a
// user; EphemeralUser makes the post visible only to that user.
type PostOptions struct {
	ThreadTS      string
	Username      string
	IconURL       string
	EphemeralUser string
}

// Messenger is the messaging collaborator the relay engine posts through.
type Messenger interface {
	PostMessage(ctx context.Context, channel, text string, blocks []slack.Block, opts PostOptions) (string, string, error)
	AddReaction(ctx context.Context, channel, name, timestamp string) error
	OpenDM(ctx context.Context, userID string) (string, error)
	GetUserProfile(ctx context.Context, userID string) (domain.UserProfile, error)
	GetConversationMembers(ctx context.Context, channel string) ([]string, error)
	UnfurlLinks(ctx context.Context, channel, ts string, unfurls map[string][]slack.Block) error
	ReuploadFiles(ctx context.Context, files []domain.File) ([]domain.File, error)
	Respond(ctx context.Context, responseURL, text string) error
}

// ProjectSource resolves a showcase project id to preview metadata. A nil
// project with nil error means the id resolves to nothing.
type ProjectSource interface {
	GetProjectInfo(ctx context.Context, id int) (*domain.Project, error)
}

// Assistant is the AI collaborator. It is nil when AI is disabled.
type Assistant interface {
	Ask(ctx context.Context, query string) (ai.Answer, error)
	FAQSection(ctx context.Context, query string) (ai.FAQResult, error)
}
