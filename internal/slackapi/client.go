// Package slackapi implements the messaging collaborator over the Slack Web
// API.
package slackapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/hackclub/stonepheus/internal/domain"
	"github.com/hackclub/stonepheus/internal/relay"
)

// Client wraps the slack-go client behind the relay's Messenger interface.
type Client struct {
	api    *slack.Client
	http   *http.Client
	logger *zap.Logger
}

var _ relay.Messenger = (*Client)(nil)

// NewClient builds the Slack client with the bot OAuth token.
func NewClient(token string, logger *zap.Logger) *Client {
	return &Client{
		api:    slack.New(token),
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// PostMessage posts to a channel, optionally in a thread, impersonating a
// user, or ephemerally to a single user. It returns the posted channel and
// timestamp.
func (c *Client) PostMessage(ctx context.Context, channel, text string, blocks []slack.Block, opts relay.PostOptions) (string, string, error) {
	var msgOpts []slack.MsgOption
	if len(blocks) > 0 {
		msgOpts = append(msgOpts, slack.MsgOptionBlocks(blocks...))
	}
	if text != "" {
		msgOpts = append(msgOpts, slack.MsgOptionText(text, false))
	}
	if opts.ThreadTS != "" {
		msgOpts = append(msgOpts, slack.MsgOptionTS(opts.ThreadTS))
	}
	if opts.Username != "" {
		msgOpts = append(msgOpts, slack.MsgOptionUsername(opts.Username))
	}
	if opts.IconURL != "" {
		msgOpts = append(msgOpts, slack.MsgOptionIconURL(opts.IconURL))
	}

	if opts.EphemeralUser != "" {
		ts, err := c.api.PostEphemeralContext(ctx, channel, opts.EphemeralUser, msgOpts...)
		if err != nil {
			return "", "", fmt.Errorf("chat.postEphemeral: %w", err)
		}
		return channel, ts, nil
	}

	postedChannel, ts, err := c.api.PostMessageContext(ctx, channel, msgOpts...)
	if err != nil {
		return "", "", fmt.Errorf("chat.postMessage: %w", err)
	}
	return postedChannel, ts, nil
}

// AddReaction attaches an emoji reaction to a message.
func (c *Client) AddReaction(ctx context.Context, channel, name, timestamp string) error {
	if err := c.api.AddReactionContext(ctx, name, slack.NewRefToMessage(channel, timestamp)); err != nil {
		return fmt.Errorf("reactions.add: %w", err)
	}
	return nil
}

// OpenDM opens (or reuses) a direct message conversation with a user.
func (c *Client) OpenDM(ctx context.Context, userID string) (string, error) {
	channel, _, _, err := c.api.OpenConversationContext(ctx, &slack.OpenConversationParameters{
		Users: []string{userID},
	})
	if err != nil {
		return "", fmt.Errorf("conversations.open: %w", err)
	}
	return channel.ID, nil
}

// GetUserProfile resolves a user's display name and avatar for impersonation.
func (c *Client) GetUserProfile(ctx context.Context, userID string) (domain.UserProfile, error) {
	user, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("users.info: %w", err)
	}
	name := user.Profile.DisplayName
	if name == "" {
		name = user.Profile.RealName
	}
	avatar := user.Profile.ImageOriginal
	if avatar == "" {
		avatar = user.Profile.Image512
	}
	return domain.UserProfile{DisplayName: name, AvatarURL: avatar}, nil
}

// GetConversationMembers lists the member user ids of a channel.
func (c *Client) GetConversationMembers(ctx context.Context, channel string) ([]string, error) {
	var members []string
	params := &slack.GetUsersInConversationParameters{ChannelID: channel}
	for {
		page, cursor, err := c.api.GetUsersInConversationContext(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("conversations.members: %w", err)
		}
		members = append(members, page...)
		if cursor == "" {
			return members, nil
		}
		params.Cursor = cursor
	}
}

// UnfurlLinks attaches preview blocks to the URLs of a shared-link message.
func (c *Client) UnfurlLinks(ctx context.Context, channel, ts string, unfurls map[string][]slack.Block) error {
	attachments := make(map[string]slack.Attachment, len(unfurls))
	for url, blocks := range unfurls {
		attachments[url] = slack.Attachment{Blocks: slack.Blocks{BlockSet: blocks}}
	}
	if _, _, _, err := c.api.SendMessageContext(ctx, channel, slack.MsgOptionUnfurl(ts, attachments)); err != nil {
		return fmt.Errorf("chat.unfurl: %w", err)
	}
	return nil
}

// Respond posts plain text back to a slash command's response_url.
func (c *Client) Respond(ctx context.Context, responseURL, text string) error {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, responseURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("response_url post: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("response_url post http %d", res.StatusCode)
	}
	return nil
}

// FileDownloadURL resolves a file id to its private download URL.
func (c *Client) FileDownloadURL(ctx context.Context, fileID string) (string, error) {
	file, _, _, err := c.api.GetFileInfoContext(ctx, fileID, 0, 0)
	if err != nil {
		return "", fmt.Errorf("files.info: %w", err)
	}
	return file.URLPrivateDownload, nil
}

// DownloadFile streams an authorized file download into w.
func (c *Client) DownloadFile(ctx context.Context, url string, w io.Writer) error {
	if err := c.api.GetFileContext(ctx, url, w); err != nil {
		return fmt.Errorf("file download: %w", err)
	}
	return nil
}

// ReuploadFiles downloads each file and uploads a fresh copy, so links handed
// to another audience never point at the source channel's private URLs.
func (c *Client) ReuploadFiles(ctx context.Context, files []domain.File) ([]domain.File, error) {
	reuploaded := make([]domain.File, 0, len(files))
	for _, f := range files {
		var buf bytes.Buffer
		if err := c.DownloadFile(ctx, f.DownloadURL, &buf); err != nil {
			return nil, err
		}
		summary, err := c.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
			Reader:   &buf,
			Filename: f.Name,
			FileSize: buf.Len(),
		})
		if err != nil {
			return nil, fmt.Errorf("file upload: %w", err)
		}
		info, _, _, err := c.api.GetFileInfoContext(ctx, summary.ID, 0, 0)
		if err != nil {
			return nil, fmt.Errorf("files.info: %w", err)
		}
		reuploaded = append(reuploaded, domain.File{
			ID:        info.ID,
			Name:      info.Name,
			Permalink: info.Permalink,
		})
	}
	return reuploaded, nil
}
