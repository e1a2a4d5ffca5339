package domain

import "time"

// Ticket is one support request mirrored between a frontend channel and its
// paired backend channel. Channel and TS identify the frontend thread,
// BackendTS the backend mirror thread. The backend channel itself is derived
// from the channel pairing in configuration and is not stored.
type Ticket struct {
	ID           int64
	Channel      string
	TS           string
	BackendTS    string
	Resolved     bool
	AssignedUser *string
	CreatedAt    time.Time
}

// UserPreference is a responder's standing visibility choice. An absent row
// means hidden.
type UserPreference struct {
	SlackID string
	Shown   bool
}

// UserProfile is the display identity used when impersonating a user on a
// relayed message.
type UserProfile struct {
	DisplayName string
	AvatarURL   string
}

// File references an uploaded file attached to a message.
type File struct {
	ID          string
	Name        string
	Mimetype    string
	DownloadURL string
	Permalink   string
}
