package relay

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/hackclub/stonepheus/internal/repository"
)

// VisibilityPolicy decides whether a stonemason's identity is shown on a
// relayed reply. Per message markers beat the stored preference, which
// defaults to hidden.
type VisibilityPolicy struct {
	users repository.UserRepository
}

func NewVisibilityPolicy(users repository.UserRepository) *VisibilityPolicy {
	return &VisibilityPolicy{users: users}
}

// ShouldShowIdentity reports whether the reply should carry the author's
// real name and avatar. A message beginning with "++" forces shown, "--"
// forces hidden.
func (p *VisibilityPolicy) ShouldShowIdentity(ctx context.Context, userID, text string) (bool, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "++") {
		return true, nil
	}
	if strings.HasPrefix(trimmed, "--") {
		return false, nil
	}

	pref, err := p.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return pref.Shown, nil
}

// StripVisibilityMarker removes a leading ++ or -- override before the
// text is relayed.
func StripVisibilityMarker(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "++") || strings.HasPrefix(trimmed, "--") {
		return strings.TrimSpace(trimmed[2:])
	}
	return text
}
