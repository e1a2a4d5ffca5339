package relay

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/hackclub/stonepheus/internal/domain"
)

type fakeUserRepo struct {
	prefs map[string]bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{prefs: make(map[string]bool)}
}

func (r *fakeUserRepo) Get(ctx context.Context, slackID string) (*domain.UserPreference, error) {
	shown, ok := r.prefs[slackID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &domain.UserPreference{SlackID: slackID, Shown: shown}, nil
}

func (r *fakeUserRepo) Upsert(ctx context.Context, slackID string, shown bool) error {
	r.prefs[slackID] = shown
	return nil
}

func TestShouldShowIdentity(t *testing.T) {
	repo := newFakeUserRepo()
	repo.prefs["U_SHOWN"] = true
	repo.prefs["U_HIDDEN"] = false
	policy := NewVisibilityPolicy(repo)

	tests := []struct {
		name string
		user string
		text string
		want bool
	}{
		{"no preference defaults hidden", "U_NEW", "hello", false},
		{"stored shown", "U_SHOWN", "hello", true},
		{"stored hidden", "U_HIDDEN", "hello", false},
		{"marker overrides hidden pref", "U_HIDDEN", "++ hello", true},
		{"marker overrides shown pref", "U_SHOWN", "-- keep me anonymous", false},
		{"marker overrides default", "U_NEW", "++hello there", true},
		{"leading whitespace before marker", "U_NEW", "  ++hello", true},
		{"marker elsewhere is plain text", "U_SHOWN", "C++ is fine --trust me", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := policy.ShouldShowIdentity(context.Background(), tt.user, tt.text)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStripVisibilityMarker(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"++ hello", "hello"},
		{"--hello", "hello"},
		{"  ++ hello", "hello"},
		{"hello", "hello"},
		{"in the middle ++", "in the middle ++"},
		{"++", ""},
	}
	for _, tt := range tests {
		if got := StripVisibilityMarker(tt.in); got != tt.want {
			t.Errorf("StripVisibilityMarker(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
