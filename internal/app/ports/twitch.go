package ports

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

type FollowData struct {
	FollowerID    string    `json:"from_id"`
	FollowerLogin string    `json:"from_login"`
	FollowerName  string    `json:"from_name"`
	FollowedID    string    `json:"to_id"`
	FollowedLogin string    `json:"to_login"`
	FollowedName  string    `json:"to_name"`
	FollowedAt    time.Time `json:"followed_at"`
}

// FollowAPIPort reads follow relationships from the platform.
type FollowAPIPort interface {
	// GetUserID resolves a login (with or without a leading '#') to a user id.
	// Returns ErrNotFound when no such user exists.
	GetUserID(ctx context.Context, login string) (string, error)

	// GetMostRecentFollower returns ErrNotFound when the channel has no followers.
	GetMostRecentFollower(ctx context.Context, channelID string) (FollowData, error)

	// GetFollowersNewerThan returns the followers of channelID that followed
	// strictly after since, most recent first.
	GetFollowersNewerThan(ctx context.Context, channelID string, since time.Time) ([]FollowData, error)

	// GetOutgoingFollows returns up to n accounts userID follows, most recent first.
	GetOutgoingFollows(ctx context.Context, userID string, n int) ([]FollowData, error)
}

type ModerationPort interface {
	// Ban resolves channel and username to ids before banning.
	Ban(ctx context.Context, channel, username, reason string) error
	BanUser(ctx context.Context, broadcasterID, userID, reason string) error
}
