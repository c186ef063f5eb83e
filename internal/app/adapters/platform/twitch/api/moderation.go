package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

type BanRequest struct {
	Data BanData `json:"data"`
}

type BanData struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason,omitempty"`
}

// BanUser permanently bans userID in broadcasterID's chat on behalf of the
// bot account. Banning an already banned user is not an error.
func (t *Twitch) BanUser(ctx context.Context, broadcasterID, userID, reason string) error {
	q := url.Values{}
	q.Set("broadcaster_id", broadcasterID)
	q.Set("moderator_id", t.userID)

	err := t.doTwitchRequest(ctx, twitchRequest{
		Method:   http.MethodPost,
		Endpoint: "moderation/bans",
		Query:    q,
		Body:     BanRequest{Data: BanData{UserID: userID, Reason: reason}},
	}, nil)

	var apiErr *TwitchAPIError
	if errors.As(err, &apiErr) && errors.Is(err, ErrBadRequest) && strings.Contains(strings.ToLower(apiErr.Message), "already banned") {
		t.log.Debug("User already banned", slog.String("broadcaster_id", broadcasterID), slog.String("user_id", userID))
		return nil
	}
	return err
}

// Ban resolves channel and username to ids and bans the user.
func (t *Twitch) Ban(ctx context.Context, channel, username, reason string) error {
	broadcasterID, err := t.GetUserID(ctx, channel)
	if err != nil {
		return fmt.Errorf("resolve channel %s: %w", channel, err)
	}
	userID, err := t.GetUserID(ctx, username)
	if err != nil {
		return fmt.Errorf("resolve user %s: %w", username, err)
	}
	return t.BanUser(ctx, broadcasterID, userID, reason)
}
