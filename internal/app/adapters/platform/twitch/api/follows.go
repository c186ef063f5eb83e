package api

import (
	"context"
	"fmt"
	"log/slog"
	"modbot/internal/app/ports"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

func (t *Twitch) getFollowers(ctx context.Context, channelID string, first int, cursor string) (*FollowersResponse, error) {
	q := url.Values{}
	q.Set("broadcaster_id", channelID)
	q.Set("first", strconv.Itoa(first))
	if cursor != "" {
		q.Set("after", cursor)
	}

	var resp FollowersResponse
	if err := t.doTwitchRequest(ctx, twitchRequest{Method: http.MethodGet, Endpoint: "channels/followers", Query: q}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (t *Twitch) GetMostRecentFollower(ctx context.Context, channelID string) (ports.FollowData, error) {
	resp, err := t.getFollowers(ctx, channelID, 1, "")
	if err != nil {
		return ports.FollowData{}, err
	}
	if len(resp.Data) == 0 {
		return ports.FollowData{}, fmt.Errorf("followers of %s: %w", channelID, ports.ErrNotFound)
	}
	return followerData(channelID, resp.Data[0]), nil
}

// GetFollowersNewerThan pages back through the followers of channelID
// until a page reaches the watermark, a page is empty or the cursor runs out.
func (t *Twitch) GetFollowersNewerThan(ctx context.Context, channelID string, since time.Time) ([]ports.FollowData, error) {
	var (
		out    []ports.FollowData
		cursor string
	)

	for page := 1; ; page++ {
		resp, err := t.getFollowers(ctx, channelID, t.pageSize, cursor)
		if err != nil {
			return nil, fmt.Errorf("followers of %s page %d: %w", channelID, page, err)
		}
		if len(resp.Data) == 0 {
			break
		}

		reached := false
		for _, f := range resp.Data {
			if !f.FollowedAt.After(since) {
				reached = true
				continue
			}
			out = append(out, followerData(channelID, f))
		}

		if reached || resp.Pagination.Cursor == "" || resp.Pagination.Cursor == cursor {
			break
		}
		cursor = resp.Pagination.Cursor
	}

	t.log.Debug("Fetched new followers", slog.String("channel_id", channelID), slog.Int("count", len(out)))
	return out, nil
}

func (t *Twitch) GetOutgoingFollows(ctx context.Context, userID string, n int) ([]ports.FollowData, error) {
	if n <= 0 {
		return nil, nil
	}

	q := url.Values{}
	q.Set("user_id", userID)
	q.Set("first", strconv.Itoa(min(n, 100)))

	var resp FollowedResponse
	if err := t.doTwitchRequest(ctx, twitchRequest{Method: http.MethodGet, Endpoint: "channels/followed", Query: q}, &resp); err != nil {
		return nil, err
	}

	out := make([]ports.FollowData, 0, len(resp.Data))
	for _, f := range resp.Data {
		out = append(out, ports.FollowData{
			FollowerID:    userID,
			FollowedID:    f.BroadcasterID,
			FollowedLogin: f.BroadcasterLogin,
			FollowedName:  f.BroadcasterName,
			FollowedAt:    f.FollowedAt,
		})
	}
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func followerData(channelID string, f Follower) ports.FollowData {
	return ports.FollowData{
		FollowerID:    f.UserID,
		FollowerLogin: f.UserLogin,
		FollowerName:  f.UserName,
		FollowedID:    channelID,
		FollowedAt:    f.FollowedAt,
	}
}
