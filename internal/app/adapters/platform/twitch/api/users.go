package api

import (
	"context"
	"fmt"
	"modbot/internal/app/domain"
	"modbot/internal/app/ports"
	"net/http"
	"net/url"
)

type UserResponse struct {
	Data []User `json:"data"`
}

type User struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

// GetUserID resolves a login, with or without a leading '#', to its user id.
func (t *Twitch) GetUserID(ctx context.Context, login string) (string, error) {
	key := domain.ChannelKey(login)
	if key == "" {
		return "", fmt.Errorf("empty login: %w", ports.ErrNotFound)
	}

	if t.ids != nil {
		if id, ok := t.ids.Get(key); ok {
			return id, nil
		}
	}

	var userResp UserResponse
	err := t.doTwitchRequest(ctx, twitchRequest{
		Method:   http.MethodGet,
		Endpoint: "users",
		Query:    url.Values{"login": {key}},
	}, &userResp)
	if err != nil {
		return "", err
	}
	if len(userResp.Data) == 0 {
		return "", fmt.Errorf("user %s: %w", key, ports.ErrNotFound)
	}

	id := userResp.Data[0].ID
	if t.ids != nil {
		t.ids.Set(key, id)
	}
	return id, nil
}
