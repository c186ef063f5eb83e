package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
)

const validateURL = "https://id.twitch.tv/oauth2/validate"

// RequiredScopes are the token scopes the moderation features rely on.
var RequiredScopes = []string{
	"chat:read",
	"chat:edit",
	"moderator:manage:banned_users",
	"moderator:read:followers",
	"user:read:follows",
}

type ValidateResponse struct {
	ClientID  string   `json:"client_id"`
	Login     string   `json:"login"`
	Scopes    []string `json:"scopes"`
	UserID    string   `json:"user_id"`
	ExpiresIn int      `json:"expires_in"`
}

// MissingScopes lists RequiredScopes the token was not granted.
func (v *ValidateResponse) MissingScopes() []string {
	var missing []string
	for _, s := range RequiredScopes {
		if !slices.Contains(v.Scopes, s) {
			missing = append(missing, s)
		}
	}
	return missing
}

func (t *Twitch) ValidateToken(ctx context.Context) (*ValidateResponse, error) {
	return t.validateToken(ctx, validateURL)
}

func (t *Twitch) validateToken(ctx context.Context, endpoint string) (*ValidateResponse, error) {
	if t.token == "" {
		return nil, errors.New("empty access token")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "OAuth "+t.token)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var v ValidateResponse
		if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
			return nil, err
		}
		if t.userID != "" && v.UserID != "" && v.UserID != t.userID {
			return &v, fmt.Errorf("token belongs to user %s, configured user_id is %s", v.UserID, t.userID)
		}
		return &v, nil
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	default:
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("validate request failed: %s", string(raw))
	}
}
