package api

import (
	"errors"
	"fmt"
)

var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
)

// TwitchAPIError is the error body Helix returns with non-2xx responses.
type TwitchAPIError struct {
	Err     string `json:"error"`
	Status  int    `json:"status"`
	Message string `json:"message"`

	sentinel error
}

func (e *TwitchAPIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("twitch API %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("twitch API %d: %s", e.Status, e.Err)
}

func (e *TwitchAPIError) Unwrap() error {
	return e.sentinel
}
