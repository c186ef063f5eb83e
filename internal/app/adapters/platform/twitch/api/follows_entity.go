package api

import "time"

type Pagination struct {
	Cursor string `json:"cursor"`
}

type FollowersResponse struct {
	Total      int        `json:"total"`
	Data       []Follower `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type Follower struct {
	UserID     string    `json:"user_id"`
	UserLogin  string    `json:"user_login"`
	UserName   string    `json:"user_name"`
	FollowedAt time.Time `json:"followed_at"`
}

type FollowedResponse struct {
	Total      int        `json:"total"`
	Data       []Followed `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type Followed struct {
	BroadcasterID    string    `json:"broadcaster_id"`
	BroadcasterLogin string    `json:"broadcaster_login"`
	BroadcasterName  string    `json:"broadcaster_name"`
	FollowedAt       time.Time `json:"followed_at"`
}
