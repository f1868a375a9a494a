package model

// Player carries the display fields joined into leaderboard reads.
type Player struct {
	UserID    string `json:"id"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatar,omitempty"`
}
