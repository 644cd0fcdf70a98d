package model

import "time"

// User is the feed server's record of a person who has logged in. ID is the
// openid handed back to clients; (Provider, ExternalID) is what the identity
// provider vouches for.
type User struct {
	ID         string    `json:"id"`
	Provider   string    `json:"provider"`
	ExternalID string    `json:"externalId"`
	NickName   string    `json:"nickName"`
	AvatarURL  string    `json:"avatarUrl"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Profile is the display profile a user chose for themselves.
type Profile struct {
	NickName  string `json:"nickName"`
	AvatarURL string `json:"avatarUrl"`
}

// Identity is who a record is attributed to when it is published.
type Identity struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	AvatarRef   string `json:"avatarRef"`
}

// Complete reports whether both the id and the display name are present.
func (i Identity) Complete() bool {
	return i.UserID != "" && i.DisplayName != ""
}

// LoginResult is what the login procedure hands back. Token authenticates
// later calls; OpenID is the stable user id the feed attributes records to.
type LoginResult struct {
	OpenID  string `json:"openid"`
	AppID   string `json:"appid"`
	UnionID string `json:"unionid"`
	Token   string `json:"token"`
}

// Session is the client's cached login.
type Session struct {
	Profile Profile `json:"profile"`
	OpenID  string  `json:"openId"`
	Token   string  `json:"token,omitempty"`
}

// Identity returns who records published from this session belong to.
func (s Session) Identity() Identity {
	return Identity{UserID: s.OpenID, DisplayName: s.Profile.NickName, AvatarRef: s.Profile.AvatarURL}
}
