package models

import "time"

// LinkedInAccount holds the publishing credential for a user. At most one
// account is linked per user; access and refresh tokens are stored encrypted.
type LinkedInAccount struct {
	ID             int64     `db:"id" json:"id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	MemberURN      string    `db:"member_urn" json:"member_urn"`
	AccountName    string    `db:"account_name" json:"account_name"`
	ProfilePicture string    `db:"profile_picture_url" json:"profile_picture"`
	AccessToken    string    `db:"access_token" json:"-"`
	RefreshToken   string    `db:"refresh_token" json:"-"`
	TokenExpiresAt time.Time `db:"token_expires_at" json:"token_expires_at"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
