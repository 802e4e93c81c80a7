// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered author.
//
// Accounts come from two places: the username/password sign-up form and
// GitHub OAuth. A password-only account has GitHubID == nil; a GitHub-only
// account has an empty PasswordHash and cannot log in with a password.
//
// WHY *int64 FOR GitHubID?
// The column is UNIQUE but nullable. A pointer lets the zero value mean
// "no GitHub account linked" without colliding on 0.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	GitHubID     *int64    `json:"-"`
	Email        string    `json:"email,omitempty"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// String returns the username, which is how authors are shown everywhere.
func (u User) String() string {
	return u.Username
}
