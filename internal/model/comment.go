package model

import "time"

// Comment is a reply to a post. Comments are never edited once created.
type Comment struct {
	ID      int64     `json:"id"`
	PostID  int64     `json:"postId"`
	Author  User      `json:"author"`
	Text    string    `json:"text"`
	Created time.Time `json:"created"`
}
