package model

import "time"

// Follow is a directed subscription: UserID follows AuthorID.
//
// Invariants (enforced by the service and by table constraints):
//   - UserID != AuthorID
//   - (UserID, AuthorID) is unique
type Follow struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	AuthorID  string    `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
}
