package model

// Group is a topical board that posts may optionally belong to.
// Slug is the URL-safe identifier used in /group/<slug>/.
type Group struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// String returns the group's title.
func (g Group) String() string {
	return g.Title
}
