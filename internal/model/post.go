package model

import "time"

// PostStringLength is how many characters of the text Post.String shows.
const PostStringLength = 15

// Post is a piece of authored content.
//
// Author is always populated by the repository (posts are read with a JOIN
// on users). Group is nil when the post has no group. Image holds a path
// relative to the media root, e.g. "posts/small.gif", or "" for no image.
type Post struct {
	ID      int64     `json:"id"`
	Text    string    `json:"text"`
	PubDate time.Time `json:"pubDate"`
	Author  User      `json:"author"`
	Group   *Group    `json:"group,omitempty"`
	Image   string    `json:"image,omitempty"`
}

// GroupID returns the group's ID, or 0 when the post has no group.
func (p Post) GroupID() int64 {
	if p.Group == nil {
		return 0
	}
	return p.Group.ID
}

// String returns the first PostStringLength characters of the text.
// It counts runes, not bytes, so Cyrillic text is never cut mid-character.
func (p Post) String() string {
	r := []rune(p.Text)
	if len(r) > PostStringLength {
		r = r[:PostStringLength]
	}
	return string(r)
}

// PostField describes how a Post field is presented on forms.
type PostField struct {
	Label    string
	HelpText string
}

// PostFields holds the human-readable label and help text of each Post field,
// keyed by form/column name. Templates use it to render the create/edit form.
var PostFields = map[string]PostField{
	"text":     {Label: "Post text", HelpText: "Enter the post text"},
	"pub_date": {Label: "Publication date"},
	"author":   {Label: "Author"},
	"group":    {Label: "Group", HelpText: "Group the post will belong to"},
	"image":    {Label: "Image"},
}
