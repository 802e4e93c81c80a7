package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/sakif/yatube/internal/apperror"
)

func TestIndex_Pagination(t *testing.T) {
	f := newFixture()
	author := f.user("author")
	for i := range 13 {
		f.post(author, nil, fmt.Sprintf("post %d", i))
	}

	tests := []struct {
		page     int
		wantLen  int
		wantNext bool
	}{
		{1, 10, true},
		{2, 3, false},
		{3, 0, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d", tt.page), func(t *testing.T) {
			got, err := f.postSvc.Index(context.Background(), tt.page)
			if err != nil {
				t.Fatalf("Index() error = %v", err)
			}
			if len(got.Posts) != tt.wantLen {
				t.Errorf("len(Posts) = %d, want %d", len(got.Posts), tt.wantLen)
			}
			if got.Page.HasNext() != tt.wantNext {
				t.Errorf("HasNext() = %v, want %v", got.Page.HasNext(), tt.wantNext)
			}
			if got.Page.Total != 13 {
				t.Errorf("Total = %d, want 13", got.Page.Total)
			}
		})
	}
}

func TestIndex_NewestFirst(t *testing.T) {
	f := newFixture()
	author := f.user("author")
	f.post(author, nil, "old")
	f.post(author, nil, "new")

	got, err := f.postSvc.Index(context.Background(), 1)
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if got.Posts[0].Text != "new" {
		t.Errorf("first post = %q, want %q", got.Posts[0].Text, "new")
	}
}

func TestIndex_RepositoryError(t *testing.T) {
	f := newFixture()
	f.post(f.user("author"), nil, "text")
	f.posts.listErr = errDB

	if _, err := f.postSvc.Index(context.Background(), 1); !errors.Is(err, errDB) {
		t.Errorf("Index() error = %v, want wrapped errDB", err)
	}
}

func TestGroupPosts(t *testing.T) {
	f := newFixture()
	author := f.user("author")
	cats := f.group("cats")
	dogs := f.group("dogs")
	f.post(author, cats, "meow")
	f.post(author, dogs, "woof")
	f.post(author, nil, "silence")

	group, page, err := f.postSvc.GroupPosts(context.Background(), "cats", 1)
	if err != nil {
		t.Fatalf("GroupPosts() error = %v", err)
	}
	if group.ID != cats.ID {
		t.Errorf("group = %+v, want cats", group)
	}
	if len(page.Posts) != 1 || page.Posts[0].Text != "meow" {
		t.Errorf("GroupPosts() posts = %+v, want only meow", page.Posts)
	}

	if _, _, err := f.postSvc.GroupPosts(context.Background(), "birds", 1); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GroupPosts(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestProfilePosts(t *testing.T) {
	f := newFixture()
	alice := f.user("alice")
	bob := f.user("bob")
	f.post(alice, nil, "a1")
	f.post(alice, nil, "a2")
	f.post(bob, nil, "b1")

	author, page, err := f.postSvc.ProfilePosts(context.Background(), "alice", 1)
	if err != nil {
		t.Fatalf("ProfilePosts() error = %v", err)
	}
	if author.ID != alice.ID {
		t.Errorf("author = %q, want alice", author.Username)
	}
	if page.Page.Total != 2 {
		t.Errorf("Total = %d, want 2", page.Page.Total)
	}

	if _, _, err := f.postSvc.ProfilePosts(context.Background(), "nobody", 1); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("ProfilePosts(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestFeed_OnlyFollowedAuthors(t *testing.T) {
	f := newFixture()
	reader := f.user("reader")
	followed := f.user("followed")
	ignored := f.user("ignored")
	f.post(followed, nil, "in feed")
	f.post(ignored, nil, "not in feed")

	if _, err := f.followSvc.Follow(context.Background(), reader.ID, "followed"); err != nil {
		t.Fatalf("Follow() error = %v", err)
	}

	page, err := f.postSvc.Feed(context.Background(), reader.ID, 1)
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if len(page.Posts) != 1 || page.Posts[0].Text != "in feed" {
		t.Errorf("Feed() = %+v, want only the followed author's post", page.Posts)
	}

	// the ignored author's own feed is empty
	page, _ = f.postSvc.Feed(context.Background(), ignored.ID, 1)
	if len(page.Posts) != 0 {
		t.Errorf("Feed() for a user following nobody = %d posts, want 0", len(page.Posts))
	}

	if _, err := f.postSvc.Feed(context.Background(), "", 1); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("Feed(anonymous) error = %v, want ErrUnauthorized", err)
	}
}

func TestCreate_Valid(t *testing.T) {
	f := newFixture()
	author := f.user("author")
	cats := f.group("cats")

	post, err := f.postSvc.Create(context.Background(), author.ID, PostInput{
		Text:    "hello cats",
		GroupID: cats.ID,
		Image:   &Upload{Filename: "small.gif", Content: strings.NewReader("GIF89a")},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if post.ID == 0 {
		t.Error("Create() did not assign an ID")
	}
	if post.Author.Username != "author" {
		t.Errorf("Author = %q, want author", post.Author.Username)
	}
	if post.Group == nil || post.Group.Slug != "cats" {
		t.Errorf("Group = %+v, want cats", post.Group)
	}
	if post.Image != "posts/small.gif" {
		t.Errorf("Image = %q, want posts/small.gif", post.Image)
	}
	if len(f.store.posts) != 1 {
		t.Errorf("store has %d posts, want 1", len(f.store.posts))
	}
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name      string
		in        PostInput
		wantField string
	}{
		{"empty text", PostInput{Text: ""}, "text"},
		{"whitespace text", PostInput{Text: "  \n\t"}, "text"},
		{"unknown group", PostInput{Text: "ok", GroupID: 999}, "group"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			author := f.user("author")
			tt.in.Image = &Upload{Filename: "small.gif", Content: strings.NewReader("GIF89a")}

			_, err := f.postSvc.Create(context.Background(), author.ID, tt.in)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("Create() error = %v, want ErrValidation", err)
			}
			if got := apperror.FieldOf(err); got != tt.wantField {
				t.Errorf("field = %q, want %q", got, tt.wantField)
			}
			if len(f.store.posts) != 0 {
				t.Error("invalid post was persisted")
			}
			if len(f.images.saved) != 0 {
				t.Error("image was saved for an invalid form")
			}
		})
	}
}

func TestCreate_BadImage(t *testing.T) {
	f := newFixture()
	author := f.user("author")
	f.images.err = apperror.ValidationFailed("image", "Upload a valid image.")

	_, err := f.postSvc.Create(context.Background(), author.ID, PostInput{
		Text:  "text",
		Image: &Upload{Filename: "notes.txt", Content: strings.NewReader("plain")},
	})
	if apperror.FieldOf(err) != "image" {
		t.Errorf("Create() error = %v, want image field error", err)
	}
	if len(f.store.posts) != 0 {
		t.Error("post with a bad image was persisted")
	}
}

func TestCreate_DBErrorRemovesImage(t *testing.T) {
	f := newFixture()
	author := f.user("author")
	f.posts.createErr = errDB

	_, err := f.postSvc.Create(context.Background(), author.ID, PostInput{
		Text:  "text",
		Image: &Upload{Filename: "small.gif", Content: strings.NewReader("GIF89a")},
	})
	if !errors.Is(err, errDB) {
		t.Fatalf("Create() error = %v, want errDB", err)
	}
	if !reflect.DeepEqual(f.images.removed, []string{"posts/small.gif"}) {
		t.Errorf("removed = %v, want [posts/small.gif]", f.images.removed)
	}
}

func TestUpdate_DBErrorRemovesNewImage(t *testing.T) {
	f := newFixture()
	author := f.user("author")
	original := f.post(author, nil, "before")
	f.posts.updateErr = errDB

	_, err := f.postSvc.Update(context.Background(), author.ID, original.ID, PostInput{
		Text:  "after",
		Image: &Upload{Filename: "new.gif", Content: strings.NewReader("GIF89a")},
	})
	if !errors.Is(err, errDB) {
		t.Fatalf("Update() error = %v, want errDB", err)
	}
	if !reflect.DeepEqual(f.images.removed, []string{"posts/new.gif"}) {
		t.Errorf("removed = %v, want [posts/new.gif]", f.images.removed)
	}
}

func TestUpdate_ByAuthor(t *testing.T) {
	f := newFixture()
	author := f.user("author")
	cats := f.group("cats")
	original := f.post(author, nil, "before")
	original.Image = "posts/keep.gif"
	f.store.posts[original.ID].Image = "posts/keep.gif"

	updated, err := f.postSvc.Update(context.Background(), author.ID, original.ID, PostInput{
		Text:    "after",
		GroupID: cats.ID,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Text != "after" || updated.GroupID() != cats.ID {
		t.Errorf("Update() = %+v", updated)
	}
	if updated.Image != "posts/keep.gif" {
		t.Errorf("Image = %q, want the old image kept", updated.Image)
	}
	if f.store.posts[original.ID].Text != "after" {
		t.Error("Update() did not persist")
	}
}

func TestUpdate_ByStranger(t *testing.T) {
	f := newFixture()
	author := f.user("author")
	stranger := f.user("stranger")
	post := f.post(author, nil, "mine")

	_, err := f.postSvc.Update(context.Background(), stranger.ID, post.ID, PostInput{Text: "hijacked"})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("Update() error = %v, want ErrForbidden", err)
	}
	if f.store.posts[post.ID].Text != "mine" {
		t.Error("non-author changed the post")
	}
}

func TestUpdate_NotFound(t *testing.T) {
	f := newFixture()
	author := f.user("author")

	if _, err := f.postSvc.Update(context.Background(), author.ID, 42, PostInput{Text: "x"}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	f := newFixture()
	author := f.user("author")
	stranger := f.user("stranger")
	post := f.post(author, nil, "doomed")

	if _, err := f.postSvc.Delete(context.Background(), stranger.ID, post.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("Delete() by stranger error = %v, want ErrForbidden", err)
	}
	if len(f.store.posts) != 1 {
		t.Fatal("stranger deleted the post")
	}

	deleted, err := f.postSvc.Delete(context.Background(), author.ID, post.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if deleted.Author.Username != "author" {
		t.Errorf("deleted post author = %q", deleted.Author.Username)
	}
	if len(f.store.posts) != 0 {
		t.Error("Delete() did not remove the post")
	}
}

func TestCountByAuthor(t *testing.T) {
	f := newFixture()
	author := f.user("author")
	f.post(author, nil, "1")
	f.post(author, nil, "2")
	f.post(f.user("other"), nil, "3")

	n, err := f.postSvc.CountByAuthor(context.Background(), author.ID)
	if err != nil {
		t.Fatalf("CountByAuthor() error = %v", err)
	}
	if n != 2 {
		t.Errorf("CountByAuthor() = %d, want 2", n)
	}
}

func TestParsePostID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"1", 1, false},
		{"1234", 1234, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePostID(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePostID(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, apperror.ErrNotFound) {
			t.Errorf("ParsePostID(%q) error = %v, want ErrNotFound", tt.raw, err)
		}
		if got != tt.want {
			t.Errorf("ParsePostID(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
