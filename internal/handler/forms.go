package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sakif/yatube/internal/apperror"
	"github.com/sakif/yatube/internal/media"
	"github.com/sakif/yatube/internal/service"
)

// maxFormMemory is how much of a multipart body is held in memory; the
// rest spills to temporary files.
const maxFormMemory = media.MaxImageSize + 1<<20

// Form carries submitted values and their errors back to a template.
type Form struct {
	Values   url.Values
	Errors   map[string]string
	NonField string
}

func newForm(values url.Values) *Form {
	if values == nil {
		values = url.Values{}
	}
	return &Form{Values: values, Errors: map[string]string{}}
}

// Get returns the submitted value of field.
func (f *Form) Get(field string) string {
	return f.Values.Get(field)
}

// Error returns the error message for field, or "".
func (f *Form) Error(field string) string {
	return f.Errors[field]
}

// Valid reports whether the form has no errors at all.
func (f *Form) Valid() bool {
	return len(f.Errors) == 0 && f.NonField == ""
}

// Selected reports whether the select named field was submitted with id.
func (f *Form) Selected(field string, id int64) bool {
	return f.Get(field) == strconv.FormatInt(id, 10)
}

// AddError records err against its field, or as a non-field error.
func (f *Form) AddError(err error) {
	msg := apperror.MessageOf(err, "Invalid input.")
	if field := apperror.FieldOf(err); field != "" {
		f.Errors[field] = msg
		return
	}
	f.NonField = msg
}

// bindPostForm reads the post create/edit form.
//
// The returned closer releases the uploaded file and any temporary files
// the multipart reader created; call it once the service is done.
func bindPostForm(r *http.Request) (service.PostInput, *Form, func(), error) {
	closer := func() {}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return service.PostInput{}, nil, closer, apperror.ValidationFailed("", "Could not read the submitted form.")
	}
	if r.MultipartForm != nil {
		closer = func() { _ = r.MultipartForm.RemoveAll() }
	}

	form := newForm(r.PostForm)
	in := service.PostInput{Text: form.Get("text")}

	// An unparseable id can never name a group, so the service reports it
	// as an invalid choice.
	if raw := form.Get("group"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 1 {
			id = -1
		}
		in.GroupID = id
	}

	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		in.Image = &service.Upload{Filename: header.Filename, Content: file}
		removeAll := closer
		closer = func() {
			_ = file.Close()
			removeAll()
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return in, form, closer, apperror.ValidationFailed("image", "Upload a valid image.")
	}

	return in, form, closer, nil
}
