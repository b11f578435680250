package forum

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/hoppafit/website/internal/auth"
	"github.com/hoppafit/website/internal/model"
)

var (
	errTopicFields   = errors.New("title and content are required")
	errInvalidVote   = errors.New("value must be 1 or -1")
	errTopicRequired = errors.New("topicId is required")
	errEmptyComment  = errors.New("content must not be empty")
)

// TopicRequest is the POST /topics payload.
type TopicRequest struct {
	model.CreateTopic
}

func (t *TopicRequest) Bind(r *http.Request) error {
	if strings.TrimSpace(t.Title) == "" || strings.TrimSpace(t.Content) == "" {
		return errTopicFields
	}

	uid, err := auth.ResolveUser(r.Context(), t.UserID)
	t.UserID = uid

	return err
}

// TopicPatchRequest is either a vote (Value set) or an edit.
type TopicPatchRequest struct {
	Value   *int   `json:"value"`
	UserID  string `json:"userId"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (t *TopicPatchRequest) Bind(r *http.Request) error {
	if t.Value != nil && !model.ValidVote(*t.Value) {
		return errInvalidVote
	}

	uid, err := auth.ResolveUser(r.Context(), t.UserID)
	t.UserID = uid

	return err
}

func (t *TopicPatchRequest) IsVote() bool { return t.Value != nil }

// VoteRequest backs the explicit vote route, where value is mandatory.
type VoteRequest struct {
	Value  *int   `json:"value"`
	UserID string `json:"userId"`
}

func (v *VoteRequest) Bind(r *http.Request) error {
	if v.Value == nil || !model.ValidVote(*v.Value) {
		return errInvalidVote
	}

	uid, err := auth.ResolveUser(r.Context(), v.UserID)
	v.UserID = uid

	return err
}

// OwnerRequest carries the optional userId sent with deletes.
type OwnerRequest struct {
	UserID string `json:"userId"`
}

func (o *OwnerRequest) Bind(r *http.Request) error {
	uid, err := auth.ResolveUser(r.Context(), o.UserID)
	o.UserID = uid

	return err
}

// CommentRequest is the POST /comments payload.
type CommentRequest struct {
	model.CreateComment
}

func (c *CommentRequest) Bind(r *http.Request) error {
	if c.TopicID == "" {
		return errTopicRequired
	}
	if strings.TrimSpace(c.Content) == "" {
		return errEmptyComment
	}

	uid, err := auth.ResolveUser(r.Context(), c.UserID)
	c.UserID = uid

	return err
}

type CommentPatchRequest struct {
	UserID  string `json:"userId"`
	Content string `json:"content"`
}

func (c *CommentPatchRequest) Bind(r *http.Request) error {
	if strings.TrimSpace(c.Content) == "" {
		return errEmptyComment
	}

	uid, err := auth.ResolveUser(r.Context(), c.UserID)
	c.UserID = uid

	return err
}

// bindOptional is render.Bind for requests whose body may be absent.
func bindOptional(r *http.Request, v render.Binder) error {
	err := render.Bind(r, v)
	if errors.Is(err, io.EOF) {
		return v.Bind(r)
	}

	return err
}
