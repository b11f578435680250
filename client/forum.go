package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hoppafit/website/internal/cachetag"
	"github.com/hoppafit/website/internal/model"
)

var (
	ErrInvalidVote  = errors.New("client: vote must be 1 or -1")
	ErrEmptyComment = errors.New("client: comment content must not be empty")
	ErrTopicFields  = errors.New("client: topic title and content are required")
)

func topicID(t model.Topic) string     { return t.ID }
func commentID(c model.Comment) string { return c.ID }

func topicPath(id string) string   { return "/forum/topics/" + url.PathEscape(id) }
func commentPath(id string) string { return "/forum/comments/" + url.PathEscape(id) }

func topicsQuery(p model.TopicsParams) url.Values {
	q := url.Values{}
	if p.Sort != "" {
		q.Set("sort", string(p.Sort))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}

	return q
}

func (c *Client) Topics(ctx context.Context, p model.TopicsParams) ([]model.Topic, error) {
	return query(ctx, c, "/forum/topics", topicsQuery(p), func(ts []model.Topic) []cachetag.Tag {
		return listTags(TopicTag, ts, topicID, cachetag.ListID)
	})
}

func (c *Client) Topic(ctx context.Context, id string) (*model.Topic, error) {
	return query(ctx, c, topicPath(id), nil, topicTags(id))
}

// WatchTopic keeps the topic read active; fn runs on load and after every
// write that touches the topic.
func (c *Client) WatchTopic(ctx context.Context, id string, fn func(*model.Topic, error)) func() {
	return watch(ctx, c, topicPath(id), nil, topicTags(id), fn)
}

func topicTags(id string) func(*model.Topic) []cachetag.Tag {
	return func(*model.Topic) []cachetag.Tag { return []cachetag.Tag{cachetag.Typed(TopicTag, id)} }
}

func (c *Client) CreateTopic(ctx context.Context, t model.CreateTopic) (*model.Topic, error) {
	if strings.TrimSpace(t.Title) == "" || strings.TrimSpace(t.Content) == "" {
		return nil, ErrTopicFields
	}

	return mutate[*model.Topic](ctx, c, call{method: http.MethodPost, path: "/forum/topics", body: t},
		cachetag.List(TopicTag))
}

// VoteTopic records a vote. The returned topic carries the backend's count.
func (c *Client) VoteTopic(ctx context.Context, v model.VoteTopic) (*model.Topic, error) {
	if !model.ValidVote(v.Value) {
		return nil, ErrInvalidVote
	}

	return mutate[*model.Topic](ctx, c, call{method: http.MethodPatch, path: topicPath(v.TopicID) + "/vote", body: v},
		cachetag.Typed(TopicTag, v.TopicID))
}

func (c *Client) UpdateTopic(ctx context.Context, u model.UpdateTopic) (*model.Topic, error) {
	return mutate[*model.Topic](ctx, c, call{method: http.MethodPatch, path: topicPath(u.TopicID), body: u},
		cachetag.Typed(TopicTag, u.TopicID))
}

func (c *Client) DeleteTopic(ctx context.Context, d model.DeleteTopic) error {
	_, err := mutate[struct{}](ctx, c, call{method: http.MethodDelete, path: topicPath(d.TopicID), body: d},
		cachetag.List(TopicTag))

	return err
}

func commentsQuery(topicID string) url.Values {
	return url.Values{"topicId": {topicID}}
}

func commentTags(cs []model.Comment) []cachetag.Tag {
	return listTags(CommentTag, cs, commentID, cachetag.ListID)
}

func (c *Client) Comments(ctx context.Context, topicID string) ([]model.Comment, error) {
	return query(ctx, c, "/forum/comments", commentsQuery(topicID), commentTags)
}

func (c *Client) WatchComments(ctx context.Context, topicID string, fn func([]model.Comment, error)) func() {
	return watch(ctx, c, "/forum/comments", commentsQuery(topicID), commentTags, fn)
}

func (c *Client) CreateComment(ctx context.Context, cc model.CreateComment) (*model.Comment, error) {
	if strings.TrimSpace(cc.Content) == "" {
		return nil, ErrEmptyComment
	}

	return mutate[*model.Comment](ctx, c, call{method: http.MethodPost, path: "/forum/comments", body: cc},
		cachetag.List(CommentTag))
}

func (c *Client) UpdateComment(ctx context.Context, u model.UpdateComment) (*model.Comment, error) {
	if strings.TrimSpace(u.Content) == "" {
		return nil, ErrEmptyComment
	}

	return mutate[*model.Comment](ctx, c, call{method: http.MethodPatch, path: commentPath(u.CommentID), body: u},
		cachetag.Typed(CommentTag, u.CommentID))
}

func (c *Client) DeleteComment(ctx context.Context, d model.DeleteComment) error {
	_, err := mutate[struct{}](ctx, c, call{method: http.MethodDelete, path: commentPath(d.CommentID), body: d},
		cachetag.List(CommentTag))

	return err
}
