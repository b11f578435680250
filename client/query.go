package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/hoppafit/website/internal/cachetag"
)

// Tag types used by the data layer.
const (
	TopicTag    = "Topic"
	CommentTag  = "Comment"
	ArticleTag  = "Article"
	CategoryTag = "Category"
	TagTag      = "Tag"
)

func cacheKey(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}

	return path + "?" + q.Encode()
}

func fetcher[T any](c *Client, path string, q url.Values, provides func(T) []cachetag.Tag) cachetag.Fetcher {
	return func(ctx context.Context) (interface{}, []cachetag.Tag, error) {
		var v T
		if err := c.do(ctx, call{method: http.MethodGet, path: path, query: q}, &v); err != nil {
			return nil, nil, err
		}

		return v, provides(v), nil
	}
}

// query is a cached GET.
func query[T any](ctx context.Context, c *Client, path string, q url.Values, provides func(T) []cachetag.Tag) (T, error) {
	v, err := c.Cache.Query(ctx, cacheKey(path, q), fetcher(c, path, q, provides))
	if err != nil {
		var zero T

		return zero, err
	}

	return v.(T), nil
}

// watch is a GET that stays active: fn sees the first load and every
// refetch after an invalidation until the returned func is called.
func watch[T any](ctx context.Context, c *Client, path string, q url.Values, provides func(T) []cachetag.Tag, fn func(T, error)) func() {
	return c.Cache.Subscribe(ctx, cacheKey(path, q), fetcher(c, path, q, provides), func(res cachetag.Result) {
		v, _ := res.Value.(T)
		fn(v, res.Err)
	})
}

// mutate runs a write and, on success only, invalidates tags.
func mutate[T any](ctx context.Context, c *Client, rc call, tags ...cachetag.Tag) (T, error) {
	v, err := c.Cache.Mutate(ctx, func(ctx context.Context) (interface{}, error) {
		var out T
		err := c.do(ctx, rc, &out)

		return out, err
	}, func(interface{}) []cachetag.Tag {
		return tags
	})
	if err != nil {
		var zero T

		return zero, err
	}

	return v.(T), nil
}

// listTags tags every item by id plus the extra ids, such as LIST.
func listTags[T any](typ string, items []T, id func(T) string, extra ...string) []cachetag.Tag {
	tags := make([]cachetag.Tag, 0, len(items)+len(extra))
	for _, it := range items {
		tags = append(tags, cachetag.Typed(typ, id(it)))
	}
	for _, x := range extra {
		tags = append(tags, cachetag.Typed(typ, x))
	}

	return tags
}
