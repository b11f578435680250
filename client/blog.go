package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hoppafit/website/internal/cachetag"
	"github.com/hoppafit/website/internal/model"
)

// Article collection ids besides LIST.
const (
	FeaturedID = "FEATURED"
	LatestID   = "LATEST"
)

// RelatedID is the collection id of the articles related to articleID.
func RelatedID(articleID string) string { return "RELATED_" + articleID }

func articleID(a model.Article) string         { return a.ID }
func listItemID(a model.ArticleListItem) string { return a.ID }

const articlesPath = "/blog/articles"

func articlesQuery(p model.ArticlesParams) url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("status", string(p.Status))
	set("category", p.Category)
	set("tag", p.Tag)
	set("authorId", p.AuthorID)
	set("search", p.Search)
	set("sortBy", string(p.SortBy))
	set("sortOrder", string(p.SortOrder))
	if p.Featured != nil {
		q.Set("featured", strconv.FormatBool(*p.Featured))
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}

	return q
}

func limitQuery(limit int) url.Values {
	if limit <= 0 {
		return nil
	}

	return url.Values{"limit": {strconv.Itoa(limit)}}
}

func (c *Client) Articles(ctx context.Context, p model.ArticlesParams) (*model.PaginatedArticles, error) {
	return query(ctx, c, articlesPath, articlesQuery(p), func(res *model.PaginatedArticles) []cachetag.Tag {
		var items []model.ArticleListItem
		if res != nil {
			items = res.Items
		}

		return listTags(ArticleTag, items, listItemID, cachetag.ListID)
	})
}

// ArticleBySlug is tagged with the id the backend returns.
func (c *Client) ArticleBySlug(ctx context.Context, slug string) (*model.Article, error) {
	return query(ctx, c, articlesPath+"/slug/"+url.PathEscape(slug), nil, func(a *model.Article) []cachetag.Tag {
		if a == nil {
			return nil
		}

		return []cachetag.Tag{cachetag.Typed(ArticleTag, a.ID)}
	})
}

func (c *Client) FeaturedArticles(ctx context.Context, limit int) ([]model.Article, error) {
	return query(ctx, c, articlesPath+"/featured", limitQuery(limit), func(as []model.Article) []cachetag.Tag {
		return listTags(ArticleTag, as, articleID, FeaturedID)
	})
}

func (c *Client) LatestArticles(ctx context.Context, limit int) ([]model.ArticleListItem, error) {
	return query(ctx, c, articlesPath+"/latest", limitQuery(limit), func(as []model.ArticleListItem) []cachetag.Tag {
		return listTags(ArticleTag, as, listItemID, LatestID)
	})
}

func (c *Client) Categories(ctx context.Context) ([]model.CategoryCount, error) {
	return query(ctx, c, articlesPath+"/categories", nil, func([]model.CategoryCount) []cachetag.Tag {
		return []cachetag.Tag{cachetag.List(CategoryTag)}
	})
}

func (c *Client) Tags(ctx context.Context) ([]model.TagCount, error) {
	return query(ctx, c, articlesPath+"/tags", nil, func([]model.TagCount) []cachetag.Tag {
		return []cachetag.Tag{cachetag.List(TagTag)}
	})
}

func (c *Client) RelatedArticles(ctx context.Context, id string, limit int) ([]model.Article, error) {
	path := articlesPath + "/" + url.PathEscape(id) + "/related"

	return query(ctx, c, path, limitQuery(limit), func([]model.Article) []cachetag.Tag {
		return []cachetag.Tag{cachetag.Typed(ArticleTag, RelatedID(id))}
	})
}

// IncrementViews bumps the view counter. It invalidates nothing.
func (c *Client) IncrementViews(ctx context.Context, id string) error {
	return c.do(ctx, call{method: http.MethodPost, path: articlesPath + "/" + url.PathEscape(id) + "/view"}, nil)
}
