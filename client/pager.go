package client

import (
	"context"

	"github.com/hoppafit/website/internal/model"
	"github.com/hoppafit/website/internal/paginate"
)

// Pager pages through the article listing. It never requests a page below 1
// or past the last page the backend reported.
type Pager struct {
	client *Client
	params model.ArticlesParams
	pages  *paginate.Pager
	last   *model.PaginatedArticles
}

func (c *Client) Pager(p model.ArticlesParams) *Pager {
	return &Pager{client: c, params: p, pages: paginate.NewPager()}
}

func (p *Pager) Page() int { return p.pages.Page() }

func (p *Pager) HasNext() bool { return p.pages.HasNext() }

func (p *Pager) HasPrev() bool { return p.pages.HasPrev() }

// Load fetches the current page.
func (p *Pager) Load(ctx context.Context) (*model.PaginatedArticles, error) {
	params := p.params
	params.Page = p.pages.Page()

	res, err := p.client.Articles(ctx, params)
	if err != nil {
		return nil, err
	}
	p.pages.Update(res.Pagination.TotalPages)
	p.last = res

	return res, nil
}

// Next loads the following page. At the last page it returns the current one
// without a request.
func (p *Pager) Next(ctx context.Context) (*model.PaginatedArticles, error) {
	return p.move(ctx, p.pages.Next)
}

func (p *Pager) Prev(ctx context.Context) (*model.PaginatedArticles, error) {
	return p.move(ctx, p.pages.Prev)
}

// Go loads page n, clamped to the known range.
func (p *Pager) Go(ctx context.Context, n int) (*model.PaginatedArticles, error) {
	return p.move(ctx, func() bool { return p.pages.Go(n) })
}

func (p *Pager) move(ctx context.Context, step func() bool) (*model.PaginatedArticles, error) {
	if !step() && p.last != nil {
		return p.last, nil
	}

	return p.Load(ctx)
}
