//go:build integration

package client

import (
	"context"
	"os"
	"testing"

	"github.com/hoppafit/website/internal/model"
)

// Runs against a live server: HOPPA_ADDR defaults to http://localhost:3333.
var c = New(addr(), nil)

func addr() string {
	if a := os.Getenv("HOPPA_ADDR"); a != "" {
		return a
	}

	return "http://localhost:3333"
}

func TestPing(t *testing.T) {
	if s, err := c.Ping(context.Background()); err != nil || s != "pong" {
		t.Fatalf("ping = %q, %v", s, err)
	}
}

func TestListings(t *testing.T) {
	ctx := context.Background()

	if _, err := c.Topics(ctx, model.TopicsParams{Limit: 5}); err != nil {
		t.Fatal(err)
	}
	res, err := c.Articles(ctx, model.ArticlesParams{Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if res.Pagination.Page != 1 {
		t.Fatalf("page = %d", res.Pagination.Page)
	}
}
