package ruqqus

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/ruqqus-community/go-ruqqus/internal"
	pkgerrs "github.com/ruqqus-community/go-ruqqus/pkg/errors"
	"github.com/ruqqus-community/go-ruqqus/pkg/types"
)

// listingQuery translates ListingOptions into the query parameters the
// listing endpoints accept. full controls whether the sort/filter/timeframe
// parameters are sent; the comment and user listings only page.
func listingQuery(opts *types.ListingOptions, full bool) url.Values {
	q := url.Values{}

	page := 1
	if opts != nil && opts.Page > 0 {
		page = opts.Page
	}
	q.Set("page", strconv.Itoa(page))

	if full {
		sort := "new"
		filter := "all"
		var utcGT, utcLT int64
		if opts != nil {
			if opts.Sort != "" {
				sort = opts.Sort
			}
			if opts.Filter != "" {
				filter = opts.Filter
			}
			utcGT = opts.UTCGreaterThan
			utcLT = opts.UTCLessThan
		}
		q.Set("sort", sort)
		q.Set("t", filter)
		q.Set("utc_greater_than", strconv.FormatInt(utcGT, 10))
		q.Set("utc_less_than", strconv.FormatInt(utcLT, 10))
	}

	return q
}

// fetchPostListing retrieves one page of a post listing endpoint and resolves
// every child, truncating to opts.Limit client-side.
func (c *Client) fetchPostListing(ctx context.Context, path string, query url.Values, limit int, operation string) ([]*types.Post, error) {
	var listing types.ListingPayload
	err := c.gateway.DoJSON(ctx, http.MethodGet, path, &internal.RequestOptions{
		Query:     query,
		Operation: operation,
	}, &listing)
	if err != nil {
		return nil, err
	}
	if listing.Error != "" {
		return nil, &pkgerrs.APIError{Message: listing.Error}
	}

	posts := make([]*types.Post, 0, len(listing.Data))
	for _, raw := range listing.Data {
		var payload types.PostPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			continue
		}
		if post := c.resolver.ResolvePost(&payload, types.VariantFull); post != nil {
			posts = append(posts, post)
		}
	}

	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

// fetchCommentListing is the comment counterpart of fetchPostListing.
func (c *Client) fetchCommentListing(ctx context.Context, path string, query url.Values, limit int, operation string) ([]*types.Comment, error) {
	var listing types.ListingPayload
	err := c.gateway.DoJSON(ctx, http.MethodGet, path, &internal.RequestOptions{
		Query:     query,
		Operation: operation,
	}, &listing)
	if err != nil {
		return nil, err
	}
	if listing.Error != "" {
		return nil, &pkgerrs.APIError{Message: listing.Error}
	}

	comments := make([]*types.Comment, 0, len(listing.Data))
	for _, raw := range listing.Data {
		var payload types.CommentPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			continue
		}
		if comment := c.resolver.ResolveComment(&payload, types.VariantFull); comment != nil {
			comments = append(comments, comment)
		}
	}

	if limit > 0 && len(comments) > limit {
		comments = comments[:limit]
	}
	return comments, nil
}

func optLimit(opts *types.ListingOptions) int {
	if opts == nil {
		return 0
	}
	return opts.Limit
}
