package ruqqus

import (
	"context"
	"errors"

	pkgerrs "github.com/ruqqus-community/go-ruqqus/pkg/errors"
	"github.com/ruqqus-community/go-ruqqus/pkg/types"
)

// PostIterator pages through a post listing one post at a time, fetching the
// next page lazily. Iteration ends when the API returns an empty page.
type PostIterator struct {
	listFunc  func(context.Context, *types.ListingOptions) ([]*types.Post, error)
	options   types.ListingOptions
	buffer    []*types.Post
	bufferIdx int
	page      int
	hasMore   bool
	err       error
	ctx       context.Context
}

// NewGuildPostIterator iterates over a guild's post listing. opts.Page is
// ignored; the iterator manages pagination itself.
func (c *Client) NewGuildPostIterator(ctx context.Context, guild string, opts *types.ListingOptions) *PostIterator {
	return newPostIterator(ctx, opts, func(ctx context.Context, o *types.ListingOptions) ([]*types.Post, error) {
		return c.GetGuildPosts(ctx, guild, o)
	})
}

// NewUserPostIterator iterates over a user's post history.
func (c *Client) NewUserPostIterator(ctx context.Context, username string, opts *types.ListingOptions) *PostIterator {
	return newPostIterator(ctx, opts, func(ctx context.Context, o *types.ListingOptions) ([]*types.Post, error) {
		return c.GetUserPosts(ctx, username, o)
	})
}

func newPostIterator(ctx context.Context, opts *types.ListingOptions, listFunc func(context.Context, *types.ListingOptions) ([]*types.Post, error)) *PostIterator {
	it := &PostIterator{
		listFunc: listFunc,
		page:     1,
		hasMore:  true,
		ctx:      ctx,
	}
	if opts != nil {
		it.options = *opts
	}
	it.options.Limit = 0
	return it
}

// HasNext reports whether another post may be available. It can report true
// immediately before an empty page ends the iteration, since the end is only
// discovered by fetching.
func (it *PostIterator) HasNext() bool {
	if it.err != nil {
		return false
	}
	return it.bufferIdx < len(it.buffer) || it.hasMore
}

// Next returns the next post, fetching the next page when the current one is
// exhausted. It returns a StateError once the listing is exhausted.
func (it *PostIterator) Next() (*types.Post, error) {
	if it.err != nil {
		return nil, it.err
	}

	if it.bufferIdx >= len(it.buffer) {
		if !it.hasMore {
			return nil, &pkgerrs.StateError{Operation: "post_iterator", Message: "listing exhausted"}
		}

		opts := it.options
		opts.Page = it.page
		posts, err := it.listFunc(it.ctx, &opts)
		if err != nil {
			it.err = err
			return nil, err
		}

		it.buffer = posts
		it.bufferIdx = 0
		it.page++

		if len(posts) == 0 {
			it.hasMore = false
			return nil, &pkgerrs.StateError{Operation: "post_iterator", Message: "listing exhausted"}
		}
	}

	post := it.buffer[it.bufferIdx]
	it.bufferIdx++
	return post, nil
}

// Err returns the error that stopped iteration, if any.
func (it *PostIterator) Err() error {
	return it.err
}

// Reset rewinds the iterator to the first page.
func (it *PostIterator) Reset() {
	it.buffer = nil
	it.bufferIdx = 0
	it.page = 1
	it.hasMore = true
	it.err = nil
}

// Collect drains the iterator into a slice, stopping after max posts when
// max is positive. On error it returns what was gathered so far.
func (it *PostIterator) Collect(max int) ([]*types.Post, error) {
	var posts []*types.Post
	for it.HasNext() && (max <= 0 || len(posts) < max) {
		post, err := it.Next()
		if err != nil {
			var stateErr *pkgerrs.StateError
			if errors.As(err, &stateErr) {
				return posts, nil
			}
			return posts, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// CommentIterator is the comment counterpart of PostIterator.
type CommentIterator struct {
	listFunc  func(context.Context, *types.ListingOptions) ([]*types.Comment, error)
	options   types.ListingOptions
	buffer    []*types.Comment
	bufferIdx int
	page      int
	hasMore   bool
	err       error
	ctx       context.Context
}

// NewGuildCommentIterator iterates over a guild's comment listing.
func (c *Client) NewGuildCommentIterator(ctx context.Context, guild string, opts *types.ListingOptions) *CommentIterator {
	return newCommentIterator(ctx, opts, func(ctx context.Context, o *types.ListingOptions) ([]*types.Comment, error) {
		return c.GetGuildComments(ctx, guild, o)
	})
}

// NewUserCommentIterator iterates over a user's comment history.
func (c *Client) NewUserCommentIterator(ctx context.Context, username string, opts *types.ListingOptions) *CommentIterator {
	return newCommentIterator(ctx, opts, func(ctx context.Context, o *types.ListingOptions) ([]*types.Comment, error) {
		return c.GetUserComments(ctx, username, o)
	})
}

func newCommentIterator(ctx context.Context, opts *types.ListingOptions, listFunc func(context.Context, *types.ListingOptions) ([]*types.Comment, error)) *CommentIterator {
	it := &CommentIterator{
		listFunc: listFunc,
		page:     1,
		hasMore:  true,
		ctx:      ctx,
	}
	if opts != nil {
		it.options = *opts
	}
	it.options.Limit = 0
	return it
}

// HasNext reports whether another comment may be available.
func (it *CommentIterator) HasNext() bool {
	if it.err != nil {
		return false
	}
	return it.bufferIdx < len(it.buffer) || it.hasMore
}

// Next returns the next comment, fetching the next page when the current one
// is exhausted.
func (it *CommentIterator) Next() (*types.Comment, error) {
	if it.err != nil {
		return nil, it.err
	}

	if it.bufferIdx >= len(it.buffer) {
		if !it.hasMore {
			return nil, &pkgerrs.StateError{Operation: "comment_iterator", Message: "listing exhausted"}
		}

		opts := it.options
		opts.Page = it.page
		comments, err := it.listFunc(it.ctx, &opts)
		if err != nil {
			it.err = err
			return nil, err
		}

		it.buffer = comments
		it.bufferIdx = 0
		it.page++

		if len(comments) == 0 {
			it.hasMore = false
			return nil, &pkgerrs.StateError{Operation: "comment_iterator", Message: "listing exhausted"}
		}
	}

	comment := it.buffer[it.bufferIdx]
	it.bufferIdx++
	return comment, nil
}

// Err returns the error that stopped iteration, if any.
func (it *CommentIterator) Err() error {
	return it.err
}

// Reset rewinds the iterator to the first page.
func (it *CommentIterator) Reset() {
	it.buffer = nil
	it.bufferIdx = 0
	it.page = 1
	it.hasMore = true
	it.err = nil
}
