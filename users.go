package ruqqus

import (
	"context"
	"net/http"

	"github.com/ruqqus-community/go-ruqqus/internal"
	pkgerrs "github.com/ruqqus-community/go-ruqqus/pkg/errors"
	"github.com/ruqqus-community/go-ruqqus/pkg/types"
	"github.com/ruqqus-community/go-ruqqus/pkg/validation"
)

// GetUser fetches a user by username. Requires the read scope.
func (c *Client) GetUser(ctx context.Context, username string) (*types.User, error) {
	if !validation.IsValidUsername(username) {
		return nil, &pkgerrs.ConfigError{Field: "username", Message: "invalid username: " + username}
	}
	if err := c.requireScope(types.ScopeRead, "get_user"); err != nil {
		return nil, err
	}

	var payload types.UserPayload
	err := c.gateway.DoJSON(ctx, http.MethodGet, "user/"+username, &internal.RequestOptions{
		Operation: "get_user",
	}, &payload)
	if err != nil {
		return nil, err
	}
	return c.resolver.ResolveUser(&payload, types.VariantFull), nil
}

// UserAvailable reports whether a username is free to be claimed. This is a
// public endpoint and needs no scope, only an online session.
func (c *Client) UserAvailable(ctx context.Context, username string) (bool, error) {
	if !validation.IsValidUsername(username) {
		return false, &pkgerrs.ConfigError{Field: "username", Message: "invalid username: " + username}
	}
	if !c.IsOnline() {
		return false, &pkgerrs.StateError{Operation: "user_available", Message: "session is not online"}
	}

	// The endpoint answers with a single-entry map keyed by the queried name.
	var resp map[string]bool
	err := c.gateway.DoJSON(ctx, http.MethodGet, "is_available/"+username, &internal.RequestOptions{
		Operation: "user_available",
	}, &resp)
	if err != nil {
		return false, err
	}
	return resp[username], nil
}

// GetUserPosts fetches one page of a user's post history. Requires the read
// scope. Fetched posts are fed into the post cache so the poll engine will
// not re-announce them.
func (c *Client) GetUserPosts(ctx context.Context, username string, opts *types.ListingOptions) ([]*types.Post, error) {
	if !validation.IsValidUsername(username) {
		return nil, &pkgerrs.ConfigError{Field: "username", Message: "invalid username: " + username}
	}
	if err := c.requireScope(types.ScopeRead, "get_user_posts"); err != nil {
		return nil, err
	}

	posts, err := c.fetchPostListing(ctx, "user/"+username+"/listing", listingQuery(opts, false), optLimit(opts), "get_user_posts")
	if err != nil {
		return nil, err
	}
	for _, post := range posts {
		c.poller.PostCache().Upsert(post)
	}
	return posts, nil
}

// GetUserComments fetches one page of a user's comment history. Requires
// the read scope.
func (c *Client) GetUserComments(ctx context.Context, username string, opts *types.ListingOptions) ([]*types.Comment, error) {
	if !validation.IsValidUsername(username) {
		return nil, &pkgerrs.ConfigError{Field: "username", Message: "invalid username: " + username}
	}
	if err := c.requireScope(types.ScopeRead, "get_user_comments"); err != nil {
		return nil, err
	}

	comments, err := c.fetchCommentListing(ctx, "user/"+username+"/comments", listingQuery(opts, false), optLimit(opts), "get_user_comments")
	if err != nil {
		return nil, err
	}
	for _, comment := range comments {
		c.poller.CommentCache().Upsert(comment)
	}
	return comments, nil
}
