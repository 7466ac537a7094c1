package ruqqus

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ruqqus-community/go-ruqqus/internal"
	pkgerrs "github.com/ruqqus-community/go-ruqqus/pkg/errors"
	"github.com/ruqqus-community/go-ruqqus/pkg/types"
	"github.com/ruqqus-community/go-ruqqus/pkg/validation"
)

// GetPost fetches a post by its base 36 ID. Requires the read scope. The
// fetched post is fed into the post cache so the poll engine will not
// re-announce it.
func (c *Client) GetPost(ctx context.Context, id string) (*types.Post, error) {
	if !validation.IsValidBase36(id) {
		return nil, &pkgerrs.ConfigError{Field: "id", Message: "invalid post id: " + id}
	}
	if err := c.requireScope(types.ScopeRead, "get_post"); err != nil {
		return nil, err
	}

	var payload types.PostPayload
	err := c.gateway.DoJSON(ctx, http.MethodGet, "post/"+id, &internal.RequestOptions{
		Operation: "get_post",
	}, &payload)
	if err != nil {
		return nil, err
	}

	post := c.resolver.ResolvePost(&payload, types.VariantFull)
	if post != nil {
		c.poller.PostCache().Upsert(post)
	}
	return post, nil
}

// ReplyToPost creates a top-level comment on a post. Requires the create
// scope.
func (c *Client) ReplyToPost(ctx context.Context, postID, body string) error {
	if !validation.IsValidBase36(postID) {
		return &pkgerrs.ConfigError{Field: "postID", Message: "invalid post id: " + postID}
	}
	if !validation.HasContent(body) {
		return &pkgerrs.ConfigError{Field: "body", Message: "comment body must not be empty"}
	}
	if err := c.requireScope(types.ScopeCreate, "reply_to_post"); err != nil {
		return err
	}
	return c.submitComment(ctx, types.FullnamePost(postID), body, "reply_to_post")
}

// VotePost casts, flips, or retracts a vote on a post. Requires the vote
// scope. Voting the same direction twice is a no-op on the server side.
func (c *Client) VotePost(ctx context.Context, id string, dir types.VoteDirection) error {
	if !validation.IsValidBase36(id) {
		return &pkgerrs.ConfigError{Field: "id", Message: "invalid post id: " + id}
	}
	if dir < types.Downvote || dir > types.Upvote {
		return &pkgerrs.ConfigError{Field: "dir", Message: "vote direction must be -1, 0, or 1"}
	}
	if err := c.requireScope(types.ScopeVote, "vote_post"); err != nil {
		return err
	}

	path := "vote/post/" + id + "/" + strconv.Itoa(int(dir))
	_, err := c.gateway.Do(ctx, http.MethodPost, path, &internal.RequestOptions{
		Operation: "vote_post",
	})
	return err
}

// DeletePost removes one of the authenticated user's own posts. Requires
// the delete scope.
func (c *Client) DeletePost(ctx context.Context, id string) error {
	if !validation.IsValidBase36(id) {
		return &pkgerrs.ConfigError{Field: "id", Message: "invalid post id: " + id}
	}
	if err := c.requireScope(types.ScopeDelete, "delete_post"); err != nil {
		return err
	}

	_, err := c.gateway.Do(ctx, http.MethodPost, "delete_post/"+id, &internal.RequestOptions{
		Operation: "delete_post",
	})
	return err
}

// TogglePostNSFW flips the NSFW flag on one of the authenticated user's own
// posts. Requires the update scope.
func (c *Client) TogglePostNSFW(ctx context.Context, id string) error {
	return c.togglePostFlag(ctx, id, "toggle_post_nsfw")
}

// TogglePostNSFL flips the NSFL flag on one of the authenticated user's own
// posts. Requires the update scope.
func (c *Client) TogglePostNSFL(ctx context.Context, id string) error {
	return c.togglePostFlag(ctx, id, "toggle_post_nsfl")
}

func (c *Client) togglePostFlag(ctx context.Context, id, endpoint string) error {
	if !validation.IsValidBase36(id) {
		return &pkgerrs.ConfigError{Field: "id", Message: "invalid post id: " + id}
	}
	if err := c.requireScope(types.ScopeUpdate, endpoint); err != nil {
		return err
	}

	_, err := c.gateway.Do(ctx, http.MethodPost, endpoint+"/"+id, &internal.RequestOptions{
		Operation: endpoint,
	})
	return err
}

// submitComment posts a comment under the given parent fullname. Shared by
// ReplyToPost and ReplyToComment, which differ only in the parent prefix.
func (c *Client) submitComment(ctx context.Context, parentFullname, body, operation string) error {
	form := url.Values{}
	form.Set("parent_fullname", parentFullname)
	form.Set("body", body)

	_, err := c.gateway.Do(ctx, http.MethodPost, "comment", &internal.RequestOptions{
		Form:      form,
		Operation: operation,
	})
	return err
}
