package ruqqus

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ruqqus-community/go-ruqqus/internal"
	pkgerrs "github.com/ruqqus-community/go-ruqqus/pkg/errors"
	"github.com/ruqqus-community/go-ruqqus/pkg/types"
	"github.com/ruqqus-community/go-ruqqus/pkg/validation"
)

// GetComment fetches a comment by its base 36 ID. Requires the read scope.
// The fetched comment is fed into the comment cache so the poll engine will
// not re-announce it.
func (c *Client) GetComment(ctx context.Context, id string) (*types.Comment, error) {
	if !validation.IsValidBase36(id) {
		return nil, &pkgerrs.ConfigError{Field: "id", Message: "invalid comment id: " + id}
	}
	if err := c.requireScope(types.ScopeRead, "get_comment"); err != nil {
		return nil, err
	}

	var payload types.CommentPayload
	err := c.gateway.DoJSON(ctx, http.MethodGet, "comment/"+id, &internal.RequestOptions{
		Operation: "get_comment",
	}, &payload)
	if err != nil {
		return nil, err
	}

	comment := c.resolver.ResolveComment(&payload, types.VariantFull)
	if comment != nil {
		c.poller.CommentCache().Upsert(comment)
	}
	return comment, nil
}

// ReplyToComment creates a nested reply under an existing comment. Requires
// the create scope.
func (c *Client) ReplyToComment(ctx context.Context, commentID, body string) error {
	if !validation.IsValidBase36(commentID) {
		return &pkgerrs.ConfigError{Field: "commentID", Message: "invalid comment id: " + commentID}
	}
	if !validation.HasContent(body) {
		return &pkgerrs.ConfigError{Field: "body", Message: "comment body must not be empty"}
	}
	if err := c.requireScope(types.ScopeCreate, "reply_to_comment"); err != nil {
		return err
	}
	return c.submitComment(ctx, types.FullnameComment(commentID), body, "reply_to_comment")
}

// VoteComment casts, flips, or retracts a vote on a comment. Requires the
// vote scope.
func (c *Client) VoteComment(ctx context.Context, id string, dir types.VoteDirection) error {
	if !validation.IsValidBase36(id) {
		return &pkgerrs.ConfigError{Field: "id", Message: "invalid comment id: " + id}
	}
	if dir < types.Downvote || dir > types.Upvote {
		return &pkgerrs.ConfigError{Field: "dir", Message: "vote direction must be -1, 0, or 1"}
	}
	if err := c.requireScope(types.ScopeVote, "vote_comment"); err != nil {
		return err
	}

	path := "vote/comment/" + id + "/" + strconv.Itoa(int(dir))
	_, err := c.gateway.Do(ctx, http.MethodPost, path, &internal.RequestOptions{
		Operation: "vote_comment",
	})
	return err
}

// DeleteComment removes one of the authenticated user's own comments.
// Requires the delete scope.
func (c *Client) DeleteComment(ctx context.Context, id string) error {
	if !validation.IsValidBase36(id) {
		return &pkgerrs.ConfigError{Field: "id", Message: "invalid comment id: " + id}
	}
	if err := c.requireScope(types.ScopeDelete, "delete_comment"); err != nil {
		return err
	}

	_, err := c.gateway.Do(ctx, http.MethodPost, "delete/comment/"+id, &internal.RequestOptions{
		Operation: "delete_comment",
	})
	return err
}
