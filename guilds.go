package ruqqus

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/ruqqus-community/go-ruqqus/internal"
	pkgerrs "github.com/ruqqus-community/go-ruqqus/pkg/errors"
	"github.com/ruqqus-community/go-ruqqus/pkg/types"
	"github.com/ruqqus-community/go-ruqqus/pkg/validation"
)

// GetGuild fetches a guild by name. Requires the read scope.
//
// Returns nil without error when the API responds with a payload that
// carries no guild, matching the behavior of the other fetch operations.
func (c *Client) GetGuild(ctx context.Context, name string) (*types.Guild, error) {
	if !validation.IsValidGuildName(name) {
		return nil, &pkgerrs.ConfigError{Field: "name", Message: "invalid guild name: " + name}
	}
	if err := c.requireScope(types.ScopeRead, "get_guild"); err != nil {
		return nil, err
	}

	var payload types.GuildPayload
	err := c.gateway.DoJSON(ctx, http.MethodGet, "guild/"+name, &internal.RequestOptions{
		Operation: "get_guild",
	}, &payload)
	if err != nil {
		return nil, err
	}
	return c.resolver.ResolveGuild(&payload, types.VariantFull), nil
}

// GuildAvailable reports whether a guild name is free to be claimed. This is
// a public endpoint and needs no scope, only an online session.
func (c *Client) GuildAvailable(ctx context.Context, name string) (bool, error) {
	if !validation.IsValidGuildName(name) {
		return false, &pkgerrs.ConfigError{Field: "name", Message: "invalid guild name: " + name}
	}
	if !c.IsOnline() {
		return false, &pkgerrs.StateError{Operation: "guild_available", Message: "session is not online"}
	}

	var resp struct {
		Available bool `json:"available"`
	}
	err := c.gateway.DoJSON(ctx, http.MethodGet, "board_available/"+name, &internal.RequestOptions{
		Operation: "guild_available",
	}, &resp)
	if err != nil {
		return false, err
	}
	return resp.Available, nil
}

// GetGuildPosts fetches one page of a guild's post listing. Requires the
// read scope. Fetched posts are fed into the post cache so the poll engine
// will not re-announce them.
func (c *Client) GetGuildPosts(ctx context.Context, name string, opts *types.ListingOptions) ([]*types.Post, error) {
	if !validation.IsValidGuildName(name) {
		return nil, &pkgerrs.ConfigError{Field: "name", Message: "invalid guild name: " + name}
	}
	if err := c.requireScope(types.ScopeRead, "get_guild_posts"); err != nil {
		return nil, err
	}

	posts, err := c.fetchPostListing(ctx, "guild/"+name+"/listing", listingQuery(opts, true), optLimit(opts), "get_guild_posts")
	if err != nil {
		return nil, err
	}
	for _, post := range posts {
		c.poller.PostCache().Upsert(post)
	}
	return posts, nil
}

// GetGuildComments fetches one page of a guild's comment listing. Requires
// the read scope.
func (c *Client) GetGuildComments(ctx context.Context, name string, opts *types.ListingOptions) ([]*types.Comment, error) {
	if !validation.IsValidGuildName(name) {
		return nil, &pkgerrs.ConfigError{Field: "name", Message: "invalid guild name: " + name}
	}
	if err := c.requireScope(types.ScopeRead, "get_guild_comments"); err != nil {
		return nil, err
	}

	comments, err := c.fetchCommentListing(ctx, "guild/"+name+"/comments", listingQuery(opts, false), optLimit(opts), "get_guild_comments")
	if err != nil {
		return nil, err
	}
	for _, comment := range comments {
		c.poller.CommentCache().Upsert(comment)
	}
	return comments, nil
}

// SubmitPost creates a new post in a guild. Requires the create scope.
// Title is mandatory; body and link are each optional but at least one
// should be present for a meaningful post.
//
// When the guild rejects the submission the API silently lands the post in
// the general guild instead; that outcome is logged as a warning rather
// than surfaced as an error because the post was still created.
func (c *Client) SubmitPost(ctx context.Context, guild string, req *types.SubmitPostRequest) error {
	if !validation.IsValidGuildName(guild) {
		return &pkgerrs.ConfigError{Field: "guild", Message: "invalid guild name: " + guild}
	}
	if req == nil || !validation.HasContent(req.Title) {
		return &pkgerrs.ConfigError{Field: "title", Message: "post title must not be empty"}
	}
	if err := c.requireScope(types.ScopeCreate, "submit_post"); err != nil {
		return err
	}

	form := url.Values{}
	form.Set("board", guild)
	form.Set("title", req.Title)
	form.Set("body", req.Body)
	form.Set("url", req.URL)
	if req.NSFW {
		form.Set("nsfw", "true")
	}

	var resp struct {
		GuildName string `json:"guild_name"`
	}
	err := c.gateway.DoJSON(ctx, http.MethodPost, "submit", &internal.RequestOptions{
		Form:      form,
		Operation: "submit_post",
	}, &resp)
	if err != nil {
		return err
	}

	if resp.GuildName != "" && resp.GuildName != guild {
		c.logWarn("post landed in a different guild",
			slog.String("requested", guild),
			slog.String("actual", resp.GuildName))
	}
	return nil
}
