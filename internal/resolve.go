package internal

import (
	"strings"

	"github.com/ruqqus-community/go-ruqqus/pkg/types"
)

// Resolver materializes resolved entity values from raw API payloads.
//
// The variant-selection rule is identical for every kind: a banned payload
// resolves to the banned stub regardless of its other flags (the API can mark
// an account both banned and deleted, and banned wins so the ban reason stays
// meaningful), a deleted payload resolves to the deleted stub, and everything
// else resolves to the flavor the caller asked for: full for direct fetch
// targets, core for embedded references.
//
// A payload without an id resolves to nil. That is the "no entity" sentinel,
// not an error; it is how callers distinguish "the API returned nothing for
// this ID" from a genuine failure.
type Resolver struct {
	siteURL string
}

// NewResolver returns a resolver that builds full links against siteURL.
func NewResolver(siteURL string) *Resolver {
	return &Resolver{siteURL: strings.TrimSuffix(siteURL, "/")}
}

func (r *Resolver) fullLink(permalink string) string {
	if permalink == "" {
		return ""
	}
	return r.siteURL + permalink
}

// assetURL absolutizes the relative /assets paths the API uses for default
// avatars and banners.
func (r *Resolver) assetURL(u string) string {
	if strings.HasPrefix(u, "/assets") {
		return r.siteURL + u
	}
	return u
}

// ResolveUser resolves a user payload. flavor selects the full or core field
// set for payloads that are neither banned nor deleted.
func (r *Resolver) ResolveUser(p *types.UserPayload, flavor types.Variant) *types.User {
	if p == nil || p.ID == "" {
		return nil
	}

	u := &types.User{
		ID:       p.ID,
		Username: p.Username,
		Link:     p.Permalink,
		FullLink: r.fullLink(p.Permalink),
	}

	switch {
	case p.IsBanned:
		u.Variant = types.VariantBanned
		u.BanReason = p.BanReason
		return u
	case p.IsDeleted:
		u.Variant = types.VariantDeleted
		return u
	}

	u.Variant = flavor
	u.FullID = "t1_" + p.ID
	u.Title = resolveTitle(p.Title)
	u.Bio = types.Content{Text: p.Bio, HTML: p.BioHTML}
	u.AvatarURL = r.assetURL(p.ProfileURL)
	u.BannerURL = r.assetURL(p.BannerURL)
	u.CreatedAt = p.CreatedUTC
	u.Flags = types.UserFlags{
		Banned:  p.IsBanned,
		Private: p.IsPrivate,
		Premium: p.IsPremium,
	}
	u.Stats = types.UserStats{
		Posts:    p.PostCount,
		Comments: p.CommentCount,
	}

	if flavor == types.VariantFull {
		u.Stats.PostRep = p.PostRep
		u.Stats.CommentRep = p.CommentRep
		for _, b := range p.Badges {
			if b.Name == "" {
				continue
			}
			u.Badges = append(u.Badges, types.Badge{
				Name:        b.Name,
				Description: b.Text,
				URL:         b.URL,
				CreatedAt:   b.CreatedUTC,
			})
		}
	}

	return u
}

// ResolvePost resolves a post payload. Nested author and guild references are
// resolved recursively as core variants; core posts leave them nil.
func (r *Resolver) ResolvePost(p *types.PostPayload, flavor types.Variant) *types.Post {
	if p == nil || p.ID == "" {
		return nil
	}

	post := &types.Post{
		ID:       p.ID,
		Link:     p.Permalink,
		FullLink: r.fullLink(p.Permalink),
	}

	switch {
	case p.IsBanned:
		post.Variant = types.VariantBanned
		post.BanReason = p.BanReason
		return post
	case p.IsDeleted:
		post.Variant = types.VariantDeleted
		return post
	}

	post.Variant = flavor
	post.FullID = p.Fullname
	post.Content = types.PostContent{
		Title:     p.Title,
		Body:      types.Content{Text: p.Body, HTML: p.BodyHTML},
		Domain:    p.Domain,
		URL:       p.URL,
		Thumbnail: p.ThumbURL,
		Embed:     p.EmbedURL,
	}
	post.Votes = types.Votes{
		Score:     p.Score,
		Upvotes:   p.Upvotes,
		Downvotes: p.Downvotes,
		Voted:     p.Voted,
	}
	post.CreatedAt = p.CreatedUTC
	post.EditedAt = p.EditedUTC
	post.Flags = types.PostFlags{
		Archived: p.IsArchived,
		Banned:   p.IsBanned,
		Deleted:  p.IsDeleted,
		NSFW:     p.IsNSFW,
		NSFL:     p.IsNSFL,
		Edited:   p.EditedUTC > 0,
		Yanked:   p.OriginalGuild != nil,
	}

	if flavor == types.VariantFull {
		post.Author = r.ResolveUser(p.Author, types.VariantCore)
		post.Guild = r.ResolveGuild(p.Guild, types.VariantCore)
		post.OriginalGuild = r.ResolveGuild(p.OriginalGuild, types.VariantCore)
	}

	return post
}

// ResolveComment resolves a comment payload. Full comments resolve their
// author, post, guild and parent references as core variants; core comments
// keep the flat author_name and parent_comment_id fields instead.
func (r *Resolver) ResolveComment(p *types.CommentPayload, flavor types.Variant) *types.Comment {
	if p == nil || p.ID == "" {
		return nil
	}

	c := &types.Comment{
		ID:       p.ID,
		Link:     p.Permalink,
		FullLink: r.fullLink(p.Permalink),
	}

	switch {
	case p.IsBanned:
		c.Variant = types.VariantBanned
		c.BanReason = p.BanReason
		return c
	case p.IsDeleted:
		c.Variant = types.VariantDeleted
		return c
	}

	c.Variant = flavor
	c.FullID = p.Fullname
	c.Body = types.Content{Text: p.Body, HTML: p.BodyHTML}
	c.Votes = types.Votes{
		Score:     p.Score,
		Upvotes:   p.Upvotes,
		Downvotes: p.Downvotes,
	}
	c.CreatedAt = p.CreatedUTC
	c.EditedAt = p.EditedUTC
	c.ChainLevel = p.Level
	c.Awards = p.AwardCount
	c.Flags = types.CommentFlags{
		Archived:  p.IsArchived,
		Banned:    p.IsBanned,
		Deleted:   p.IsDeleted,
		NSFW:      p.IsNSFW,
		NSFL:      p.IsNSFL,
		Offensive: p.IsOffensive,
		Bot:       p.IsBot,
		Edited:    p.EditedUTC > 0,
	}
	c.AuthorName = p.AuthorName
	c.ParentID = p.ParentCommentID

	if flavor == types.VariantFull {
		c.Author = r.ResolveUser(p.Author, types.VariantCore)
		c.Post = r.ResolvePost(p.Post, types.VariantCore)
		c.Guild = r.ResolveGuild(p.Guild, types.VariantCore)
		c.Parent = r.ResolveComment(p.Parent, types.VariantCore)
	}

	return c
}

// ResolveGuild resolves a guild payload. Guildmasters are populated on the
// full variant only, as core users.
func (r *Resolver) ResolveGuild(p *types.GuildPayload, flavor types.Variant) *types.Guild {
	if p == nil || p.ID == "" {
		return nil
	}

	g := &types.Guild{
		ID:       p.ID,
		Name:     p.Name,
		Link:     p.Permalink,
		FullLink: r.fullLink(p.Permalink),
	}

	switch {
	case p.IsBanned:
		g.Variant = types.VariantBanned
		g.BanReason = p.BanReason
		return g
	case p.IsDeleted:
		g.Variant = types.VariantDeleted
		return g
	}

	g.Variant = flavor
	g.FullID = p.Fullname
	g.Description = types.Content{Text: p.Description, HTML: p.DescriptionHTML}
	g.Color = p.Color
	g.IconURL = r.assetURL(p.ProfileURL)
	g.BannerURL = r.assetURL(p.BannerURL)
	g.CreatedAt = p.CreatedUTC
	g.Flags = types.GuildFlags{
		Banned:         p.IsBanned,
		Private:        p.IsPrivate,
		Restricted:     p.IsRestricted,
		AgeRestricted:  p.Over18,
		SiegeProtected: p.IsSiegeProtected,
	}

	if flavor == types.VariantFull {
		g.Subscribers = p.SubscriberCount
		for i := range p.Guildmasters {
			if gm := r.ResolveUser(&p.Guildmasters[i], types.VariantCore); gm != nil {
				g.Guildmasters = append(g.Guildmasters, gm)
			}
		}
	}

	return g
}

// resolveTitle normalizes a title payload. The API prefixes some title texts
// with ", "; the prefix is stripped.
func resolveTitle(p *types.TitlePayload) *types.UserTitle {
	if p == nil {
		return nil
	}

	name := p.Text
	if strings.HasPrefix(name, ",") {
		if i := strings.Index(name, ", "); i >= 0 {
			name = name[i+2:]
		}
	}

	return &types.UserTitle{
		Name:  name,
		ID:    p.ID,
		Kind:  p.Kind,
		Color: p.Color,
	}
}
