package types

import json "github.com/goccy/go-json"

// The payload structs mirror the raw JSON shapes the Ruqqus API returns.
// They are decoded by the gateway and turned into resolved entities by the
// resolver; callers normally never see them.

// UserPayload is the raw shape of a user object.
type UserPayload struct {
	ID           string         `json:"id"`
	Username     string         `json:"username"`
	Permalink    string         `json:"permalink"`
	IsBanned     bool           `json:"is_banned"`
	IsDeleted    bool           `json:"is_deleted"`
	BanReason    string         `json:"ban_reason"`
	Title        *TitlePayload  `json:"title"`
	Bio          string         `json:"bio"`
	BioHTML      string         `json:"bio_html"`
	PostCount    int            `json:"post_count"`
	PostRep      int            `json:"post_rep"`
	CommentCount int            `json:"comment_count"`
	CommentRep   int            `json:"comment_rep"`
	ProfileURL   string         `json:"profile_url"`
	BannerURL    string         `json:"banner_url"`
	CreatedUTC   int64          `json:"created_utc"`
	IsPrivate    bool           `json:"is_private"`
	IsPremium    bool           `json:"is_premium"`
	Badges       []BadgePayload `json:"badges"`
}

// TitlePayload is the raw shape of a user title.
type TitlePayload struct {
	Text  string `json:"text"`
	ID    int    `json:"id"`
	Kind  int    `json:"kind"`
	Color string `json:"color"`
}

// BadgePayload is the raw shape of a profile badge.
type BadgePayload struct {
	Name       string `json:"name"`
	Text       string `json:"text"`
	URL        string `json:"url"`
	CreatedUTC int64  `json:"created_utc"`
}

// PostPayload is the raw shape of a post object.
type PostPayload struct {
	ID        string `json:"id"`
	Fullname  string `json:"fullname"`
	Permalink string `json:"permalink"`
	IsBanned  bool   `json:"is_banned"`
	IsDeleted bool   `json:"is_deleted"`
	BanReason string `json:"ban_reason"`

	Title    string `json:"title"`
	Body     string `json:"body"`
	BodyHTML string `json:"body_html"`
	Domain   string `json:"domain"`
	URL      string `json:"url"`
	ThumbURL string `json:"thumb_url"`
	EmbedURL string `json:"embed_url"`

	Score     int `json:"score"`
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
	Voted     int `json:"voted"`

	CreatedUTC int64 `json:"created_utc"`
	EditedUTC  int64 `json:"edited_utc"`

	IsArchived bool `json:"is_archived"`
	IsNSFW     bool `json:"is_nsfw"`
	IsNSFL     bool `json:"is_nsfl"`

	Author        *UserPayload  `json:"author"`
	Guild         *GuildPayload `json:"guild"`
	OriginalGuild *GuildPayload `json:"original_guild"`
}

// CommentPayload is the raw shape of a comment object. Embedded parent
// comments reuse the same shape with a reduced field set.
type CommentPayload struct {
	ID        string `json:"id"`
	Fullname  string `json:"fullname"`
	Permalink string `json:"permalink"`
	IsBanned  bool   `json:"is_banned"`
	IsDeleted bool   `json:"is_deleted"`
	BanReason string `json:"ban_reason"`

	Body     string `json:"body"`
	BodyHTML string `json:"body_html"`

	Score     int `json:"score"`
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`

	CreatedUTC int64 `json:"created_utc"`
	EditedUTC  int64 `json:"edited_utc"`
	Level      int   `json:"level"`
	AwardCount int   `json:"award_count"`

	IsArchived  bool `json:"is_archived"`
	IsNSFW      bool `json:"is_nsfw"`
	IsNSFL      bool `json:"is_nsfl"`
	IsOffensive bool `json:"is_offensive"`
	IsBot       bool `json:"is_bot"`

	// AuthorName and ParentCommentID replace the nested references on
	// embedded (core) comment payloads.
	AuthorName      string `json:"author_name"`
	ParentCommentID string `json:"parent_comment_id"`

	Author *UserPayload    `json:"author"`
	Post   *PostPayload    `json:"post"`
	Guild  *GuildPayload   `json:"guild"`
	Parent *CommentPayload `json:"parent"`
}

// GuildPayload is the raw shape of a guild object.
type GuildPayload struct {
	ID        string `json:"id"`
	Fullname  string `json:"fullname"`
	Name      string `json:"name"`
	Permalink string `json:"permalink"`
	IsBanned  bool   `json:"is_banned"`
	IsDeleted bool   `json:"is_deleted"`
	BanReason string `json:"ban_reason"`

	Description     string `json:"description"`
	DescriptionHTML string `json:"description_html"`
	Color           string `json:"color"`
	SubscriberCount int    `json:"subscriber_count"`
	ProfileURL      string `json:"profile_url"`
	BannerURL       string `json:"banner_url"`
	CreatedUTC      int64  `json:"created_utc"`

	IsPrivate        bool `json:"is_private"`
	IsRestricted     bool `json:"is_restricted"`
	Over18           bool `json:"over_18"`
	IsSiegeProtected bool `json:"is_siege_protected"`

	Guildmasters []UserPayload `json:"guildmasters"`
}

// ListingPayload is the envelope of a paginated listing endpoint. Children
// are kept raw; the caller decodes them with the kind it expects.
type ListingPayload struct {
	Error string            `json:"error"`
	Data  []json.RawMessage `json:"data"`
}

// GrantResponse is the body of a successful POST oauth/grant exchange.
// OAuthError is set instead when the grant was rejected.
type GrantResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	Scopes       string `json:"scopes"`
	OAuthError   string `json:"oauth_error"`
}
