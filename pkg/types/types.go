// Package types defines the public vocabulary of the Ruqqus API wrapper:
// resolved entity values, the scope set, and request option structs.
//
// Entities are tagged-union values rather than a class hierarchy. Every kind
// (User, Post, Comment, Guild) carries a Variant discriminant; the populated
// field set depends on the tag. Banned entities expose only their identity,
// permalink and ban reason, deleted entities only identity and permalink, and
// core entities carry the reduced field set the API embeds inside other
// payloads.
package types

// Variant discriminates the concrete shape of a resolved entity.
type Variant string

const (
	// VariantFull is the complete representation returned by a direct fetch.
	VariantFull Variant = "full"
	// VariantCore is the reduced representation embedded inside another
	// entity's payload.
	VariantCore Variant = "core"
	// VariantBanned is the stub returned for banned entities: id, permalink
	// and ban reason only.
	VariantBanned Variant = "banned"
	// VariantDeleted is the stub returned for deleted entities: id and
	// permalink only.
	VariantDeleted Variant = "deleted"
)

// Content pairs the raw text of a field with its rendered HTML.
type Content struct {
	Text string
	HTML string
}

// Votes holds the vote tallies of a submission.
type Votes struct {
	Score     int
	Upvotes   int
	Downvotes int
	// Voted is the session account's own vote: 1, 0 or -1.
	Voted int
}

// UserTitle is the decorative title displayed next to a username.
type UserTitle struct {
	Name  string
	ID    int
	Kind  int
	Color string
}

// UserStats holds a user's post and comment counters.
type UserStats struct {
	Posts      int
	PostRep    int
	Comments   int
	CommentRep int
}

// UserFlags holds a user's status flags.
type UserFlags struct {
	Banned  bool
	Private bool
	Premium bool
}

// Badge is a profile badge awarded to a user.
type Badge struct {
	Name        string
	Description string
	URL         string
	CreatedAt   int64
}

// User is a resolved Ruqqus account.
//
// Only the Variant, ID, Username and Link fields are populated for banned and
// deleted users, plus BanReason for banned ones.
type User struct {
	Variant  Variant
	ID       string
	FullID   string
	Username string
	Link     string
	FullLink string

	BanReason string

	Title     *UserTitle
	Bio       Content
	Stats     UserStats
	AvatarURL string
	BannerURL string
	CreatedAt int64
	Flags     UserFlags
	Badges    []Badge
}

// PostFlags holds a post's status flags.
type PostFlags struct {
	Archived bool
	Banned   bool
	Deleted  bool
	NSFW     bool
	NSFL     bool
	Edited   bool
	// Yanked reports that the post was moved out of its original guild.
	Yanked bool
}

// PostContent groups the user-authored parts of a post.
type PostContent struct {
	Title     string
	Body      Content
	Domain    string
	URL       string
	Thumbnail string
	Embed     string
}

// Post is a resolved Ruqqus post.
type Post struct {
	Variant  Variant
	ID       string
	FullID   string
	Link     string
	FullLink string

	BanReason string

	Content   PostContent
	Votes     Votes
	CreatedAt int64
	EditedAt  int64
	Flags     PostFlags

	// Author and Guild are core-variant references resolved from the
	// embedded payloads. OriginalGuild is non-nil only for yanked posts.
	Author        *User
	Guild         *Guild
	OriginalGuild *Guild
}

// EntityID returns the post's ID. Part of the Submission interface.
func (p *Post) EntityID() string { return p.ID }

// EntityKind returns "post". Part of the Submission interface.
func (p *Post) EntityKind() string { return "post" }

// CommentFlags holds a comment's status flags.
type CommentFlags struct {
	Archived  bool
	Banned    bool
	Deleted   bool
	NSFW      bool
	NSFL      bool
	Offensive bool
	Bot       bool
	Edited    bool
}

// Comment is a resolved Ruqqus comment.
//
// Full comments resolve their author, post, guild and parent references as
// core variants; core comments carry only the flat author name and parent ID
// the embedded payload provides.
type Comment struct {
	Variant  Variant
	ID       string
	FullID   string
	Link     string
	FullLink string

	BanReason string

	Body       Content
	Votes      Votes
	CreatedAt  int64
	EditedAt   int64
	ChainLevel int
	Awards     int
	Flags      CommentFlags

	Author     *User
	AuthorName string
	Post       *Post
	Guild      *Guild
	Parent     *Comment
	ParentID   string
}

// EntityID returns the comment's ID. Part of the Submission interface.
func (c *Comment) EntityID() string { return c.ID }

// EntityKind returns "comment". Part of the Submission interface.
func (c *Comment) EntityKind() string { return "comment" }

// GuildFlags holds a guild's status flags.
type GuildFlags struct {
	Banned         bool
	Private        bool
	Restricted     bool
	AgeRestricted  bool
	SiegeProtected bool
}

// Guild is a resolved Ruqqus guild (community).
type Guild struct {
	Variant  Variant
	ID       string
	FullID   string
	Name     string
	Link     string
	FullLink string

	BanReason string

	Description Content
	Color       string
	Subscribers int
	IconURL     string
	BannerURL   string
	CreatedAt   int64
	Flags       GuildFlags

	// Guildmasters is populated only on the full variant.
	Guildmasters []*User
}

// Submission is a post or a comment: the two entity kinds subject to the
// polling and notification mechanism.
type Submission interface {
	EntityID() string
	EntityKind() string
}

// Scope names recognized by the Ruqqus OAuth authorization endpoint.
const (
	ScopeIdentity    = "identity"
	ScopeCreate      = "create"
	ScopeRead        = "read"
	ScopeUpdate      = "update"
	ScopeDelete      = "delete"
	ScopeVote        = "vote"
	ScopeGuildmaster = "guildmaster"
)

// AllScopes lists every capability the API can grant, in canonical order.
var AllScopes = []string{
	ScopeIdentity,
	ScopeCreate,
	ScopeRead,
	ScopeUpdate,
	ScopeDelete,
	ScopeVote,
	ScopeGuildmaster,
}

// ScopeSet records which capabilities the account owner granted the
// application. It is populated once, after the first successful grant, and is
// immutable for the life of the session.
type ScopeSet struct {
	Identity    bool
	Create      bool
	Read        bool
	Update      bool
	Delete      bool
	Vote        bool
	Guildmaster bool
}

// ParseScopeSet builds a ScopeSet from the comma-separated scope string the
// grant response carries. Unknown names are ignored.
func ParseScopeSet(s string) ScopeSet {
	var set ScopeSet
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			set.grant(s[start:i])
			start = i + 1
		}
	}
	return set
}

func (s *ScopeSet) grant(name string) {
	switch name {
	case ScopeIdentity:
		s.Identity = true
	case ScopeCreate:
		s.Create = true
	case ScopeRead:
		s.Read = true
	case ScopeUpdate:
		s.Update = true
	case ScopeDelete:
		s.Delete = true
	case ScopeVote:
		s.Vote = true
	case ScopeGuildmaster:
		s.Guildmaster = true
	}
}

// Has reports whether the named capability was granted.
func (s ScopeSet) Has(name string) bool {
	switch name {
	case ScopeIdentity:
		return s.Identity
	case ScopeCreate:
		return s.Create
	case ScopeRead:
		return s.Read
	case ScopeUpdate:
		return s.Update
	case ScopeDelete:
		return s.Delete
	case ScopeVote:
		return s.Vote
	case ScopeGuildmaster:
		return s.Guildmaster
	default:
		return false
	}
}

// Granted returns the granted capability names in canonical order.
func (s ScopeSet) Granted() []string {
	granted := make([]string, 0, len(AllScopes))
	for _, name := range AllScopes {
		if s.Has(name) {
			granted = append(granted, name)
		}
	}
	return granted
}

// ListingOptions controls guild and user listing requests.
type ListingOptions struct {
	// Sort selects the post sorting method. Defaults to "new".
	Sort string

	// Page is the 1-based page index. Defaults to 1.
	Page int

	// Filter is the time filter applied by the server. Defaults to "all".
	Filter string

	// UTCGreaterThan and UTCLessThan bound the listing to a UTC timeframe.
	// Zero means unbounded.
	UTCGreaterThan int64
	UTCLessThan    int64

	// Limit truncates the returned page client-side. 0 returns the whole page.
	Limit int
}

// SubmitPostRequest describes a post submission to a guild.
type SubmitPostRequest struct {
	// Title is required.
	Title string

	// At least one of Body and URL is required.
	Body string
	URL  string

	NSFW bool
}

// VoteDirection is the vote cast on a submission: 1, 0 (retract) or -1.
type VoteDirection int

const (
	Upvote   VoteDirection = 1
	NoVote   VoteDirection = 0
	Downvote VoteDirection = -1
)

// Fullname prefixes. A fullname is a type prefix joined to a base 36 ID,
// e.g. "t2_2qh0" for a post.
const (
	KindUser    = "t1"
	KindPost    = "t2"
	KindComment = "t3"
	KindGuild   = "t4"
)

// FullnameUser returns the fullname for a user ID.
func FullnameUser(id string) string { return KindUser + "_" + id }

// FullnamePost returns the fullname for a post ID.
func FullnamePost(id string) string { return KindPost + "_" + id }

// FullnameComment returns the fullname for a comment ID.
func FullnameComment(id string) string { return KindComment + "_" + id }

// FullnameGuild returns the fullname for a guild ID.
func FullnameGuild(id string) string { return KindGuild + "_" + id }
