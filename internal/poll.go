package internal

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/ruqqus-community/go-ruqqus/pkg/types"
)

const (
	postFeedPath    = "all/listing"
	commentFeedPath = "front/comments"

	// DefaultPollInterval is the fixed delay between poll ticks.
	DefaultPollInterval = 10 * time.Second
)

// PollEngineConfig wires the poll engine to its collaborators.
type PollEngineConfig struct {
	Gateway  *Gateway
	Resolver *Resolver

	// Interval defaults to DefaultPollInterval if zero.
	Interval time.Duration

	// Ready gates polling on the session being online with the read scope.
	Ready func() bool

	// PostListeners and CommentListeners report how many consumers are
	// registered for each notification category. A feed with no listeners
	// is not fetched.
	PostListeners    func() int
	CommentListeners func() int

	// EmitPost and EmitComment deliver one notification per previously
	// unseen item, in feed order.
	EmitPost    func(*types.Post)
	EmitComment func(*types.Comment)

	Logger *slog.Logger
}

// PollEngine turns the two global newest-first listing feeds into discrete
// post and comment notifications, at most one per item ever.
//
// Scheduling is fixed-delay: the next tick is armed only after the current
// tick's fetches complete, so a slow request never causes overlapping
// in-flight polls. A failed fetch for one feed is swallowed for that tick and
// affects neither the other feed nor future scheduling.
type PollEngine struct {
	cfg PollEngineConfig

	posts    *SubmissionCache
	comments *SubmissionCache

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPollEngine returns a stopped engine with empty caches.
func NewPollEngine(cfg PollEngineConfig) *PollEngine {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}

	return &PollEngine{
		cfg:      cfg,
		posts:    NewSubmissionCache(),
		comments: NewSubmissionCache(),
	}
}

// PostCache exposes the post feed's submission cache for inspection.
func (e *PollEngine) PostCache() *SubmissionCache { return e.posts }

// CommentCache exposes the comment feed's submission cache for inspection.
func (e *PollEngine) CommentCache() *SubmissionCache { return e.comments }

// Start launches the poll loop. Calling Start on a running engine is a no-op.
func (e *PollEngine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.loop(loopCtx, e.done)
}

// Stop cancels the poll loop and waits for the in-flight tick, if any, to
// finish. Safe to call more than once.
func (e *PollEngine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	done := e.done
	e.cancel = nil
	e.done = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (e *PollEngine) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(e.cfg.Interval)
	defer timer.Stop()

	for {
		e.Tick(ctx)

		timer.Reset(e.cfg.Interval)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

// Tick runs one poll cycle over both feeds. A feed is skipped unless the
// session is ready and it has at least one listener; a skipped feed's
// generation counter does not advance.
func (e *PollEngine) Tick(ctx context.Context) {
	if e.cfg.Ready != nil && !e.cfg.Ready() {
		return
	}

	if e.cfg.PostListeners == nil || e.cfg.PostListeners() > 0 {
		e.pollPosts(ctx)
	}
	if e.cfg.CommentListeners == nil || e.cfg.CommentListeners() > 0 {
		e.pollComments(ctx)
	}
}

// fetchFeed retrieves page 1 of a newest-first feed and returns the raw
// children. A nil slice with ok=false means the fetch failed and the tick
// should leave the feed's cache untouched.
func (e *PollEngine) fetchFeed(ctx context.Context, path, operation string) ([]json.RawMessage, bool) {
	body, err := e.cfg.Gateway.Do(ctx, http.MethodGet, path, &RequestOptions{
		Query:     url.Values{"sort": {"new"}},
		Operation: operation,
	})
	if err != nil {
		if e.cfg.Logger != nil {
			e.cfg.Logger.Warn("poll fetch failed", "feed", path, "error", err)
		}
		return nil, false
	}

	var listing types.ListingPayload
	if err := json.Unmarshal(body, &listing); err != nil {
		if e.cfg.Logger != nil {
			e.cfg.Logger.Warn("poll decode failed", "feed", path, "error", err)
		}
		return nil, false
	}
	if listing.Error != "" {
		if e.cfg.Logger != nil {
			e.cfg.Logger.Warn("poll feed error", "feed", path, "error", listing.Error)
		}
		return nil, false
	}

	return listing.Data, true
}

func (e *PollEngine) pollPosts(ctx context.Context) {
	children, ok := e.fetchFeed(ctx, postFeedPath, "poll posts")
	if !ok {
		return
	}

	resolved := make([]types.Submission, 0, len(children))
	seen := make(map[string]struct{}, len(children))
	var unseen []*types.Post
	for _, raw := range children {
		var payload types.PostPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			continue
		}
		post := e.cfg.Resolver.ResolvePost(&payload, types.VariantFull)
		if post == nil {
			continue
		}
		resolved = append(resolved, post)
		// A feed page can repeat an id; the second occurrence must not
		// produce a second notification.
		if _, dup := seen[post.ID]; dup {
			continue
		}
		seen[post.ID] = struct{}{}
		if !e.posts.Contains(post.ID) {
			unseen = append(unseen, post)
		}
	}

	// The first tick only establishes the baseline.
	if e.posts.Generation() > 0 && e.cfg.EmitPost != nil {
		for _, post := range unseen {
			e.cfg.EmitPost(post)
		}
	}

	e.posts.UpsertMany(resolved)
	e.posts.AdvanceGeneration()
}

func (e *PollEngine) pollComments(ctx context.Context) {
	children, ok := e.fetchFeed(ctx, commentFeedPath, "poll comments")
	if !ok {
		return
	}

	resolved := make([]types.Submission, 0, len(children))
	seen := make(map[string]struct{}, len(children))
	var unseen []*types.Comment
	for _, raw := range children {
		var payload types.CommentPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			continue
		}
		comment := e.cfg.Resolver.ResolveComment(&payload, types.VariantFull)
		if comment == nil {
			continue
		}
		resolved = append(resolved, comment)
		if _, dup := seen[comment.ID]; dup {
			continue
		}
		seen[comment.ID] = struct{}{}
		if !e.comments.Contains(comment.ID) {
			unseen = append(unseen, comment)
		}
	}

	if e.comments.Generation() > 0 && e.cfg.EmitComment != nil {
		for _, comment := range unseen {
			e.cfg.EmitComment(comment)
		}
	}

	e.comments.UpsertMany(resolved)
	e.comments.AdvanceGeneration()
}
