package internal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ruqqus-community/go-ruqqus/pkg/types"
)

// feedServer serves the two poll feeds with mutable contents.
type feedServer struct {
	mu           sync.Mutex
	postIDs      []string
	commentIDs   []string
	postsFail    bool
	commentsFail bool

	postRequests    atomic.Int32
	commentRequests atomic.Int32

	server *httptest.Server
}

func newFeedServer(t *testing.T) *feedServer {
	t.Helper()
	fs := &feedServer{}
	fs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		defer fs.mu.Unlock()

		switch r.URL.Path {
		case "/api/v1/all/listing":
			fs.postRequests.Add(1)
			if fs.postsFail {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			children := make([]string, len(fs.postIDs))
			for i, id := range fs.postIDs {
				children[i] = fmt.Sprintf(`{"id": %q, "title": "post %s"}`, id, id)
			}
			fmt.Fprintf(w, `{"data": [%s]}`, strings.Join(children, ","))
		case "/api/v1/front/comments":
			fs.commentRequests.Add(1)
			if fs.commentsFail {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			children := make([]string, len(fs.commentIDs))
			for i, id := range fs.commentIDs {
				children[i] = fmt.Sprintf(`{"id": %q, "body": "comment %s"}`, id, id)
			}
			fmt.Fprintf(w, `{"data": [%s]}`, strings.Join(children, ","))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(fs.server.Close)
	return fs
}

func (fs *feedServer) setPosts(ids ...string) {
	fs.mu.Lock()
	fs.postIDs = ids
	fs.mu.Unlock()
}

func (fs *feedServer) setComments(ids ...string) {
	fs.mu.Lock()
	fs.commentIDs = ids
	fs.mu.Unlock()
}

func (fs *feedServer) failPosts(fail bool) {
	fs.mu.Lock()
	fs.postsFail = fail
	fs.mu.Unlock()
}

type pollRecorder struct {
	mu       sync.Mutex
	posts    []string
	comments []string
}

func (r *pollRecorder) post(p *types.Post) {
	r.mu.Lock()
	r.posts = append(r.posts, p.ID)
	r.mu.Unlock()
}

func (r *pollRecorder) comment(c *types.Comment) {
	r.mu.Lock()
	r.comments = append(r.comments, c.ID)
	r.mu.Unlock()
}

func (r *pollRecorder) postIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.posts...)
}

func (r *pollRecorder) commentIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.comments...)
}

func newTestPollEngine(t *testing.T, fs *feedServer, rec *pollRecorder) *PollEngine {
	t.Helper()
	gw, err := NewGateway(fs.server.Client(), fs.server.URL+"/api/v1/", "test-agent", "go-ruqqus", nil, nil, nil)
	if err != nil {
		t.Fatalf("NewGateway() error = %v", err)
	}

	return NewPollEngine(PollEngineConfig{
		Gateway:     gw,
		Resolver:    NewResolver("https://ruqqus.com"),
		EmitPost:    rec.post,
		EmitComment: rec.comment,
	})
}

func equalIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestPollEngine_FirstTickEstablishesBaseline(t *testing.T) {
	fs := newFeedServer(t)
	fs.setPosts("p1", "p2")
	fs.setComments("c1")
	rec := &pollRecorder{}
	engine := newTestPollEngine(t, fs, rec)

	engine.Tick(context.Background())

	if got := rec.postIDs(); len(got) != 0 {
		t.Errorf("first tick emitted posts %v, want none", got)
	}
	if got := rec.commentIDs(); len(got) != 0 {
		t.Errorf("first tick emitted comments %v, want none", got)
	}
	if engine.PostCache().Generation() != 1 {
		t.Errorf("post generation = %d after first tick, want 1", engine.PostCache().Generation())
	}
	if !engine.PostCache().Contains("p1") || !engine.PostCache().Contains("p2") {
		t.Error("first tick should cache the baseline items")
	}
	if !engine.CommentCache().Contains("c1") {
		t.Error("first tick should cache baseline comments")
	}
}

func TestPollEngine_SecondTickEmitsOnlyUnseen(t *testing.T) {
	fs := newFeedServer(t)
	fs.setPosts("p1", "p2")
	fs.setComments("c1")
	rec := &pollRecorder{}
	engine := newTestPollEngine(t, fs, rec)

	engine.Tick(context.Background())

	fs.setPosts("p3", "p1", "p2")
	fs.setComments("c2", "c1")
	engine.Tick(context.Background())

	if got := rec.postIDs(); !equalIDs(got, []string{"p3"}) {
		t.Errorf("second tick emitted posts %v, want [p3]", got)
	}
	if got := rec.commentIDs(); !equalIDs(got, []string{"c2"}) {
		t.Errorf("second tick emitted comments %v, want [c2]", got)
	}
}

func TestPollEngine_AtMostOncePerSubmission(t *testing.T) {
	fs := newFeedServer(t)
	fs.setPosts("p1")
	rec := &pollRecorder{}
	engine := newTestPollEngine(t, fs, rec)

	engine.Tick(context.Background())
	fs.setPosts("p2", "p1")
	engine.Tick(context.Background())
	engine.Tick(context.Background())
	engine.Tick(context.Background())

	if got := rec.postIDs(); !equalIDs(got, []string{"p2"}) {
		t.Errorf("emitted posts %v across repeated ticks, want [p2] exactly once", got)
	}
}

func TestPollEngine_DuplicateIDWithinPageEmitsOnce(t *testing.T) {
	fs := newFeedServer(t)
	fs.setPosts("p1")
	fs.setComments("c1")
	rec := &pollRecorder{}
	engine := newTestPollEngine(t, fs, rec)

	engine.Tick(context.Background())

	fs.setPosts("p2", "p2", "p1")
	fs.setComments("c2", "c2")
	engine.Tick(context.Background())

	if got := rec.postIDs(); !equalIDs(got, []string{"p2"}) {
		t.Errorf("emitted posts %v for a page repeating p2, want [p2] exactly once", got)
	}
	if got := rec.commentIDs(); !equalIDs(got, []string{"c2"}) {
		t.Errorf("emitted comments %v for a page repeating c2, want [c2] exactly once", got)
	}
}

func TestPollEngine_EmitsInFeedOrder(t *testing.T) {
	fs := newFeedServer(t)
	fs.setPosts("p1")
	rec := &pollRecorder{}
	engine := newTestPollEngine(t, fs, rec)

	engine.Tick(context.Background())
	fs.setPosts("p4", "p3", "p2", "p1")
	engine.Tick(context.Background())

	if got := rec.postIDs(); !equalIDs(got, []string{"p4", "p3", "p2"}) {
		t.Errorf("emitted posts %v, want feed order [p4 p3 p2]", got)
	}
}

func TestPollEngine_FeedFailureIsIsolated(t *testing.T) {
	fs := newFeedServer(t)
	fs.setPosts("p1")
	fs.setComments("c1")
	rec := &pollRecorder{}
	engine := newTestPollEngine(t, fs, rec)

	engine.Tick(context.Background())

	// The posts feed fails; the comments feed keeps advancing.
	fs.failPosts(true)
	fs.setComments("c2", "c1")
	engine.Tick(context.Background())

	if engine.PostCache().Generation() != 1 {
		t.Errorf("post generation = %d after a failed fetch, want unchanged 1", engine.PostCache().Generation())
	}
	if engine.CommentCache().Generation() != 2 {
		t.Errorf("comment generation = %d, want 2", engine.CommentCache().Generation())
	}
	if got := rec.commentIDs(); !equalIDs(got, []string{"c2"}) {
		t.Errorf("emitted comments %v, want [c2]", got)
	}

	// Recovery: items that appeared during the outage are still new.
	fs.failPosts(false)
	fs.setPosts("p2", "p1")
	engine.Tick(context.Background())

	if got := rec.postIDs(); !equalIDs(got, []string{"p2"}) {
		t.Errorf("emitted posts %v after recovery, want [p2]", got)
	}
}

func TestPollEngine_ListingErrorSkipsTick(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "no posts found", "data": []}`))
	}))
	defer server.Close()

	gw, err := NewGateway(server.Client(), server.URL+"/api/v1/", "test-agent", "go-ruqqus", nil, nil, nil)
	if err != nil {
		t.Fatalf("NewGateway() error = %v", err)
	}
	engine := NewPollEngine(PollEngineConfig{
		Gateway:  gw,
		Resolver: NewResolver("https://ruqqus.com"),
	})

	engine.Tick(context.Background())

	if engine.PostCache().Generation() != 0 {
		t.Error("a feed-level error should not advance the generation")
	}
}

func TestPollEngine_ReadyGate(t *testing.T) {
	fs := newFeedServer(t)
	fs.setPosts("p1")
	rec := &pollRecorder{}

	gw, err := NewGateway(fs.server.Client(), fs.server.URL+"/api/v1/", "test-agent", "go-ruqqus", nil, nil, nil)
	if err != nil {
		t.Fatalf("NewGateway() error = %v", err)
	}

	var ready atomic.Bool
	engine := NewPollEngine(PollEngineConfig{
		Gateway:  gw,
		Resolver: NewResolver("https://ruqqus.com"),
		Ready:    ready.Load,
		EmitPost: rec.post,
	})

	engine.Tick(context.Background())
	if fs.postRequests.Load() != 0 {
		t.Error("a not-ready session must not generate feed traffic")
	}

	ready.Store(true)
	engine.Tick(context.Background())
	if fs.postRequests.Load() == 0 {
		t.Error("a ready session should poll")
	}
}

func TestPollEngine_ListenerGating(t *testing.T) {
	fs := newFeedServer(t)
	fs.setPosts("p1")
	fs.setComments("c1")
	rec := &pollRecorder{}

	gw, err := NewGateway(fs.server.Client(), fs.server.URL+"/api/v1/", "test-agent", "go-ruqqus", nil, nil, nil)
	if err != nil {
		t.Fatalf("NewGateway() error = %v", err)
	}

	var postListeners, commentListeners atomic.Int32
	engine := NewPollEngine(PollEngineConfig{
		Gateway:          gw,
		Resolver:         NewResolver("https://ruqqus.com"),
		PostListeners:    func() int { return int(postListeners.Load()) },
		CommentListeners: func() int { return int(commentListeners.Load()) },
		EmitPost:         rec.post,
		EmitComment:      rec.comment,
	})

	postListeners.Store(1)
	engine.Tick(context.Background())

	if fs.postRequests.Load() != 1 {
		t.Errorf("post feed requests = %d, want 1", fs.postRequests.Load())
	}
	if fs.commentRequests.Load() != 0 {
		t.Errorf("comment feed requests = %d with no listeners, want 0", fs.commentRequests.Load())
	}
	// The unfetched feed's generation stays at zero, so its first real tick
	// still only establishes a baseline.
	if engine.CommentCache().Generation() != 0 {
		t.Error("comment generation advanced without a fetch")
	}

	commentListeners.Store(1)
	engine.Tick(context.Background())
	if fs.commentRequests.Load() != 1 {
		t.Errorf("comment feed requests = %d, want 1", fs.commentRequests.Load())
	}
	if got := rec.commentIDs(); len(got) != 0 {
		t.Errorf("late-registered comment feed emitted %v on its baseline tick", got)
	}
}

func TestPollEngine_StartStop(t *testing.T) {
	fs := newFeedServer(t)
	fs.setPosts("p1")
	fs.setComments("c1")
	rec := &pollRecorder{}
	engine := newTestPollEngine(t, fs, rec)
	engine.cfg.Interval = 10 * time.Millisecond

	engine.Start(context.Background())
	engine.Start(context.Background()) // no-op on a running engine

	deadline := time.Now().Add(2 * time.Second)
	for fs.postRequests.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("poll loop never ticked twice")
		}
		time.Sleep(5 * time.Millisecond)
	}

	engine.Stop()
	engine.Stop() // safe to repeat

	requests := fs.postRequests.Load()
	time.Sleep(50 * time.Millisecond)
	if fs.postRequests.Load() != requests {
		t.Error("poll loop kept running after Stop")
	}
}
