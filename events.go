package ruqqus

import (
	"sync"

	"github.com/ruqqus-community/go-ruqqus/pkg/types"
)

// eventBus fans notifications out to registered handlers. Registration
// returns a cancel func; the poll engine consults the live listener counts so
// a feed with no remaining listeners stops being fetched and resumes when a
// listener reappears.
type eventBus struct {
	mu       sync.RWMutex
	nextID   int
	login    map[int]func()
	posts    map[int]func(*types.Post)
	comments map[int]func(*types.Comment)
}

func newEventBus() *eventBus {
	return &eventBus{
		login:    make(map[int]func()),
		posts:    make(map[int]func(*types.Post)),
		comments: make(map[int]func(*types.Comment)),
	}
}

func (b *eventBus) onLogin(h func()) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.login[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.login, id)
		b.mu.Unlock()
	}
}

func (b *eventBus) onPost(h func(*types.Post)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.posts[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.posts, id)
		b.mu.Unlock()
	}
}

func (b *eventBus) onComment(h func(*types.Comment)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.comments[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.comments, id)
		b.mu.Unlock()
	}
}

func (b *eventBus) postListeners() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.posts)
}

func (b *eventBus) commentListeners() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.comments)
}

func (b *eventBus) emitLogin() {
	b.mu.RLock()
	handlers := make([]func(), 0, len(b.login))
	for _, h := range b.login {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h()
	}
}

func (b *eventBus) emitPost(p *types.Post) {
	b.mu.RLock()
	handlers := make([]func(*types.Post), 0, len(b.posts))
	for _, h := range b.posts {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(p)
	}
}

func (b *eventBus) emitComment(c *types.Comment) {
	b.mu.RLock()
	handlers := make([]func(*types.Comment), 0, len(b.comments))
	for _, h := range b.comments {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(c)
	}
}
