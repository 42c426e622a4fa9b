package state

import "sync"

type chatLock struct {
	mu   sync.Mutex
	refs int
}

// ChatLocker hands out one mutex per chat id. Entries are reference counted and
// dropped once the last holder or waiter releases them.
type ChatLocker struct {
	mu    sync.Mutex
	locks map[int64]*chatLock
}

// NewChatLocker constructs an empty locker.
func NewChatLocker() *ChatLocker {
	return &ChatLocker{locks: make(map[int64]*chatLock)}
}

// Lock blocks until chatID is free and returns the matching unlock function.
// The returned function must be called exactly once.
func (l *ChatLocker) Lock(chatID int64) func() {
	l.mu.Lock()
	cl, ok := l.locks[chatID]
	if !ok {
		cl = &chatLock{}
		l.locks[chatID] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			cl.mu.Unlock()
			l.mu.Lock()
			cl.refs--
			if cl.refs == 0 {
				delete(l.locks, chatID)
			}
			l.mu.Unlock()
		})
	}
}

// Len reports how many chats currently hold or wait for a lock.
func (l *ChatLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
