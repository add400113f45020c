package ratelimit

import (
	"errors"
	"sync"
	"time"
)

// ErrRateExceeded is returned when a client has used up its allowance for the
// current window.
// The HTTP boundary translates it into a 429.
var ErrRateExceeded = errors.New("rate exceeded")

const (
	DefaultWindow = 10 * time.Second
	DefaultLimit  = 5
)

// SlidingWindow admits up to limit requests per client within a rolling
// window. Rejected attempts are not recorded, so a client hammering the
// endpoint does not push its own window forward. Each client is independent.
type SlidingWindow struct {
	mu      sync.Mutex
	window  time.Duration
	limit   int
	clients map[string][]time.Time
	now     func() time.Time
	done    chan struct{}
}

func NewSlidingWindow(window time.Duration, limit int) *SlidingWindow {
	l := &SlidingWindow{
		window:  window,
		limit:   limit,
		clients: make(map[string][]time.Time),
		now:     time.Now,
		done:    make(chan struct{}),
	}

	go l.janitor()

	return l
}

// Allow reports whether the request from clientID is admitted. The Nth
// request within the window is allowed when N == limit; the next one is not.
func (l *SlidingWindow) Allow(clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	timestamps := l.clients[clientID]

	kept := timestamps[:0]
	for _, t := range timestamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.limit {
		l.clients[clientID] = kept
		return false
	}

	l.clients[clientID] = append(kept, now)
	return true
}

func (l *SlidingWindow) Close() {
	close(l.done)
}

// janitor drops clients whose whole window has elapsed, keeping the client
// set bounded over time.
func (l *SlidingWindow) janitor() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.mu.Lock()
			cutoff := l.now().Add(-l.window)
			for client, timestamps := range l.clients {
				idle := true
				for _, t := range timestamps {
					if t.After(cutoff) {
						idle = false
						break
					}
				}
				if idle {
					delete(l.clients, client)
				}
			}
			l.mu.Unlock()
		}
	}
}
