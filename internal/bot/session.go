package bot

import (
	"sync"
	"time"

	"github.com/example/vocabplan/internal/quiz"
)

// session is the question a chat is currently answering
type session struct {
	StudentID int64
	Question  quiz.Question
	AskedAt   time.Time
}

// sessionStore keeps one open question per chat
type sessionStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[int64]session
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{ttl: ttl, items: make(map[int64]session)}
}

func (s *sessionStore) put(chatID int64, sess session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[chatID] = sess
}

// take removes and returns the chat's session. expired is true when the
// session existed but outlived the TTL.
func (s *sessionStore) take(chatID int64, now time.Time) (sess session, ok, expired bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok = s.items[chatID]
	if !ok {
		return session{}, false, false
	}
	delete(s.items, chatID)
	if now.Sub(sess.AskedAt) > s.ttl {
		return sess, false, true
	}
	return sess, true, false
}

// peek returns the chat's session without removing it
func (s *sessionStore) peek(chatID int64, now time.Time) (session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.items[chatID]
	if !ok || now.Sub(sess.AskedAt) > s.ttl {
		return session{}, false
	}
	return sess, true
}

// sweep removes and returns every expired session
func (s *sessionStore) sweep(now time.Time) []session {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []session
	for chatID, sess := range s.items {
		if now.Sub(sess.AskedAt) > s.ttl {
			expired = append(expired, sess)
			delete(s.items, chatID)
		}
	}
	return expired
}
