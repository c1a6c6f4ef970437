package portal

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/campusfix/campusfix/cache"
)

// ErrNoSession is returned when an operation needs a signed-in user
// and there is none.
var ErrNoSession = errors.New("portal: no active session")

// Session keys live in the shared persistent store but outside the
// cache namespace, so invalidating cached responses never signs the
// user out.
const (
	sessionTokenKey = "session:token"
	sessionUserKey  = "session:user"
)

// Session holds the bearer token and cached identity for the active
// user. Setting or clearing the token wipes the persistent response
// cache synchronously, before any request for the new session can be
// issued, so one account can never be served another's stale data.
type Session struct {
	store cache.Store // nil means process-lifetime only
	log   zerolog.Logger

	// onInvalidate additionally resets the in-process memory tier so a
	// re-login inside one process cannot see the previous account.
	onInvalidate func()

	mu    sync.RWMutex
	token string
	user  *User
}

// NewSession returns a session backed by store. A nil store keeps the
// token in memory only.
func NewSession(store cache.Store, log zerolog.Logger) *Session {
	s := &Session{store: store, log: log}
	if store != nil {
		if raw, err := store.Get(sessionTokenKey); err == nil {
			_ = json.Unmarshal(raw, &s.token)
		}
		if raw, err := store.Get(sessionUserKey); err == nil {
			var u User
			if json.Unmarshal(raw, &u) == nil {
				s.user = &u
			}
		}
	}
	return s
}

// Token returns the current bearer token, re-read from the store on
// every call, or "" when signed out.
func (s *Session) Token() string {
	if s.store != nil {
		raw, err := s.store.Get(sessionTokenKey)
		if err != nil {
			if !errors.Is(err, cache.ErrNotFound) {
				s.log.Warn().Err(err).Msg("session token read failed")
			}
			return ""
		}
		var tok string
		if json.Unmarshal(raw, &tok) == nil {
			return tok
		}
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken stores a newly issued token and invalidates the persistent
// response cache before returning.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	if s.store != nil {
		if b, err := json.Marshal(token); err == nil {
			if err := s.store.Put(sessionTokenKey, b); err != nil {
				s.log.Warn().Err(err).Msg("session token write failed")
			}
		}
	}
	s.invalidateResponses()
}

// SetUser stores the signed-in identity.
func (s *Session) SetUser(u User) {
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()

	if s.store != nil {
		if b, err := json.Marshal(u); err == nil {
			if err := s.store.Put(sessionUserKey, b); err != nil {
				s.log.Warn().Err(err).Msg("session user write failed")
			}
		}
	}
}

// User returns the cached identity, if any.
func (s *Session) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// Clear removes the token and identity and invalidates the persistent
// response cache. Safe to call when already signed out.
func (s *Session) Clear() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	if s.store != nil {
		_ = s.store.Delete(sessionTokenKey)
		_ = s.store.Delete(sessionUserKey)
	}
	s.invalidateResponses()
}

func (s *Session) invalidateResponses() {
	if s.onInvalidate != nil {
		s.onInvalidate()
	}
	if s.store == nil {
		return
	}
	if _, err := s.store.InvalidateAll(); err != nil {
		s.log.Warn().Err(err).Msg("response cache invalidation failed")
	}
}

// Claims decodes the token's registered claims without verifying the
// signature; the backend is the verifier, this is only for local
// display and expiry checks.
func (s *Session) Claims() (jwt.RegisteredClaims, error) {
	tok := s.Token()
	if tok == "" {
		return jwt.RegisteredClaims{}, ErrNoSession
	}
	var claims jwt.RegisteredClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tok, &claims); err != nil {
		return jwt.RegisteredClaims{}, err
	}
	return claims, nil
}

// Expired reports whether the token carries an exp claim in the past.
// An absent or unparseable token counts as expired; a token without
// an exp claim does not.
func (s *Session) Expired() bool {
	claims, err := s.Claims()
	if err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Before(time.Now())
}
