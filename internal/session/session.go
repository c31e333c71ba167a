package session

import (
	"sync"

	"go.uber.org/zap"
)

// Session is one bearer-token login (end user or admin) stored under its
// own key. OnUnauthorized fires after a 401 has cleared the token.
type Session struct {
	storage Storage
	key     string
	logger  *zap.Logger

	mu             sync.Mutex
	onUnauthorized func()
}

func New(storage Storage, key string, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{storage: storage, key: key, logger: logger}
}

func (s *Session) Key() string { return s.key }

func (s *Session) Token() string {
	token, _ := s.storage.Get(s.key)
	return token
}

func (s *Session) Active() bool {
	return s.Token() != ""
}

func (s *Session) SetToken(token string) error {
	return s.storage.Set(s.key, token)
}

func (s *Session) Clear() error {
	return s.storage.Delete(s.key)
}

func (s *Session) OnUnauthorized(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUnauthorized = fn
}

// Invalidate drops a token the server rejected and notifies the listener.
func (s *Session) Invalidate() {
	if err := s.Clear(); err != nil {
		s.logger.Warn("clear stale token", zap.String("key", s.key), zap.Error(err))
	}

	s.mu.Lock()
	fn := s.onUnauthorized
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}
