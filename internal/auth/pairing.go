package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"
)

// pendingPair is one unclaimed pairing code, waiting for a browser to type
// it into the editor.
type pendingPair struct {
	issuedAt  time.Time
	requestID string
}

// PairingStore holds the pairing codes issued to browsers that have not yet
// claimed a token pair. Codes live in memory only; a restart voids them.
type PairingStore struct {
	mu      sync.Mutex
	pending map[string]pendingPair
	ttl     time.Duration
}

func NewPairingStore(ttl time.Duration) *PairingStore {
	return &PairingStore{
		pending: make(map[string]pendingPair),
		ttl:     ttl,
	}
}

// StartCleanup sweeps expired codes on the given interval until the context
// is canceled, then drops everything still pending.
func (s *PairingStore) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.CleanupExpired()
			case <-ctx.Done():
				s.Clear()
				return
			}
		}
	}()
}

// CleanupExpired drops every code older than the store's TTL.
func (s *PairingStore) CleanupExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for code, pair := range s.pending {
		if now.Sub(pair.issuedAt) > s.ttl {
			delete(s.pending, code)
		}
	}
}

// Clear drops all pending codes.
func (s *PairingStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = make(map[string]pendingPair)
}

// Create issues a fresh six-digit pairing code for the request. Retries on
// the unlikely collision with a code already pending.
func (s *PairingStore) Create(requestID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempts := 0; attempts < 10; attempts++ {
		code, err := randomPairingCode()
		if err != nil {
			return "", err
		}
		if _, taken := s.pending[code]; taken {
			continue
		}
		s.pending[code] = pendingPair{
			issuedAt:  time.Now(),
			requestID: requestID,
		}
		return code, nil
	}

	return "", fmt.Errorf("unable to generate unique pairing code")
}

// Lookup reports whether a code is pending and whether it has expired. An
// expired code stays in the store until consumed or swept.
func (s *PairingStore) Lookup(code string) (pendingPair, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair, ok := s.pending[code]
	if !ok {
		return pendingPair{}, false, false
	}
	return pair, true, time.Since(pair.issuedAt) > s.ttl
}

// Consume removes a code once the browser has claimed its tokens (or tried
// to claim with an expired one).
func (s *PairingStore) Consume(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, code)
}

// randomPairingCode draws a uniform code in [100000, 999999].
func randomPairingCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", 100000+n.Int64()), nil
}
