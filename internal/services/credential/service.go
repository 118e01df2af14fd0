package credential

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/sporelabs/sporeverse/internal/dependencies/random"
	"github.com/sporelabs/sporeverse/internal/model"
)

// Errors
var (
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrUnknownNonce      = errors.New("no nonce issued for address")
)

// tokenBytes is the entropy of nonces and session keys before hex encoding
const tokenBytes = 24

// Service issues login nonces and exchanges signed challenges for opaque
// session keys. Nonces are not invalidated on use and keys never expire;
// re-login simply mints an additional key for the same address.
type Service struct {
	logger *slog.Logger
	random random.Random

	mu     sync.RWMutex
	nonces map[model.Address]string
	keys   map[string]model.Address
}

// New creates a new credential service
func New(rnd random.Random, logger *slog.Logger) *Service {
	return &Service{
		logger: logger.With(slog.String("component", "credential")),
		random: rnd,
		nonces: make(map[model.Address]string),
		keys:   make(map[string]model.Address),
	}
}

// IssueNonce generates a fresh nonce for the address, replacing any prior one
func (s *Service) IssueNonce(address string) string {
	addr := model.NormalizeAddress(address)
	nonce := s.random.Hex(tokenBytes)

	s.mu.Lock()
	s.nonces[addr] = nonce
	s.mu.Unlock()

	return nonce
}

// Login verifies that signature is a wallet signature over the challenge for
// the address's current nonce, and on success mints a new session key.
func (s *Service) Login(address, signature string) (string, error) {
	addr := model.NormalizeAddress(address)

	s.mu.RLock()
	nonce, ok := s.nonces[addr]
	s.mu.RUnlock()
	if !ok {
		return "", ErrUnknownNonce
	}

	signer, err := RecoverSigner(ChallengeMessage(nonce), signature)
	if err != nil {
		// A malformed signature is indistinguishable from a wrong one as
		// far as the caller is concerned
		s.logger.Debug("signature recovery failed", slog.String("error", err.Error()))
		return "", ErrSignatureMismatch
	}

	if model.NormalizeAddress(signer.Hex()) != addr {
		return "", ErrSignatureMismatch
	}

	key := s.random.Hex(tokenBytes)

	s.mu.Lock()
	s.keys[key] = addr
	s.mu.Unlock()

	s.logger.Info("session key issued", slog.String("address", string(addr)))
	return key, nil
}

// Resolve looks up the address a session key was issued for
func (s *Service) Resolve(key string) (model.Address, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	addr, ok := s.keys[key]
	return addr, ok
}
