package transform

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// ErrTokenNotFound is returned by Vault.Reverse for unknown tokens.
var ErrTokenNotFound = errors.New("token not found")

// Vault is the session-scoped reversible mapping behind TOKENIZE. It
// exists only in memory for the lifetime of one processing session, is
// never persisted, and is never shared across sessions. The mapping is
// reachable only through Reverse, the explicitly gated reversal
// operation.
type Vault struct {
	mu        sync.Mutex
	sessionID string
	salt      []byte
	tokens    map[string]string // token -> original raw text
	byValue   map[string]string // type+raw -> token, for consistent mode
	entropy   *ulid.MonotonicEntropy
}

// NewVault creates an empty vault with a fresh session identity and a
// fresh hashing salt.
func NewVault() (*Vault, error) {
	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate session salt: %w", err)
	}
	return &Vault{
		sessionID: uuid.NewString(),
		salt:      salt,
		tokens:    make(map[string]string),
		byValue:   make(map[string]string),
		entropy:   ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// SessionID returns the vault's session identity.
func (v *Vault) SessionID() string { return v.sessionID }

// Len returns the number of tokens minted so far.
func (v *Vault) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.tokens)
}

// Reverse resolves a token back to the original raw text. This is the
// only way the mapping leaves the vault; it is never invoked implicitly
// by the pipeline.
func (v *Vault) Reverse(token string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	raw, ok := v.tokens[token]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrTokenNotFound, token)
	}
	return raw, nil
}

// mint records raw under a fresh opaque token. In consistent mode an
// identical raw value of the same type reuses its earlier token.
func (v *Vault) mint(typ, raw string, consistent bool) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	key := typ + "\x00" + raw
	if consistent {
		if tok, ok := v.byValue[key]; ok {
			return tok, nil
		}
	}

	id, err := ulid.New(ulid.Now(), v.entropy)
	if err != nil {
		return "", fmt.Errorf("mint token: %w", err)
	}
	tok := "tok_" + id.String()
	v.tokens[tok] = raw
	v.byValue[key] = tok
	return tok, nil
}
