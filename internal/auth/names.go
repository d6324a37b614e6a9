// internal/auth/names.go
package auth

import (
	"errors"
	"sync"
)

// NameRegistry lets a player reserve a display name behind a password so
// another guest cannot claim it. This is the whole extent of account
// handling here; real identity federation belongs to an external provider.
type NameRegistry struct {
	mu     sync.Mutex
	hashes map[string]string // display name -> argon2id hash
}

var (
	ErrNameTaken     = errors.New("display name already reserved")
	ErrBadCredential = errors.New("display name or password incorrect")
)

func NewNameRegistry() *NameRegistry {
	return &NameRegistry{hashes: make(map[string]string)}
}

// Claim reserves name behind password.
func (n *NameRegistry) Claim(name, password string) error {
	hash, err := CreateHash(password)
	if err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, taken := n.hashes[name]; taken {
		return ErrNameTaken
	}
	n.hashes[name] = hash
	return nil
}

// Verify checks a claimed name's password. Unreserved names verify freely.
func (n *NameRegistry) Verify(name, password string) error {
	n.mu.Lock()
	hash, reserved := n.hashes[name]
	n.mu.Unlock()
	if !reserved {
		return nil
	}
	ok, err := ComparePasswordAndHash(password, hash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrBadCredential
	}
	return nil
}
