// Package console holds the view models of the playbook front-end: the login
// gate, the dashboard, the editor and their terminal presentation.
package console

import (
	"crypto/subtle"
	"errors"
)

// DefaultPassword is the shared password used when none is configured.
const DefaultPassword = "julien"

var ErrIncorrectPassword = errors.New("incorrect password")

// Gate is a cosmetic shared-password check, not a security boundary.
type Gate struct {
	password string
	unlocked bool
}

func NewGate(password string) *Gate {
	if password == "" {
		password = DefaultPassword
	}

	return &Gate{password: password}
}

// Unlock opens the gate for the lifetime of the process when attempt matches.
func (g *Gate) Unlock(attempt string) error {
	if subtle.ConstantTimeCompare([]byte(attempt), []byte(g.password)) != 1 {
		return ErrIncorrectPassword
	}

	g.unlocked = true

	return nil
}

func (g *Gate) Unlocked() bool {
	return g.unlocked
}
