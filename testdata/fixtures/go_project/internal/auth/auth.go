package auth

import "errors"

// ErrInvalidToken is returned for unknown or expired tokens.
var ErrInvalidToken = errors.New("auth: invalid token")

// Authenticator validates bearer tokens.
type Authenticator struct {
	tokens map[string]int
}

// Validate returns the user id bound to token.
func (a *Authenticator) Validate(token string) (int, error) {
	id, ok := a.tokens[token]
	if !ok {
		return 0, ErrInvalidToken
	}
	return id, nil
}
