package internal

import (
	"errors"

	"github.com/google/uuid"
)

// ErrInvalidSessionID is returned by ParseSessionID for malformed IDs.
var ErrInvalidSessionID = errors.New("invalid session id")

// NewSessionID returns a random (version 4) UUID string.
func NewSessionID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ParseSessionID checks that sessionID is a canonical version 4 UUID and
// returns it normalized to lower case.
func ParseSessionID(sessionID string) (string, error) {
	id, err := uuid.Parse(sessionID)
	if err != nil || id.Version() != 4 || len(sessionID) != 36 {
		return "", ErrInvalidSessionID
	}
	return id.String(), nil
}
