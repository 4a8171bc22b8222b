package chat

import (
	"errors"
	"fmt"
	"time"
)

// Sender identifies who authored a turn.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Valid reports whether s is one of the known senders.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderBot
}

var (
	ErrEmptyMessage = errors.New("empty message")
	ErrInvalidTurn  = errors.New("invalid turn")
)

// Turn is one stored message of a conversation. Turns are append-only.
type Turn struct {
	ID        uint64    `json:"id"`
	SessionID string    `json:"sessionId"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// StorageError reports a failure of the underlying storage medium.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ValidateTurn checks the fields every persisted turn must carry.
func ValidateTurn(sessionID string, sender Sender, text string) error {
	switch {
	case sessionID == "":
		return fmt.Errorf("%w: session id is required", ErrInvalidTurn)
	case !sender.Valid():
		return fmt.Errorf("%w: unknown sender %q", ErrInvalidTurn, sender)
	case text == "":
		return fmt.Errorf("%w: text is required", ErrInvalidTurn)
	}
	return nil
}
