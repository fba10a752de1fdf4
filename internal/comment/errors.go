package comment

import "errors"

var (
	// ErrNotFound indicates the requested comment doesn't exist
	ErrNotFound = errors.New("comment not found")

	// ErrInvalidTarget indicates the file or folder being commented on doesn't exist
	ErrInvalidTarget = errors.New("invalid comment target")

	// ErrMessageTooLong indicates the message exceeds MaxMessageLength characters
	ErrMessageTooLong = errors.New("message exceeds allowed character limit of 1000")
)

// IsNotFound checks if an error is a "not found" error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
