package selection

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ytget/yt-linkbot/internal/model"
)

// Wire format constants
const (
	Action    = "quality"
	Delimiter = ":"

	// MaxTokenBytes is the largest callback payload a chat button can carry
	MaxTokenBytes = 64

	fieldCount = 3
)

var (
	// ErrMalformed is returned when a token does not match the wire format
	ErrMalformed = errors.New("malformed selection token")

	// ErrUnencodable is returned when a pair cannot be represented as a token
	ErrUnencodable = errors.New("selection cannot be encoded")
)

// Encode builds the token for a (formatID, sourceItemID) pair
func Encode(formatID, sourceItemID string) (model.SelectionToken, error) {
	if formatID == "" || sourceItemID == "" {
		return "", fmt.Errorf("%w: empty field", ErrUnencodable)
	}
	if strings.Contains(formatID, Delimiter) {
		return "", fmt.Errorf("%w: format id %q contains %q", ErrUnencodable, formatID, Delimiter)
	}
	if strings.Contains(sourceItemID, Delimiter) {
		return "", fmt.Errorf("%w: source id %q contains %q", ErrUnencodable, sourceItemID, Delimiter)
	}

	token := Action + Delimiter + formatID + Delimiter + sourceItemID
	if len(token) > MaxTokenBytes {
		return "", fmt.Errorf("%w: token is %d bytes, limit %d", ErrUnencodable, len(token), MaxTokenBytes)
	}
	return model.SelectionToken(token), nil
}

// Decode splits a token back into its format and source item IDs
func Decode(token model.SelectionToken) (formatID, sourceItemID string, err error) {
	parts := strings.Split(string(token), Delimiter)
	if len(parts) != fieldCount {
		return "", "", fmt.Errorf("%w: expected %d fields, got %d", ErrMalformed, fieldCount, len(parts))
	}
	if parts[0] != Action {
		return "", "", fmt.Errorf("%w: unknown action %q", ErrMalformed, parts[0])
	}
	if parts[1] == "" || parts[2] == "" {
		return "", "", fmt.Errorf("%w: empty field", ErrMalformed)
	}
	return parts[1], parts[2], nil
}

// IsSelection reports whether callback data claims to be a selection token.
// It does not validate the rest of the token; Decode does.
func IsSelection(data string) bool {
	return strings.HasPrefix(data, Action+Delimiter)
}
