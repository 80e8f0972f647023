package blob

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	pkgerrors "github.com/absmach/cohort/pkg/errors"
)

var (
	ErrNotFound   = fmt.Errorf("blob %w", pkgerrors.ErrNotFound)
	ErrInvalidKey = errors.New("invalid blob key")
	ErrCorrupt    = errors.New("blob checksum mismatch")
)

const (
	GlobalFinalKey  = "global/final"
	ProfileFinalKey = "profile/final"
)

// Store is an opaque key/value store for parameter blobs. Put overwrites.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

func ClientKey(clientID string, round uint64) string {
	return clientID + "/" + strconv.FormatUint(round, 10)
}

func GlobalKey(round uint64) string {
	return "global/" + strconv.FormatUint(round, 10)
}

// ValidateKey accepts slash separated segments of letters, digits, '.', '-' and '_'.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: %w", ErrInvalidKey, pkgerrors.ErrEmptyKey)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
		for _, r := range seg {
			if !validRune(r) {
				return fmt.Errorf("%w: %q", ErrInvalidKey, key)
			}
		}
	}

	return nil
}

func validRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.'
}
