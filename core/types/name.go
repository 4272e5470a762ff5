package types

import (
	"errors"
	"fmt"
	"strings"
)

// MaxNameLength bounds account names.
const MaxNameLength = 12

// ErrInvalidName is returned when an account name fails validation.
var ErrInvalidName = errors.New("types: invalid account name")

// Name identifies an account: a user, the staking contract or the token
// contract. Valid names are 1-12 characters drawn from a-z, 1-5 and '.', and
// never end with '.'.
type Name string

// ParseName normalises and validates an account name.
func ParseName(raw string) (Name, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	name := Name(trimmed)
	if err := name.Validate(); err != nil {
		return "", err
	}
	return name, nil
}

// MustName panics when raw is not a valid account name.
func MustName(raw string) Name {
	name, err := ParseName(raw)
	if err != nil {
		panic(err)
	}
	return name
}

// Validate checks the naming rules.
func (n Name) Validate() error {
	s := string(n)
	if s == "" || len(s) > MaxNameLength {
		return fmt.Errorf("%w: %q must be 1-%d characters", ErrInvalidName, s, MaxNameLength)
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '1' && r <= '5':
		case r == '.':
		default:
			return fmt.Errorf("%w: %q contains %q", ErrInvalidName, s, r)
		}
	}
	if strings.HasSuffix(s, ".") {
		return fmt.Errorf("%w: %q ends with '.'", ErrInvalidName, s)
	}
	return nil
}

func (n Name) String() string { return string(n) }
