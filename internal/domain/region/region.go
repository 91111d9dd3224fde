package region

import (
	"strings"

	"github.com/cnec/backend/internal/domain/shared"
)

// Key identifies a data store partition
type Key string

const (
	Korea   Key = "korea"
	Japan   Key = "japan"
	US      Key = "us"
	Taiwan  Key = "taiwan"
	Central Key = "central"
)

// aliases maps accepted spellings to their canonical key.
var aliases = map[string]Key{
	"korea":   Korea,
	"kr":      Korea,
	"ko":      Korea,
	"japan":   Japan,
	"jp":      Japan,
	"ja":      Japan,
	"us":      US,
	"usa":     US,
	"en":      US,
	"taiwan":  Taiwan,
	"tw":      Taiwan,
	"central": Central,
	"biz":     Central,
	"main":    Central,
}

// Parse normalizes s through the alias table. Matching is case-insensitive
// and ignores surrounding whitespace.
func Parse(s string) (Key, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "" {
		return "", shared.NewValidationError("region is required")
	}
	k, ok := aliases[normalized]
	if !ok {
		return "", shared.NewValidationError("unknown region: " + s)
	}
	return k, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) Key {
	k, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return k
}

// All returns every canonical key, regional stores first.
func All() []Key {
	return []Key{Korea, Japan, US, Taiwan, Central}
}

// Regional returns the keys of the regional stores, excluding central.
func Regional() []Key {
	return []Key{Korea, Japan, US, Taiwan}
}

func (k Key) String() string {
	return string(k)
}

// IsCentral reports whether k is the central registry store
func (k Key) IsCentral() bool {
	return k == Central
}

// IsValid reports whether k is a canonical key
func (k Key) IsValid() bool {
	switch k {
	case Korea, Japan, US, Taiwan, Central:
		return true
	}
	return false
}
