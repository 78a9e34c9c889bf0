package transform

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	// StemUIDLength is the length of the version-invariant part of a uid.
	StemUIDLength = 12
	// UIDLength is the length of a full transform uid.
	UIDLength = 16
)

// NewStemUID returns a random 12-character base62 stem uid.
func NewStemUID() string {
	var b strings.Builder
	b.Grow(StemUIDLength)
	for b.Len() < StemUIDLength {
		for _, c := range randomBytes() {
			// 248 is the largest multiple of 62 below 256.
			if c >= 248 {
				continue
			}
			b.WriteByte(base62Alphabet[int(c)%len(base62Alphabet)])
			if b.Len() == StemUIDLength {
				break
			}
		}
	}
	return b.String()
}

// randomBytes returns the fully random bytes of a v4 uuid. Bytes 6 and 8
// carry the version and variant bits.
func randomBytes() []byte {
	raw := uuid.New()
	out := make([]byte, 0, len(raw)-2)
	for i, c := range raw {
		if i == 6 || i == 8 {
			continue
		}
		out = append(out, c)
	}
	return out
}

// UID derives the 16-character uid of a transform version: the stem uid
// followed by a 4-character suffix hashed from the version.
func UID(identity Identity) string {
	sum := sha256.Sum256([]byte(identity.Version))
	suffix := make([]byte, UIDLength-StemUIDLength)
	for i := range suffix {
		suffix[i] = base62Alphabet[int(sum[i])%len(base62Alphabet)]
	}
	return identity.StemUID + string(suffix)
}

// ValidateStemUID checks length and alphabet of a stem uid.
func ValidateStemUID(stem string) error {
	if len(stem) != StemUIDLength {
		return fmt.Errorf("%w: %q must have %d characters", ErrInvalidStemUID, stem, StemUIDLength)
	}
	for _, r := range stem {
		if !strings.ContainsRune(base62Alphabet, r) {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidStemUID, stem, r)
		}
	}
	return nil
}

// NextVersion suggests the version a user should bump to: the last dotted
// numeric component is incremented, anything else gets ".1" appended.
func NextVersion(version string) string {
	version = strings.TrimSpace(version)
	if version == "" {
		return "1"
	}
	idx := strings.LastIndex(version, ".")
	head, tail := "", version
	if idx >= 0 {
		head, tail = version[:idx+1], version[idx+1:]
	}
	n, err := strconv.Atoi(tail)
	if err != nil || n < 0 {
		return version + ".1"
	}
	return head + strconv.Itoa(n+1)
}

// Settings renders the assignments a user pastes into a script to declare
// the identity.
func Settings(identity Identity) string {
	return fmt.Sprintf("ln.transform.stem_uid = %q\nln.transform.version = %q", identity.StemUID, identity.Version)
}
