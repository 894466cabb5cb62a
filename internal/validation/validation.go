// Package validation holds the side-effect free checks applied to a waitlist
// submission before anything touches the store.
package validation

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf16"

	"github.com/SignpostApp/landing/internal/apperr"
)

const (
	MaxEmailLength  = 254
	MaxDomainLength = 253
	DefaultMaxSkew  = 30 * time.Second
)

var DefaultBlockedDomains = []string{
	"mailinator.com",
	"guerrillamail.com",
	"tempmail.com",
	"throwaway.email",
	"yopmail.com",
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Submission is a validated join request.
type Submission struct {
	Email  string
	Domain string
}

// Validator runs the ordered admission checks. The zero value uses
// DefaultMaxSkew and blocks nothing.
type Validator struct {
	Blocked Blocklist
	MaxSkew time.Duration
}

func New(blocked []string, maxSkew time.Duration) Validator {
	return Validator{
		Blocked: NewBlocklist(blocked),
		MaxSkew: maxSkew,
	}
}

// Validate checks staleness first, then the email, then the domain.
func (v Validator) Validate(email string, timestamp, now time.Time) (Submission, error) {
	maxSkew := v.MaxSkew
	if maxSkew <= 0 {
		maxSkew = DefaultMaxSkew
	}

	if err := CheckTimestamp(timestamp, now, maxSkew); err != nil {
		return Submission{}, err
	}

	normalized, err := ValidateEmail(email)
	if err != nil {
		return Submission{}, err
	}

	domain, err := ExtractDomain(normalized)
	if err != nil {
		return Submission{}, err
	}

	if v.Blocked.Contains(domain) {
		return Submission{}, apperr.ErrDisposableDomain
	}

	return Submission{Email: normalized, Domain: domain}, nil
}

// CheckTimestamp rejects a client timestamp further than maxSkew from now in
// either direction. A zero timestamp is always stale.
func CheckTimestamp(timestamp, now time.Time, maxSkew time.Duration) error {
	if timestamp.IsZero() {
		return apperr.ErrExpiredRequest
	}
	d := now.Sub(timestamp)
	if d > maxSkew || d < -maxSkew {
		return apperr.ErrExpiredRequest
	}
	return nil
}

func Normalize(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// ValidateEmail normalizes email and checks length, control characters and
// shape. It returns the normalized address.
func ValidateEmail(email string) (string, error) {
	normalized := Normalize(email)

	if normalized == "" || codeUnits(normalized) > MaxEmailLength {
		return "", apperr.ErrInvalidEmail
	}
	if hasControlChar(normalized) {
		return "", apperr.ErrInvalidEmail
	}
	// RE2's \s is ASCII only.
	if !emailPattern.MatchString(normalized) || strings.ContainsFunc(normalized, unicode.IsSpace) {
		return "", apperr.ErrInvalidEmail
	}

	return normalized, nil
}

// ExtractDomain returns everything after the first @ with trailing dots removed.
func ExtractDomain(normalized string) (string, error) {
	_, domain, ok := strings.Cut(normalized, "@")
	if !ok {
		return "", apperr.ErrInvalidEmail
	}

	domain = strings.TrimRight(domain, ".")
	if domain == "" || codeUnits(domain) > MaxDomainLength {
		return "", apperr.ErrInvalidEmail
	}

	return domain, nil
}

// codeUnits measures s in UTF-16 code units; characters outside the BMP
// count twice.
func codeUnits(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

func hasControlChar(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] == 0x7f {
			return true
		}
	}
	return false
}
