// internal/address/slug.go
//
// Domain, path, and slug helpers.
//
// • NormalizeDomain(d) ─ strips spaces, scheme, and trailing slashes, then
//   lower-cases.  Ports survive.
// • SanitizePath(p)    ─ strips spaces, lower-cases, collapses empty
//   segments, and guarantees exactly one leading and one trailing “/”.
// • ValidateSlug(s)    ─ the sign-up rules a sub-directory name must pass.
//
// Rules (ValidateSlug)
// --------------------
// 1. Only a-z, 0-9, and “-”.
// 2. At least four characters.
// 3. Not purely numeric (it would shadow date archives).
// 4. Not one of the reserved top-level names.
//
// Username collisions need the user table, so callers check those
// separately and wrap the result with ErrInvalid themselves.
//
// Notes
// -----
// • No Unicode transliteration; names are ASCII only.

package address

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalid marks every validation failure in this package.
var ErrInvalid = errors.New("invalid address")

// MinSlugLen is the shortest accepted sub-directory name.
const MinSlugLen = 4

var (
	domainRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9.-]*[a-z0-9])?(:[0-9]{1,5})?$`)
	slugRe   = regexp.MustCompile(`^[a-z0-9-]+$`)
	digitsRe = regexp.MustCompile(`^[0-9]+$`)

	reserved = map[string]struct{}{
		"page": {}, "comments": {}, "blog": {}, "files": {}, "feed": {},
		"wp-admin": {}, "wp-content": {}, "wp-includes": {}, "wp-json": {},
		"embed": {},
	}
)

// ValidationError explains why an address was rejected.
type ValidationError struct {
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%q: %s", e.Value, e.Reason)
}

// Unwrap lets errors.Is(err, ErrInvalid) match.
func (e *ValidationError) Unwrap() error { return ErrInvalid }

// Invalid builds a ValidationError.
func Invalid(value, reason string) error {
	return &ValidationError{Value: value, Reason: reason}
}

// NormalizeDomain canonicalises a domain for storage and comparison.
func NormalizeDomain(d string) string {
	d = strings.ToLower(strings.Join(strings.Fields(d), ""))
	if i := strings.Index(d, "://"); i != -1 {
		d = d[i+3:]
	}
	if i := strings.IndexByte(d, '/'); i != -1 {
		d = d[:i]
	}
	return d
}

// ValidateDomain checks a normalised domain.
func ValidateDomain(d string) error {
	if d == "" {
		return Invalid(d, "domain is empty")
	}
	if !domainRe.MatchString(d) {
		return Invalid(d, "domain contains invalid characters")
	}
	return nil
}

// SanitizePath turns any user input into the canonical “/a/b/” form.
func SanitizePath(p string) string {
	p = strings.ToLower(strings.Join(strings.Fields(p), ""))
	var parts []string
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	if len(parts) == 0 {
		return "/"
	}
	return "/" + strings.Join(parts, "/") + "/"
}

// LastSegment returns the final path segment, or "" for “/”.
func LastSegment(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return ""
	}
	return trimmed[strings.LastIndexByte(trimmed, '/')+1:]
}

// ValidateSlug applies the sub-directory naming rules.
func ValidateSlug(slug string) error {
	switch {
	case slug == "":
		return Invalid(slug, "name is empty")
	case !slugRe.MatchString(slug):
		return Invalid(slug, "only lowercase letters, numbers, and hyphens are allowed")
	case len(slug) < MinSlugLen:
		return Invalid(slug, fmt.Sprintf("name must be at least %d characters", MinSlugLen))
	case digitsRe.MatchString(slug):
		return Invalid(slug, "name may not be numeric only")
	}
	if _, ok := reserved[slug]; ok {
		return Invalid(slug, "name is reserved")
	}
	return nil
}
