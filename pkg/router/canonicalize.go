package router

import (
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
)

// Path canonicalization errors.
var (
	ErrBackslashInPath       = errors.New("path contains backslash")
	ErrNullByteInPath        = errors.New("path contains null byte")
	ErrInvalidPercentEscape  = errors.New("invalid percent escape sequence")
	ErrPathEscapesRoot       = errors.New("path escapes root via ..")
	ErrEncodedSlashInSegment = errors.New("encoded slash (%2F) in non-catch-all segment")
)

// CanonicalPath is a normalized request path.
type CanonicalPath struct {
	// Path is the canonical path, without query string.
	Path string

	// Query is the query string without the leading "?".
	Query string

	// Changed reports whether normalization modified the path, so callers
	// can redirect to the canonical form.
	Changed bool
}

// CanonicalizePath normalizes a request path before matching:
//   - collapse repeated slashes (/blog//post → /blog/post)
//   - drop "." segments and resolve ".." segments
//   - drop the trailing slash (except for "/")
//
// Backslashes, NUL bytes, invalid percent-escapes and ".." above the root
// are rejected. A query string is split off and preserved untouched.
func CanonicalizePath(input string) (CanonicalPath, error) {
	if input == "" {
		return CanonicalPath{Path: "/", Changed: true}, nil
	}

	p, query, _ := strings.Cut(input, "?")

	if strings.Contains(p, "\\") {
		return CanonicalPath{}, ErrBackslashInPath
	}
	if strings.Contains(p, "\x00") || strings.Contains(strings.ToUpper(p), "%00") {
		return CanonicalPath{}, ErrNullByteInPath
	}
	if strings.Contains(p, "%") {
		if err := validatePercentEscapes(p); err != nil {
			return CanonicalPath{}, err
		}
	}

	original := p

	var out []string
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(out) == 0 {
				return CanonicalPath{}, ErrPathEscapesRoot
			}
			out = out[:len(out)-1]
		default:
			out = append(out, seg)
		}
	}

	p = "/" + strings.Join(out, "/")
	return CanonicalPath{Path: p, Query: query, Changed: p != original}, nil
}

func validatePercentEscapes(p string) error {
	for i := 0; i < len(p); i++ {
		if p[i] != '%' {
			continue
		}
		if i+2 >= len(p) || !isHexDigit(p[i+1]) || !isHexDigit(p[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// decodeSegment decodes one path segment. Outside a catch-all an encoded
// slash would smuggle an extra path component, so it is rejected.
func decodeSegment(segment string, catchAll bool) (string, error) {
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return "", ErrInvalidPercentEscape
	}
	if !catchAll && strings.Contains(decoded, "/") {
		return "", ErrEncodedSlashInSegment
	}
	return decoded, nil
}

// splitPath splits a path into raw segments.
func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
