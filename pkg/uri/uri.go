// Package uri parses fabric URIs (scheme://host/seg1/seg2/...) and
// routes them to a program registry, mirroring the teacher's
// thread-safe in-memory registry idiom (pkg/registry/registry.go).
package uri

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidURI is returned when a string fails the URL grammar or
// yields an empty program key.
var ErrInvalidURI = errors.New("uri: invalid-uri")

// ErrProgramNotRegistered is returned by Registry.Lookup when the
// program key has no registered validator. Per spec.md §4.1 this is
// reported, not fatal.
var ErrProgramNotRegistered = errors.New("uri: program-not-registered")

// programKeyPattern is the schema-key grammar spec.md §4.1 requires:
// lowercase ascii letters for the scheme, lowercase alphanumerics and
// dashes for the host.
var programKeyPattern = regexp.MustCompile(`^[a-z]+://[a-z0-9-]+$`)

// Parsed holds the decomposition of a fabric URI.
type Parsed struct {
	URI         string
	ProgramKey  string // scheme://host
	PathSegments []string
}

// Parse decomposes uri into its program key and path segments. Envelope
// URIs under hash://sha256 are valid inputs here too. The validated
// client in pkg/validate gives them no special treatment: it looks up
// "hash://sha256" in the registry like any other program key, so such
// writes are accepted only when that key is registered.
func Parse(raw string) (*Parsed, error) {
	if raw == "" {
		return nil, ErrInvalidURI
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, ErrInvalidURI
	}

	programKey := u.Scheme + "://" + u.Host

	path := strings.Trim(u.Path, "/")
	var segments []string
	if path != "" {
		segments = strings.Split(path, "/")
		for _, s := range segments {
			if s == "" {
				return nil, ErrInvalidURI
			}
		}
	}

	return &Parsed{
		URI:          raw,
		ProgramKey:   programKey,
		PathSegments: segments,
	}, nil
}

// ValidProgramKey reports whether key matches the schema-key grammar
// implementations MUST enforce at construction (spec.md §4.1).
func ValidProgramKey(key string) bool {
	return programKeyPattern.MatchString(key)
}

// Join rebuilds a URI string from a program key and path segments.
func Join(programKey string, segments ...string) string {
	if len(segments) == 0 {
		return programKey
	}
	return programKey + "/" + strings.Join(segments, "/")
}
