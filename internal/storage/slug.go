package storage

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	maxSlugAttempts = 1000
	maxSlugLength   = 80
)

var (
	numericSuffix = regexp.MustCompile(`^(.*?)-(\d+)$`)
	slugStrip     = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugUnsafe    = regexp.MustCompile(`[^a-z0-9-]`)
	whitespaceRun = regexp.MustCompile(`\s+`)
	dashRun       = regexp.MustCompile(`-+`)
)

// now is swapped in tests to pin the fallback suffix.
var now = time.Now

// EnsureUniqueSlug returns candidate if no other game uses it, otherwise the
// first free "stem-N". A candidate already ending in "-N" continues from
// N+1. After maxSlugAttempts collisions the current unix milliseconds are
// appended to the candidate instead.
func EnsureUniqueSlug(ctx context.Context, checker SlugChecker, candidate, excludeID string) (string, error) {
	base := strings.TrimSpace(candidate)
	if base == "" {
		return base, nil
	}

	taken, err := checker.SlugExists(ctx, base, excludeID)
	if err != nil {
		return "", fmt.Errorf("checking slug %q: %w", base, err)
	}
	if !taken {
		return base, nil
	}

	stem, start := base, 2
	if m := numericSuffix.FindStringSubmatch(base); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil {
			stem, start = m[1], n+1
		}
	}

	for i := start; i < start+maxSlugAttempts; i++ {
		next := fmt.Sprintf("%s-%d", stem, i)
		taken, err := checker.SlugExists(ctx, next, excludeID)
		if err != nil {
			return "", fmt.Errorf("checking slug %q: %w", next, err)
		}
		if !taken {
			return next, nil
		}
	}

	return fmt.Sprintf("%s-%d", base, now().UnixMilli()), nil
}

// Slugify derives a URL-safe slug from a title
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = stripMarks(norm.NFKD.String(s))
	s = slugStrip.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = whitespaceRun.ReplaceAllString(s, "-")
	s = dashRun.ReplaceAllString(s, "-")
	if len(s) > maxSlugLength {
		s = s[:maxSlugLength]
	}
	return strings.Trim(s, "-")
}

// SanitizeSlug cleans a caller-supplied slug without re-deriving it
func SanitizeSlug(slug string) string {
	s := strings.ToLower(strings.TrimSpace(slug))
	s = slugUnsafe.ReplaceAllString(s, "")
	s = dashRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func stripMarks(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return r
	}, s)
}
