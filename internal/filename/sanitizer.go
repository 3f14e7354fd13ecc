// Package filename provides filename sanitization for downloaded recording bundles
package filename

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Sanitizer handles filename sanitization for recording bundles
type Sanitizer interface {
	// SanitizeTitle converts a meeting title to a filesystem-safe lowercase string with dashes
	SanitizeTitle(title string) string

	// BundleFileName creates a safe local filename for a bundle, preserving the .zip extension
	BundleFileName(title string) string
}

// SanitizerOptions contains configuration options for the sanitizer
type SanitizerOptions struct {
	// MaxTitleLength sets the maximum length for a sanitized title (default: 100)
	MaxTitleLength int

	// DefaultTitle is used when the title is empty or only contains invalid characters (default: "untitled")
	DefaultTitle string
}

type sanitizerImpl struct {
	maxTitleLength int
	defaultTitle   string

	// Compiled regex for performance
	invalidCharsRegex   *regexp.Regexp
	multipleSpacesRegex *regexp.Regexp
	multipleDashesRegex *regexp.Regexp
}

// NewSanitizer creates a new Sanitizer with the given options
func NewSanitizer(options SanitizerOptions) Sanitizer {
	maxLength := options.MaxTitleLength
	if maxLength <= 0 {
		maxLength = 100
	}

	defaultTitle := options.DefaultTitle
	if defaultTitle == "" {
		defaultTitle = "untitled"
	}

	return &sanitizerImpl{
		maxTitleLength:      maxLength,
		defaultTitle:        defaultTitle,
		invalidCharsRegex:   regexp.MustCompile(`[<>:"/\\|?*]`),
		multipleSpacesRegex: regexp.MustCompile(`\s+`),
		multipleDashesRegex: regexp.MustCompile(`-+`),
	}
}

// SanitizeTitle converts a meeting title to a filesystem-safe lowercase string with dashes
func (s *sanitizerImpl) SanitizeTitle(title string) string {
	if title == "" {
		return s.defaultTitle
	}

	// Normalize unicode characters and remove diacritics
	normalized := s.normalizeUnicode(title)

	// Remove invalid filesystem characters but preserve spaces for word separation
	cleaned := s.invalidCharsRegex.ReplaceAllString(normalized, " ")

	// Replace remaining punctuation with spaces, keeping alphanumerics intact
	var result strings.Builder
	for _, r := range cleaned {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		} else {
			result.WriteRune(' ')
		}
	}

	singleSpaced := s.multipleSpacesRegex.ReplaceAllString(result.String(), " ")
	trimmed := strings.TrimSpace(singleSpaced)
	lowercased := strings.ToLower(trimmed)

	dashed := strings.ReplaceAll(lowercased, " ", "-")
	dashed = strings.ReplaceAll(dashed, "_", "-")
	dashed = s.multipleDashesRegex.ReplaceAllString(dashed, "-")
	dashed = strings.Trim(dashed, "-")

	if dashed == "" {
		return s.defaultTitle
	}

	// Truncate to max length, avoiding a cut in the middle of a word
	if len(dashed) > s.maxTitleLength {
		truncated := dashed[:s.maxTitleLength]
		lastDash := strings.LastIndex(truncated, "-")
		if lastDash > s.maxTitleLength*2/3 {
			dashed = truncated[:lastDash]
		} else {
			dashed = truncated
		}
		dashed = strings.TrimRight(dashed, "-")
	}

	return dashed
}

// BundleFileName creates a safe local filename for a bundle, preserving the
// .zip extension when the source title carries one.
func (s *sanitizerImpl) BundleFileName(title string) string {
	base := title
	if strings.EqualFold(strings.TrimSpace(title), "") {
		return s.defaultTitle + ".zip"
	}
	if strings.HasSuffix(strings.ToLower(title), ".zip") {
		base = title[:len(title)-len(".zip")]
	}
	return s.SanitizeTitle(base) + ".zip"
}

// normalizeUnicode removes diacritics and converts unicode to ASCII equivalents
func (s *sanitizerImpl) normalizeUnicode(in string) string {
	// Create a transformer that removes diacritics
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	result, _, _ := transform.String(t, in)

	// Remove emojis and other non-printable unicode characters
	var cleaned strings.Builder
	for _, r := range result {
		if r <= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || unicode.IsPunct(r)) {
			cleaned.WriteRune(r)
		} else if unicode.IsSpace(r) {
			cleaned.WriteRune(' ')
		}
	}

	return cleaned.String()
}
