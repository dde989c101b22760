package site

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/language"
)

// Built-in locales used when a document carries no locale configuration
const (
	LocaleEnglish = "en"
	LocaleChinese = "zh"
)

// DefaultSupportedLocales returns the locales a fresh site is created with
func DefaultSupportedLocales() []string {
	return []string{LocaleEnglish, LocaleChinese}
}

// CanonicalLocale parses a BCP 47 tag and returns its canonical form ("EN" -> "en", "zh-cn" -> "zh-CN").
func CanonicalLocale(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("empty locale code")
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("invalid locale code %q: %w", code, err)
	}
	return tag.String(), nil
}

// LocaleConfig holds the locales a site is published in
type LocaleConfig struct {
	Supported []string `json:"supported" validate:"min=1,dive,locale"`
	Default   string   `json:"default" validate:"required,locale"`
}

// normalize canonicalizes codes, drops duplicates and invalid entries and
// guarantees Default is a member of Supported.
func (c *LocaleConfig) normalize() {
	seen := make(map[string]bool, len(c.Supported))
	supported := make([]string, 0, len(c.Supported))
	for _, code := range c.Supported {
		canonical, err := CanonicalLocale(code)
		if err != nil || seen[canonical] {
			continue
		}
		seen[canonical] = true
		supported = append(supported, canonical)
	}
	if len(supported) == 0 {
		supported = DefaultSupportedLocales()
	}
	c.Supported = supported

	def, err := CanonicalLocale(c.Default)
	if err != nil || !slices.Contains(c.Supported, def) {
		def = c.Supported[0]
	}
	c.Default = def
}

// LocalizedText maps a locale code to a translation.
// An untranslated locale is an empty string, never a missing key.
type LocalizedText map[string]string

// Text builds a LocalizedText from alternating locale/value pairs
func Text(pairs ...string) LocalizedText {
	t := make(LocalizedText, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		t[pairs[i]] = pairs[i+1]
	}
	return t
}

// Get returns the translation for locale, falling back to fallback when blank
func (t LocalizedText) Get(locale, fallback string) string {
	if v := strings.TrimSpace(t[locale]); v != "" {
		return t[locale]
	}
	return t[fallback]
}

// IsBlank reports whether every translation is blank
func (t LocalizedText) IsBlank() bool {
	for _, v := range t {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Complete reports whether locale has a non-blank translation
func (t LocalizedText) Complete(locale string) bool {
	return strings.TrimSpace(t[locale]) != ""
}

// Clone returns a copy of t
func (t LocalizedText) Clone() LocalizedText {
	if t == nil {
		return nil
	}
	return maps.Clone(t)
}

// withLocales returns t with a key for every locale.
// Keys of locales that are no longer supported are kept so no content is lost.
func (t LocalizedText) withLocales(locales []string) LocalizedText {
	if t == nil {
		t = make(LocalizedText, len(locales))
	}
	for _, l := range locales {
		if _, ok := t[l]; !ok {
			t[l] = ""
		}
	}
	return t
}

// LocalizedList maps a locale code to an ordered list of strings (product features)
type LocalizedList map[string][]string

// Clone returns a deep copy of l
func (l LocalizedList) Clone() LocalizedList {
	if l == nil {
		return nil
	}
	out := make(LocalizedList, len(l))
	for k, v := range l {
		out[k] = slices.Clone(v)
	}
	return out
}

func (l LocalizedList) withLocales(locales []string) LocalizedList {
	if l == nil {
		l = make(LocalizedList, len(locales))
	}
	for _, code := range locales {
		if l[code] == nil {
			l[code] = []string{}
		}
	}
	return l
}
