package domain

import (
	"net/url"
	"strings"
	"unicode"
)

// CanonicalURL lower-cases scheme and host, drops the fragment and
// gives an empty path a single slash. Unparseable input is returned trimmed.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

// NormalizePath returns the URL path without a trailing slash; the root is "/".
func NormalizePath(raw string) string {
	p := raw
	if u, err := url.Parse(strings.TrimSpace(raw)); err == nil {
		p = u.Path
	}
	p = strings.TrimRight(p, "/")
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// URLVariants returns the canonical URL together with its trailing-slash
// and http/https twins. The canonical form is always first.
func URLVariants(raw string) []string {
	canonical := CanonicalURL(raw)
	u, err := url.Parse(canonical)
	if err != nil || u.Host == "" {
		return []string{canonical}
	}

	paths := []string{u.Path}
	if u.Path != "/" {
		if strings.HasSuffix(u.Path, "/") {
			paths = append(paths, strings.TrimRight(u.Path, "/"))
		} else {
			paths = append(paths, u.Path+"/")
		}
	}

	schemes := []string{u.Scheme}
	switch u.Scheme {
	case "https":
		schemes = append(schemes, "http")
	case "http":
		schemes = append(schemes, "https")
	}

	seen := map[string]bool{}
	var out []string
	for _, s := range schemes {
		for _, p := range paths {
			v := *u
			v.Scheme = s
			v.Path = p
			str := v.String()
			if !seen[str] {
				seen[str] = true
				out = append(out, str)
			}
		}
	}
	return out
}

// CategoryFromURL derives the category slug from the first path segment.
func CategoryFromURL(raw string) string {
	p := NormalizePath(raw)
	segment := strings.SplitN(strings.TrimPrefix(p, "/"), "/", 2)[0]
	if unescaped, err := url.PathUnescape(segment); err == nil {
		segment = unescaped
	}
	if slug := Slugify(segment); slug != "" {
		return slug
	}
	return DefaultCategory
}

// Slugify lower-cases s and collapses every run of characters other than
// ASCII letters and digits into a single hyphen.
func Slugify(s string) string {
	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			hyphen = false
			continue
		}
		if !hyphen && b.Len() > 0 {
			b.WriteByte('-')
			hyphen = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
