// Package fileid derives deterministic document ids for ingested files and pages.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path/filepath"
	"strings"
)

const (
	filePrefix = "file:"
	pagePrefix = "page:"
)

// FileDocID returns a stable document ID for the given absolute path.
// Same path always yields the same ID, so re-ingesting a file updates its document.
func FileDocID(absolutePath string) string {
	return digest(filePrefix, filepath.Clean(absolutePath))
}

// PageDocID returns a stable document ID for a page URL. Scheme and host are
// lower-cased; the fragment and a trailing slash are ignored. Unparseable input is
// hashed as given.
func PageDocID(rawURL string) string {
	return digest(pagePrefix, NormalizeURL(rawURL))
}

// NormalizeURL returns the canonical form PageDocID hashes.
func NormalizeURL(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if len(u.Path) > 1 {
		u.Path = strings.TrimRight(u.Path, "/")
		u.RawPath = ""
	}
	return u.String()
}

// Kind returns "file" or "page" for ids produced by this package, or "" otherwise.
func Kind(id string) string {
	switch {
	case strings.HasPrefix(id, filePrefix):
		return "file"
	case strings.HasPrefix(id, pagePrefix):
		return "page"
	}
	return ""
}

func digest(prefix, s string) string {
	hash := sha256.Sum256([]byte(s))
	return prefix + hex.EncodeToString(hash[:])
}
