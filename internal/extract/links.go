package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"time"
)

// CanonicalLink normalizes a post permalink: absolute https URL on the
// canonical host, tracking query and fragment stripped. Returns "" when
// the href is not a /status/ permalink.
func CanonicalLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "/") {
		href = "https://x.com" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	// handle/status/id, with optional trailing segments (/photo/1 etc.)
	if len(parts) < 3 || parts[1] != "status" || !allDigits(parts[2]) {
		return ""
	}
	return "https://x.com/" + parts[0] + "/status/" + parts[2]
}

// PostID pulls the numeric status id out of a permalink, or "".
func PostID(link string) string {
	i := strings.Index(link, "/status/")
	if i < 0 {
		return ""
	}
	id := link[i+len("/status/"):]
	if j := strings.IndexByte(id, '/'); j >= 0 {
		id = id[:j]
	}
	if !allDigits(id) {
		return ""
	}
	return id
}

// DerivedKey builds a stable pseudo-permalink for posts whose real
// permalink could not be read, so dedup and storage still have a key.
func DerivedKey(author, text string, postedAt time.Time) string {
	sum := sha256.Sum256([]byte(author + "\x00" + text))
	return "derived://" + author + "/" + postedAt.UTC().Format("20060102T150405") +
		"/" + hex.EncodeToString(sum[:8])
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
