// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// arxivPattern matches new-style arXiv ids with optional prefix and version:
// "2301.07041", "arXiv:2301.07041", "2301.07041v2".
var arxivPattern = regexp.MustCompile(`^(?i:arxiv:)?(\d{4}\.\d{4,5})(?:v\d+)?$`)

// legacyPattern matches old-style ids such as "hep-th/9901001v1".
var legacyPattern = regexp.MustCompile(`^(?i:arxiv:)?([a-z\-]+(?:\.[A-Z]{2})?/\d{7})(?:v\d+)?$`)

// arxivDOIPrefix is the DataCite prefix arXiv registers DOIs under.
const arxivDOIPrefix = "10.48550/arxiv."

// ParseArxivID extracts a bare, version-free arXiv id from an id, an
// "arXiv:" reference, an arXiv DOI, or an abs/pdf URL. It returns false
// when the input is none of those.
func ParseArxivID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	if lower := strings.ToLower(s); strings.HasPrefix(lower, arxivDOIPrefix) {
		return matchID(s[len(arxivDOIPrefix):])
	} else if strings.HasPrefix(lower, "https://doi.org/"+arxivDOIPrefix) {
		return matchID(s[len("https://doi.org/"+arxivDOIPrefix):])
	}

	if strings.Contains(s, "arxiv.org/") {
		u, err := url.Parse(s)
		if err != nil {
			return "", false
		}
		p := strings.TrimSuffix(u.Path, "/")
		p = strings.TrimSuffix(p, ".pdf")
		for _, marker := range []string{"/abs/", "/pdf/", "/html/"} {
			if i := strings.Index(p, marker); i >= 0 {
				return matchID(p[i+len(marker):])
			}
		}
		return matchID(path.Base(p))
	}

	return matchID(s)
}

func matchID(s string) (string, bool) {
	if m := arxivPattern.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	if m := legacyPattern.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	return "", false
}

// LastPathID takes the last path segment of a paper URL and strips a
// ".pdf" extension and version suffix. It accepts any final segment, so it
// also yields ids for arXiv listing pages that ParseArxivID rejects.
func LastPathID(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	seg := path.Base(strings.TrimSuffix(u.Path, "/"))
	if seg == "." || seg == "/" {
		return ""
	}
	seg = strings.TrimSuffix(seg, ".pdf")
	return StripVersion(seg)
}

// StripVersion removes a trailing "vN" version suffix.
func StripVersion(id string) string {
	i := strings.LastIndex(id, "v")
	if i <= 0 || i == len(id)-1 {
		return id
	}
	for _, r := range id[i+1:] {
		if r < '0' || r > '9' {
			return id
		}
	}
	return id[:i]
}

// graphPaperRef returns the Semantic Scholar path form of an id. arXiv ids
// get the ARXIV: prefix; ids that already carry a namespace prefix or look
// like a 40-character S2 paper hash pass through.
func graphPaperRef(id string) string {
	id = strings.TrimSpace(id)
	if arxivID, ok := ParseArxivID(id); ok {
		return "ARXIV:" + arxivID
	}
	if strings.Contains(id, ":") {
		return id
	}
	if len(id) == 40 && isHex(id) {
		return id
	}
	return "ARXIV:" + id
}

func isHex(s string) bool {
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return false
		}
	}
	return true
}
