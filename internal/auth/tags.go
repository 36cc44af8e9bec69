package auth

import "strings"

// findRecord returns the first record carrying marker, case-insensitively
func findRecord(records []string, marker string) (string, bool) {
	marker = strings.ToLower(marker)
	for _, r := range records {
		if strings.Contains(strings.ToLower(r), marker) {
			return r, true
		}
	}
	return "", false
}

// parseTags splits a "k=v; k=v" tag list as used by DKIM signatures, DKIM
// keys and DMARC records. Tag names are lower-cased and whitespace inside
// values is removed, so folded header values parse the same as unfolded ones.
func parseTags(list string) map[string]string {
	tags := make(map[string]string)
	for _, part := range strings.Split(list, ";") {
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, seen := tags[name]; seen {
			continue
		}
		tags[name] = strings.Join(strings.Fields(value), "")
	}
	return tags
}
