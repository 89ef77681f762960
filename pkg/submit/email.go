package submit

import "strings"

// IsValidEmail is a syntactic sanity check: a non-blank user part, exactly
// one '@', and a domain of at least two non-blank dot-separated labels.
//
// It is not RFC 5322 validation. Quoted local parts, IP-literal domains and
// internationalized addresses are not handled.
func IsValidEmail(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return false
	}
	user, domain := parts[0], parts[1]
	if strings.TrimSpace(user) == "" {
		return false
	}
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	for _, l := range labels {
		if strings.TrimSpace(l) == "" {
			return false
		}
	}
	return true
}
