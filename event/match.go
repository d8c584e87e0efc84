package event

import "strings"

// Matches implements SCXML token matching: token T matches name N iff
// T == N, or T is a prefix of N followed by ".", or T is "*" or ends in
// ".*".
func Matches(token, name string) bool {
	if token == "*" {
		return true
	}
	if token == name {
		return true
	}
	if strings.HasSuffix(token, ".*") {
		prefix := strings.TrimSuffix(token, ".*")
		return name == prefix || strings.HasPrefix(name, prefix+".")
	}
	return strings.HasPrefix(name, token+".")
}

// DescriptorMatches reports whether any space-separated token in
// descriptor matches name. An empty descriptor never matches a named
// event (it is eventless, matched separately by the selector).
func DescriptorMatches(descriptor []string, name string) bool {
	for _, tok := range descriptor {
		if Matches(tok, name) {
			return true
		}
	}
	return false
}
