package sshconfig

import (
	"strings"
	"unicode"
)

// RemoveHostEntry returns lines without the block for host, along with the
// IdentityFile path that block named, if any. Only a Host line naming
// exactly host, and nothing else, starts a block; it ends at the next Host
// line. Host lines with several patterns are never matched.
func RemoveHostEntry(lines []string, host string) (kept []string, identityFile string) {
	kept = make([]string, 0, len(lines))
	skip := false
	for _, line := range lines {
		parts := strings.Fields(line)
		if len(parts) > 0 && strings.EqualFold(parts[0], "host") {
			skip = len(parts) == 2 && parts[1] == host
			if skip {
				continue
			}
		}

		if !skip {
			kept = append(kept, line)
			continue
		}
		if len(parts) >= 2 && strings.EqualFold(parts[0], "identityfile") {
			identityFile = parts[1]
		}
	}
	return kept, identityFile
}

// Indentation returns the leading whitespace of the first indented line,
// or "" when no line is indented. Line endings kept in the text are not
// indentation.
func Indentation(lines []string) string {
	for _, line := range lines {
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		end := strings.IndexFunc(line, func(r rune) bool { return !unicode.IsSpace(r) })
		switch {
		case end == 0:
			continue
		case end < 0:
			return line
		default:
			return line[:end]
		}
	}
	return ""
}

// HostBlock returns the lines of a Host block pointing at identityFile.
func HostBlock(host, identityFile, indent string) []string {
	return []string{
		"Host " + host,
		indent + "IdentityFile " + identityFile,
		indent + "PasswordAuthentication no",
	}
}
