package awsconfig

import "strings"

// HeaderStyle selects how a profile section header names its profile.
type HeaderStyle int

const (
	// ConfigHeader is the "[profile <name>]" form used by ~/.aws/config.
	ConfigHeader HeaderStyle = iota
	// CredentialsHeader is the "[<name>]" form used by ~/.aws/credentials.
	CredentialsHeader
)

// Header returns the section header line for profile in this style.
func (s HeaderStyle) Header(profile string) string {
	if s == ConfigHeader {
		return "[profile " + profile + "]"
	}
	return "[" + profile + "]"
}

// sectionName returns the interior of a "[...]" header line and whether
// line is a header at all.
func sectionName(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < 2 || !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		return "", false
	}
	return trimmed[1 : len(trimmed)-1], true
}

// matches reports whether a header interior names profile in canonical
// shape. Headers of other shapes, such as multi-word aliases, never match.
func (s HeaderStyle) matches(interior, profile string) bool {
	parts := strings.Fields(interior)
	switch s {
	case ConfigHeader:
		return len(parts) == 2 && strings.EqualFold(parts[0], "profile") && parts[1] == profile
	default:
		return len(parts) == 1 && parts[0] == profile
	}
}

// FilterProfile returns lines with the section for profile removed. A
// matched section runs from its header up to, not including, the next
// header line of any shape, and its comments go with it. Everything
// outside it, comments and blank lines included, is kept verbatim.
func FilterProfile(lines []string, profile string, style HeaderStyle) []string {
	out := make([]string, 0, len(lines))
	skip := false
	for _, line := range lines {
		if interior, ok := sectionName(line); ok {
			skip = style.matches(interior, profile)
			if skip {
				continue
			}
		}
		if !skip {
			out = append(out, line)
		}
	}
	return out
}

// ConfigSection returns the lines of a config-file section for profile.
// The trailing blank line separates it from whatever is appended next.
func ConfigSection(profile, region string) []string {
	return []string{
		ConfigHeader.Header(profile),
		"region = " + region,
		"",
	}
}

// CredentialsSection returns the lines of a credentials-file section.
func CredentialsSection(profile string, creds Credentials) []string {
	return []string{
		CredentialsHeader.Header(profile),
		"aws_access_key_id = " + creds.AccessKeyID,
		"aws_secret_access_key = " + creds.SecretAccessKey,
		"aws_session_token = " + creds.SessionToken,
	}
}
