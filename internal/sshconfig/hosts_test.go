package sshconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoveHostEntry(t *testing.T) {
	lines := []string{
		"Host github.com",
		"  User git",
		"Host 10.0.0.5",
		"  # canary",
		"  IdentityFile /home/u/.ssh/old",
		"  PasswordAuthentication no",
		"Host *",
		"  ServerAliveInterval 30",
	}

	kept, identity := RemoveHostEntry(lines, "10.0.0.5")

	assert.Equal(t, []string{
		"Host github.com",
		"  User git",
		"Host *",
		"  ServerAliveInterval 30",
	}, kept)
	assert.Equal(t, "/home/u/.ssh/old", identity)
}

func TestRemoveHostEntryCaseInsensitiveKeywords(t *testing.T) {
	lines := []string{
		"\tHOST 10.0.0.5",
		"\tidentityfile /k",
		"host other",
	}

	kept, identity := RemoveHostEntry(lines, "10.0.0.5")

	assert.Equal(t, []string{"host other"}, kept)
	assert.Equal(t, "/k", identity)
}

func TestRemoveHostEntryIgnoresMultiHostLines(t *testing.T) {
	lines := []string{
		"Host 10.0.0.5 10.0.0.6",
		"  IdentityFile /shared",
	}

	kept, identity := RemoveHostEntry(lines, "10.0.0.5")

	assert.Equal(t, lines, kept)
	assert.Empty(t, identity)
}

func TestRemoveHostEntryNoMatch(t *testing.T) {
	lines := []string{"Host a", "  IdentityFile /a"}

	kept, identity := RemoveHostEntry(lines, "b")

	assert.Equal(t, lines, kept)
	assert.Empty(t, identity)
}

func TestIndentation(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{"empty", nil, ""},
		{"no indented lines", []string{"Host a", "User b"}, ""},
		{"spaces", []string{"Host a", "    User b", "\tPort 22"}, "    "},
		{"tabs", []string{"", "Host a", "\tUser b"}, "\t"},
		{"mixed run", []string{"Host a", " \tUser b"}, " \t"},
		{"kept line endings", []string{"\r", "\n", "Host a", "  User b\r"}, "  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Indentation(tt.lines))
		})
	}
}

func TestHostBlock(t *testing.T) {
	assert.Equal(t, []string{
		"Host 10.0.0.5",
		"\tIdentityFile /k",
		"\tPasswordAuthentication no",
	}, HostBlock("10.0.0.5", "/k", "\t"))
}
