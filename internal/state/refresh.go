package state

import "time"

const (
	// ExpiryLeeway is how long before expiry a credential is reissued.
	ExpiryLeeway = 2 * time.Hour

	// SSHMaxAge is how long an SSH key pair is kept before it is rotated.
	SSHMaxAge = 24 * time.Hour
)

// NeedsRefresh reports whether c is due for reissue at now. Records with an
// expiry are due ExpiryLeeway before it, and never if they have none. SSH
// key pairs are due SSHMaxAge after creation. Unknown types are never due.
func NeedsRefresh(c Credential, now time.Time) bool {
	switch v := c.(type) {
	case *SSHCredential:
		return !now.Before(v.CreatedAt.Add(SSHMaxAge))
	case *AWSCredential, *EmailCredential, *CookieCredential, *UsernamePasswordCredential:
		exp := c.Common().ExpiresAt
		if exp == nil {
			return false
		}
		return !now.Before(exp.Add(-ExpiryLeeway))
	}
	return false
}

// Due returns the records in st that need refreshing at now.
func (s *State) Due(now time.Time) []Credential {
	var due []Credential
	for _, c := range s.Credentials {
		if NeedsRefresh(c, now) {
			due = append(due, c)
		}
	}
	return due
}
