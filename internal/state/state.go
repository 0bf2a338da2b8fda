package state

import (
	"encoding/json"
	"slices"
)

// State is the full list of deployed canaries.
type State struct {
	Credentials []Credential

	// Top-level fields this version does not know.
	extra map[string]json.RawMessage
}

// sameIdentity reports whether a and b have the same (type, name).
func sameIdentity(a, b Credential) bool {
	return a.Type() == b.Type() && a.Common().Name == b.Common().Name
}

func (s *State) index(typ, name string) int {
	return slices.IndexFunc(s.Credentials, func(c Credential) bool {
		return c.Type() == typ && c.Common().Name == name
	})
}

// Find returns the record with the given type and name, or nil.
func (s *State) Find(typ, name string) Credential {
	if i := s.index(typ, name); i >= 0 {
		return s.Credentials[i]
	}
	return nil
}

// AddOrReplace stores c, replacing in place any record with the same type
// and name. New records are appended.
func (s *State) AddOrReplace(c Credential) {
	for i, existing := range s.Credentials {
		if sameIdentity(existing, c) {
			s.Credentials[i] = c
			return
		}
	}
	s.Credentials = append(s.Credentials, c)
}

// Remove deletes every record with the given type and name and reports
// whether any existed.
func (s *State) Remove(typ, name string) bool {
	n := len(s.Credentials)
	s.Credentials = slices.DeleteFunc(s.Credentials, func(c Credential) bool {
		return c.Type() == typ && c.Common().Name == name
	})
	return len(s.Credentials) != n
}

// MissingTypes returns the types in want that have no record named name.
// Email canaries always use EmailCanaryName, so an email record of any
// name counts only if it carries that name.
func (s *State) MissingTypes(name string, want []string) []string {
	var missing []string
	for _, typ := range want {
		lookup := name
		if typ == TypeEmail {
			lookup = EmailCanaryName
		}
		if s.index(typ, lookup) < 0 {
			missing = append(missing, typ)
		}
	}
	return missing
}

func filter[T Credential](s *State) []T {
	var out []T
	for _, c := range s.Credentials {
		if v, ok := c.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// AWS returns the AWS records in order.
func (s *State) AWS() []*AWSCredential { return filter[*AWSCredential](s) }

// SSH returns the SSH records in order.
func (s *State) SSH() []*SSHCredential { return filter[*SSHCredential](s) }

// Emails returns the email records in order.
func (s *State) Emails() []*EmailCredential { return filter[*EmailCredential](s) }

// Cookies returns the session cookie records in order.
func (s *State) Cookies() []*CookieCredential { return filter[*CookieCredential](s) }

// UsernamePasswords returns the login pair records in order.
func (s *State) UsernamePasswords() []*UsernamePasswordCredential {
	return filter[*UsernamePasswordCredential](s)
}
