package state

import (
	"encoding/json"
	"strings"
	"time"
)

// Type discriminators. They are part of the on-disk format and never change.
const (
	TypeAWS                    = "aws"
	TypeSSH                    = "ssh"
	TypeEmail                  = "email"
	TypeGitlabCookie           = "gitlab-cookie"
	TypeGitlabUsernamePassword = "gitlab-username-password"
)

// EmailCanaryName is the fixed name email canaries are recorded under,
// whatever name the rest of a deployment uses.
const EmailCanaryName = "Backup Codes Email"

// Label is a name/value pair attached to a credential.
type Label struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ParseLabels parses "k=v,k2=v2". Empty and malformed pairs are ignored.
func ParseLabels(s string) []Label {
	var labels []Label
	for _, pair := range strings.Split(s, ",") {
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		labels = append(labels, Label{Name: name, Value: value})
	}
	return labels
}

// Base holds the fields every credential record carries.
type Base struct {
	Name      string
	CreatedAt time.Time
	// ExpiresAt is the local view of expiry and may drift from the issuer's.
	ExpiresAt *time.Time
	// Path is where the artifact was written, or "" if there is no file.
	Path   string
	Labels []Label
	// Target is the endpoint the credential points at (IP, hostname, address).
	Target string
	// TriggerableAfter marks when use stops being a likely false positive.
	TriggerableAfter *time.Time

	// Extra holds fields this version does not know, kept for rewriting.
	Extra map[string]json.RawMessage
}

// Credential is one persisted canary record. The concrete types are
// *AWSCredential, *SSHCredential, *EmailCredential, *CookieCredential,
// *UsernamePasswordCredential and *UnknownCredential.
type Credential interface {
	// Type returns the discriminator.
	Type() string
	// Common returns the shared fields.
	Common() *Base
}

// AWSCredential is an AWS access key canary written to a named profile.
type AWSCredential struct {
	Base
	Profile string
	Region  string
}

func (*AWSCredential) Type() string    { return TypeAWS }
func (c *AWSCredential) Common() *Base { return &c.Base }

// ProfileOr returns the profile, or def for records written before the
// profile was stored.
func (c *AWSCredential) ProfileOr(def string) string {
	if c.Profile == "" {
		return def
	}
	return c.Profile
}

// RegionOr returns the region, or def if none was stored.
func (c *AWSCredential) RegionOr(def string) string {
	if c.Region == "" {
		return def
	}
	return c.Region
}

// SSHCredential is an SSH key pair canary. Target is the host IP and Path
// the private key.
type SSHCredential struct {
	Base
}

func (*SSHCredential) Type() string    { return TypeSSH }
func (c *SSHCredential) Common() *Base { return &c.Base }

// EmailCredential is a monitored email. Target is the recipient.
type EmailCredential struct {
	Base
	From    string
	Subject string
}

func (*EmailCredential) Type() string    { return TypeEmail }
func (c *EmailCredential) Common() *Base { return &c.Base }

// CookieCredential is a browser session cookie canary.
type CookieCredential struct {
	Base
}

func (*CookieCredential) Type() string    { return TypeGitlabCookie }
func (c *CookieCredential) Common() *Base { return &c.Base }

// UsernamePasswordCredential is a login pair canary.
type UsernamePasswordCredential struct {
	Base
}

func (*UsernamePasswordCredential) Type() string    { return TypeGitlabUsernamePassword }
func (c *UsernamePasswordCredential) Common() *Base { return &c.Base }

// UnknownCredential is a record of a type this version does not know. It
// is rewritten exactly as read.
type UnknownCredential struct {
	TypeName string
	Fields   map[string]json.RawMessage

	// base is decoded from Fields on a best-effort basis. Changes to it are
	// not persisted.
	base Base
}

func (c *UnknownCredential) Type() string  { return c.TypeName }
func (c *UnknownCredential) Common() *Base { return &c.base }

// IsHTTP reports whether c is issued through the HTTP canary endpoints.
func IsHTTP(c Credential) bool {
	switch c.(type) {
	case *EmailCredential, *CookieCredential, *UsernamePasswordCredential:
		return true
	}
	return false
}

// DisplayType returns a short human name for the credential's type.
func DisplayType(c Credential) string {
	switch c.(type) {
	case *AWSCredential:
		return "AWS"
	case *SSHCredential:
		return "SSH"
	case *EmailCredential:
		return "email"
	case *CookieCredential:
		return "cookie"
	case *UsernamePasswordCredential:
		return "username/password"
	}
	return c.Type()
}
