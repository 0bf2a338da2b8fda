package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"
)

// baseKeys are the fields every record type understands.
var baseKeys = []string{
	"type", "name", "createdAt", "expiresAt", "path", "labels", "target", "credentialTriggerableAfter",
}

// typeKeys lists the extra fields of each known record type.
var typeKeys = map[string][]string{
	TypeAWS:                    {"awsProfile", "awsRegion"},
	TypeSSH:                    nil,
	TypeEmail:                  {"emailFrom", "emailSubject"},
	TypeGitlabCookie:           nil,
	TypeGitlabUsernamePassword: nil,
}

func isKnownKey(typ, key string) bool {
	return slices.Contains(baseKeys, key) || slices.Contains(typeKeys[typ], key)
}

// timestamp reads RFC 3339 times and zone-less local times such as
// "2025-01-02T15:04:05.1234567", and writes RFC 3339 with the offset.
type timestamp struct {
	time.Time
}

func (t *timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if v, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = v
		return nil
	}
	if v, err := time.ParseInLocation("2006-01-02T15:04:05", s, time.Local); err == nil {
		t.Time = v
		return nil
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

func (t timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(time.RFC3339Nano))
}

func timePtr(t *timestamp) *time.Time {
	if t == nil {
		return nil
	}
	v := t.Time
	return &v
}

func stampPtr(t *time.Time) *timestamp {
	if t == nil {
		return nil
	}
	return &timestamp{Time: *t}
}

func strOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// wireRecord is the on-disk shape of every known record type.
type wireRecord struct {
	Type             string     `json:"type"`
	Name             string     `json:"name"`
	CreatedAt        timestamp  `json:"createdAt"`
	ExpiresAt        *timestamp `json:"expiresAt"`
	Path             string     `json:"path"`
	Labels           []Label    `json:"labels,omitempty"`
	Target           *string    `json:"target,omitempty"`
	TriggerableAfter *timestamp `json:"credentialTriggerableAfter,omitempty"`
	AWSProfile       *string    `json:"awsProfile,omitempty"`
	AWSRegion        *string    `json:"awsRegion,omitempty"`
	EmailFrom        *string    `json:"emailFrom,omitempty"`
	EmailSubject     *string    `json:"emailSubject,omitempty"`
}

func (w *wireRecord) base() Base {
	return Base{
		Name:             w.Name,
		CreatedAt:        w.CreatedAt.Time,
		ExpiresAt:        timePtr(w.ExpiresAt),
		Path:             w.Path,
		Labels:           w.Labels,
		Target:           strOr(w.Target),
		TriggerableAfter: timePtr(w.TriggerableAfter),
	}
}

func wireFrom(typ string, b *Base) wireRecord {
	return wireRecord{
		Type:             typ,
		Name:             b.Name,
		CreatedAt:        timestamp{Time: b.CreatedAt},
		ExpiresAt:        stampPtr(b.ExpiresAt),
		Path:             b.Path,
		Labels:           b.Labels,
		Target:           strPtr(b.Target),
		TriggerableAfter: stampPtr(b.TriggerableAfter),
	}
}

// decodeCredential decodes one record, dispatching on its "type" field.
func decodeCredential(raw json.RawMessage) (Credential, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("record is null")
	}
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	if head.Type == "" {
		return nil, errors.New("record has no type")
	}

	var w wireRecord
	if _, known := typeKeys[head.Type]; !known {
		// The record is kept verbatim; common fields that do not decode
		// are left empty.
		if err := json.Unmarshal(raw, &w); err != nil {
			w = wireRecord{}
		}
		return &UnknownCredential{TypeName: head.Type, Fields: fields, base: w.base()}, nil
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%s record: %w", head.Type, err)
	}

	base := w.base()
	for key, value := range fields {
		if isKnownKey(head.Type, key) {
			continue
		}
		if base.Extra == nil {
			base.Extra = make(map[string]json.RawMessage)
		}
		base.Extra[key] = value
	}

	switch head.Type {
	case TypeAWS:
		return &AWSCredential{Base: base, Profile: strOr(w.AWSProfile), Region: strOr(w.AWSRegion)}, nil
	case TypeSSH:
		return &SSHCredential{Base: base}, nil
	case TypeEmail:
		return &EmailCredential{Base: base, From: strOr(w.EmailFrom), Subject: strOr(w.EmailSubject)}, nil
	case TypeGitlabCookie:
		return &CookieCredential{Base: base}, nil
	default:
		return &UsernamePasswordCredential{Base: base}, nil
	}
}

// encodeCredential encodes one record with its discriminator and any
// fields carried over from the file it was read from.
func encodeCredential(c Credential) ([]byte, error) {
	if u, ok := c.(*UnknownCredential); ok {
		return json.Marshal(u.Fields)
	}

	b := c.Common()
	w := wireFrom(c.Type(), b)
	switch v := c.(type) {
	case *AWSCredential:
		w.AWSProfile = strPtr(v.Profile)
		w.AWSRegion = strPtr(v.Region)
	case *EmailCredential:
		w.EmailFrom = strPtr(v.From)
		w.EmailSubject = strPtr(v.Subject)
	}

	data, err := json.Marshal(w)
	if err != nil {
		return nil, err
	}
	return appendFields(data, b.Extra, func(key string) bool { return isKnownKey(c.Type(), key) })
}

// appendFields adds extra members, in key order, to the encoded object obj.
// Keys for which skip reports true are left out.
func appendFields(obj []byte, extra map[string]json.RawMessage, skip func(string) bool) ([]byte, error) {
	keys := make([]string, 0, len(extra))
	for key := range extra {
		if !skip(key) {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return obj, nil
	}
	slices.Sort(keys)

	out := obj[:len(obj)-1]
	empty := len(out) == 1
	for _, key := range keys {
		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		if !empty {
			out = append(out, ',')
		}
		empty = false
		out = append(out, name...)
		out = append(out, ':')
		out = append(out, extra[key]...)
	}
	return append(out, '}'), nil
}

// MarshalJSON writes the document as {"credentials": [...]}.
func (s State) MarshalJSON() ([]byte, error) {
	records := make([]json.RawMessage, 0, len(s.Credentials))
	for i, c := range s.Credentials {
		data, err := encodeCredential(c)
		if err != nil {
			return nil, fmt.Errorf("credential %d (%s %q): %w", i, c.Type(), c.Common().Name, err)
		}
		records = append(records, data)
	}
	doc, err := json.Marshal(struct {
		Credentials []json.RawMessage `json:"credentials"`
	}{records})
	if err != nil {
		return nil, err
	}
	return appendFields(doc, s.extra, func(key string) bool { return key == "credentials" })
}

// UnmarshalJSON reads a document written by MarshalJSON. A null document
// or a missing credentials list is an empty state.
func (s *State) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var records []json.RawMessage
	if raw, ok := fields["credentials"]; ok {
		if err := json.Unmarshal(raw, &records); err != nil {
			return fmt.Errorf("credentials: %w", err)
		}
		delete(fields, "credentials")
	}

	creds := make([]Credential, 0, len(records))
	for i, raw := range records {
		c, err := decodeCredential(raw)
		if err != nil {
			return fmt.Errorf("credential %d: %w", i, err)
		}
		creds = append(creds, c)
	}

	s.Credentials = creds
	s.extra = nil
	if len(fields) > 0 {
		s.extra = fields
	}
	return nil
}
