package launchpad

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// IdentityKind tells which shape an Identity was decoded from.
type IdentityKind int

const (
	// IdentityPlain is a bare string: a person link or a user name.
	IdentityPlain IdentityKind = iota
	// IdentityPerson is an expanded person object.
	IdentityPerson
)

// Person is an expanded Launchpad person.
type Person struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// Identity references a Launchpad user either as a plain string or as a person object.
type Identity struct {
	Kind   IdentityKind
	Plain  string
	Person Person
}

// PlainIdentity returns an Identity holding s.
func PlainIdentity(s string) *Identity {
	return &Identity{Kind: IdentityPlain, Plain: s}
}

// PersonIdentity returns an Identity holding p.
func PersonIdentity(p Person) *Identity {
	return &Identity{Kind: IdentityPerson, Person: p}
}

// UnmarshalJSON accepts either a JSON string or a person object.
func (i *Identity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty identity")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode identity string: %w", err)
		}
		*i = Identity{Kind: IdentityPlain, Plain: s}
	case '{':
		var p Person
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode identity object: %w", err)
		}
		*i = Identity{Kind: IdentityPerson, Person: p}
	default:
		return fmt.Errorf("unsupported identity value: %s", string(trim(data, 64)))
	}
	return nil
}

// Name returns the user name for either shape. A nil Identity yields "".
//
// Plain values may be API links such as https://api.launchpad.net/devel/~jdoe,
// in which case the segment after "~" is returned.
func (i *Identity) Name() string {
	if i == nil {
		return ""
	}
	if i.Kind == IdentityPerson {
		if i.Person.Name != "" {
			return i.Person.Name
		}
		return i.Person.DisplayName
	}

	s := strings.TrimRight(strings.TrimSpace(i.Plain), "/")
	if idx := strings.LastIndex(s, "/~"); idx >= 0 {
		return s[idx+2:]
	}
	return strings.TrimPrefix(s, "~")
}
