package models

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

type IdentifierKind string

const (
	IdentifierEmail IdentifierKind = "email"
	IdentifierPhone IdentifierKind = "phone"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// Identifier is a contact handle that is either an email or a phone number.
type Identifier struct {
	Kind  IdentifierKind `bson:"kind" json:"kind"`
	Value string         `bson:"value" json:"value"`
}

// ParseIdentifier classifies raw input as an email or phone identifier.
func ParseIdentifier(raw string) (Identifier, error) {
	v := strings.TrimSpace(raw)
	switch {
	case v == "":
		return Identifier{}, fmt.Errorf("identifier is empty")
	case strings.Contains(v, "@"):
		addr, err := mail.ParseAddress(v)
		if err != nil {
			return Identifier{}, fmt.Errorf("invalid email %q: %w", v, err)
		}
		return Identifier{Kind: IdentifierEmail, Value: strings.ToLower(addr.Address)}, nil
	default:
		compact := strings.NewReplacer(" ", "", "-", "").Replace(v)
		if !phonePattern.MatchString(compact) {
			return Identifier{}, fmt.Errorf("invalid phone number %q", v)
		}
		return Identifier{Kind: IdentifierPhone, Value: compact}, nil
	}
}

// Email returns the value when the identifier is an email.
func (id Identifier) Email() (string, bool) {
	return id.Value, id.Kind == IdentifierEmail
}

// Phone returns the value when the identifier is a phone number.
func (id Identifier) Phone() (string, bool) {
	return id.Value, id.Kind == IdentifierPhone
}

// Validate checks that Kind is known and Value matches it.
func (id Identifier) Validate() error {
	switch id.Kind {
	case IdentifierEmail, IdentifierPhone:
		parsed, err := ParseIdentifier(id.Value)
		if err != nil {
			return err
		}
		if parsed.Kind != id.Kind {
			return fmt.Errorf("identifier %q is not a valid %s", id.Value, id.Kind)
		}
		return nil
	default:
		return fmt.Errorf("unknown identifier kind %q", id.Kind)
	}
}
