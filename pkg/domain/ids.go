// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "torque/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a PrincipalID where a RequestID is expected.
type (
	PrincipalID uuid.UUID
	RequestID   uuid.UUID
	SessionID   uuid.UUID
)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParsePrincipalID(s string) (PrincipalID, error) {
	id, err := parseUUID(s, "principal ID")
	return PrincipalID(id), err
}

func ParseRequestID(s string) (RequestID, error) {
	id, err := parseUUID(s, "request ID")
	return RequestID(id), err
}

func ParseSessionID(s string) (SessionID, error) {
	id, err := parseUUID(s, "session ID")
	return SessionID(id), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	return id, nil
}

// New functions - use when materializing fresh entities.

func NewPrincipalID() PrincipalID { return PrincipalID(uuid.New()) }
func NewRequestID() RequestID     { return RequestID(uuid.New()) }
func NewSessionID() SessionID     { return SessionID(uuid.New()) }

// String methods - for logging and debugging.

func (id PrincipalID) String() string { return uuid.UUID(id).String() }
func (id RequestID) String() string   { return uuid.UUID(id).String() }
func (id SessionID) String() string   { return uuid.UUID(id).String() }

// Text marshalling - defined types do not inherit uuid.UUID's methods, and the
// document codec and JSON responses need string UUIDs, not byte arrays.

func (id PrincipalID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id RequestID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id SessionID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }

func (id *PrincipalID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RequestID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *SessionID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }

// IsNil checks - used for service-layer validation.

func (id PrincipalID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
