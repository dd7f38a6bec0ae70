// Package access maps API roles to the capabilities they grant.
package access

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownRole is returned for roles outside owner, manager, chef and staff.
var ErrUnknownRole = errors.New("unknown role")

// Role is a restaurant staff role.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
	RoleChef    Role = "chef"
	RoleStaff   Role = "staff"
)

// Capability is one permission bit.
type Capability uint8

const (
	ReadMenu Capability = 1 << iota
	ReadRuns
	StreamEvents
	TriggerSync
	ManageProfiles
)

var capabilityNames = map[Capability]string{
	ReadMenu:       "menu:read",
	ReadRuns:       "sync:read",
	StreamEvents:   "events:stream",
	TriggerSync:    "sync:trigger",
	ManageProfiles: "profiles:manage",
}

func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return fmt.Sprintf("capability(%d)", uint8(c))
}

// Set is a bitset of capabilities.
type Set uint8

// Has reports whether every bit of c is present.
func (s Set) Has(c Capability) bool {
	return Set(c)&s == Set(c)
}

// Names lists the set members sorted by name.
func (s Set) Names() []string {
	names := []string{}
	for capability, name := range capabilityNames {
		if s.Has(capability) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func setOf(capabilities ...Capability) Set {
	var s Set
	for _, c := range capabilities {
		s |= Set(c)
	}
	return s
}

var roleCapabilities = map[Role]Set{
	RoleOwner:   setOf(ReadMenu, ReadRuns, StreamEvents, TriggerSync, ManageProfiles),
	RoleManager: setOf(ReadMenu, ReadRuns, StreamEvents, TriggerSync),
	RoleChef:    setOf(ReadMenu, ReadRuns, StreamEvents),
	RoleStaff:   setOf(ReadMenu, StreamEvents),
}

// ParseRole accepts role names case-insensitively.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := roleCapabilities[role]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
	return role, nil
}

// Capabilities returns the set granted to r; unknown roles get nothing.
func (r Role) Capabilities() Set {
	return roleCapabilities[r]
}

// Can reports whether r grants c.
func (r Role) Can(c Capability) bool {
	return r.Capabilities().Has(c)
}

// Tokens maps API bearer tokens to roles.
type Tokens struct {
	roles map[string]Role
}

// NewTokens validates a token to role-name table.
func NewTokens(table map[string]string) (*Tokens, error) {
	t := &Tokens{roles: make(map[string]Role, len(table))}
	for token, rawRole := range table {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		role, err := ParseRole(rawRole)
		if err != nil {
			return nil, fmt.Errorf("token %s: %w", redact(token), err)
		}
		t.roles[token] = role
	}
	return t, nil
}

// Lookup returns the role bound to token.
func (t *Tokens) Lookup(token string) (Role, bool) {
	if t == nil {
		return "", false
	}
	role, ok := t.roles[strings.TrimSpace(token)]
	return role, ok
}

// Len returns the number of configured tokens.
func (t *Tokens) Len() int {
	if t == nil {
		return 0
	}
	return len(t.roles)
}

func redact(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return token[:4] + "****"
}
