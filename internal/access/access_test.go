package access

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestRoleCapabilities(t *testing.T) {
	cases := []struct {
		role    Role
		allowed []Capability
		denied  []Capability
	}{
		{RoleOwner, []Capability{ReadMenu, ReadRuns, StreamEvents, TriggerSync, ManageProfiles}, nil},
		{RoleManager, []Capability{ReadMenu, ReadRuns, StreamEvents, TriggerSync}, []Capability{ManageProfiles}},
		{RoleChef, []Capability{ReadMenu, ReadRuns, StreamEvents}, []Capability{TriggerSync, ManageProfiles}},
		{RoleStaff, []Capability{ReadMenu, StreamEvents}, []Capability{ReadRuns, TriggerSync, ManageProfiles}},
		{Role("intern"), nil, []Capability{ReadMenu, ReadRuns, StreamEvents, TriggerSync, ManageProfiles}},
	}
	for _, tc := range cases {
		for _, c := range tc.allowed {
			if !tc.role.Can(c) {
				t.Fatalf("expected %s to have %s", tc.role, c)
			}
		}
		for _, c := range tc.denied {
			if tc.role.Can(c) {
				t.Fatalf("expected %s to lack %s", tc.role, c)
			}
		}
	}
}

func TestSetNames(t *testing.T) {
	names := RoleStaff.Capabilities().Names()
	if !slices.Equal(names, []string{"events:stream", "menu:read"}) {
		t.Fatalf("unexpected names %v", names)
	}
	if Capability(64).String() != "capability(64)" {
		t.Fatalf("unexpected unknown capability name %q", Capability(64).String())
	}
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" Manager ")
	if err != nil || role != RoleManager {
		t.Fatalf("expected manager, got %q err=%v", role, err)
	}
	if _, err := ParseRole("root"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestTokens(t *testing.T) {
	tokens, err := NewTokens(map[string]string{"secret-1": "owner", "secret-2": "staff", " ": "owner"})
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}
	if tokens.Len() != 2 {
		t.Fatalf("expected blank token skipped, got %d tokens", tokens.Len())
	}
	if role, ok := tokens.Lookup("secret-2"); !ok || role != RoleStaff {
		t.Fatalf("expected staff, got %q ok=%v", role, ok)
	}
	if _, ok := tokens.Lookup("nope"); ok {
		t.Fatal("expected unknown token to miss")
	}

	_, err = NewTokens(map[string]string{"supersecret": "janitor"})
	if !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
	if strings.Contains(err.Error(), "supersecret") {
		t.Fatalf("expected token to be redacted, got %q", err.Error())
	}

	var empty *Tokens
	if _, ok := empty.Lookup("x"); ok || empty.Len() != 0 {
		t.Fatal("expected nil tokens to be empty")
	}
}
