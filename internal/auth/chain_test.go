// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

package auth

import (
	"context"
	"errors"
	"testing"
)

// stubVerifier returns a fixed result and records whether it was called.
type stubVerifier struct {
	name      string
	priority  int
	principal *Principal
	err       error
	called    bool
}

func (s *stubVerifier) Verify(context.Context, string) (*Principal, error) {
	s.called = true
	return s.principal, s.err
}

func (s *stubVerifier) Name() string  { return s.name }
func (s *stubVerifier) Priority() int { return s.priority }

func TestChainTriesVerifiersInPriorityOrder(t *testing.T) {
	second := &stubVerifier{name: "second", priority: 20, principal: &Principal{ID: "u2"}}
	first := &stubVerifier{name: "first", priority: 10, principal: &Principal{ID: "u1"}}

	// Registration order must not matter.
	chain := NewChain(second, first)
	principal, err := chain.Verify(context.Background(), "token")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if principal.ID != "u1" {
		t.Errorf("principal = %q, want u1 from the higher-priority verifier", principal.ID)
	}
	if second.called {
		t.Error("lower-priority verifier was called after a success")
	}
}

func TestChainFallsThroughOnNoCredentials(t *testing.T) {
	first := &stubVerifier{name: "first", priority: 10, err: ErrNoCredentials}
	second := &stubVerifier{name: "second", priority: 20, principal: &Principal{ID: "u2"}}

	principal, err := NewChain(first, second).Verify(context.Background(), "token")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if principal.ID != "u2" {
		t.Errorf("principal = %q, want u2", principal.ID)
	}
}

func TestChainFallsThroughOnUnavailable(t *testing.T) {
	first := &stubVerifier{name: "first", priority: 10, err: ErrVerifierUnavailable}
	second := &stubVerifier{name: "second", priority: 20, principal: &Principal{ID: "u2"}}

	principal, err := NewChain(first, second).Verify(context.Background(), "token")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if principal.ID != "u2" {
		t.Errorf("principal = %q, want u2", principal.ID)
	}
}

func TestChainStopsOnInvalidCredentials(t *testing.T) {
	first := &stubVerifier{name: "first", priority: 10, err: ErrInvalidCredentials}
	second := &stubVerifier{name: "second", priority: 20, principal: &Principal{ID: "u2"}}

	_, err := NewChain(first, second).Verify(context.Background(), "token")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want invalid credentials", err)
	}
	if second.called {
		t.Error("chain continued past a definitive rejection")
	}
}

func TestChainEmpty(t *testing.T) {
	_, err := NewChain().Verify(context.Background(), "token")
	if !errors.Is(err, ErrNoCredentials) {
		t.Errorf("err = %v, want no credentials", err)
	}
}

func TestPrincipalRoles(t *testing.T) {
	p := &Principal{ID: "u1", Roles: []string{"member", "editor"}}

	if !p.HasRole("editor") {
		t.Error("HasRole(editor) = false")
	}
	if p.HasRole("admin") {
		t.Error("HasRole(admin) = true")
	}
	if p.HasRole("") {
		t.Error("HasRole(\"\") = true")
	}
	if !p.HasAnyRole("admin", "member") {
		t.Error("HasAnyRole(admin, member) = false")
	}
	if p.HasAnyRole() {
		t.Error("HasAnyRole() with no roles = true")
	}

	var nilPrincipal *Principal
	if nilPrincipal.HasRole("member") {
		t.Error("nil principal HasRole = true")
	}
}
