package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestUsernameFromEmail(t *testing.T) {
	tests := map[string]string{
		"ava@x.com":        "ava",
		"first.last@a.b.c": "first.last",
		"no-at-sign":       "no-at-sign",
		"a@b@c":            "a",
	}
	for in, want := range tests {
		if got := UsernameFromEmail(in); got != want {
			t.Errorf("UsernameFromEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPublic_OmitsPassword(t *testing.T) {
	u := User{ID: 3, Name: "Ava", Email: "ava@x.com", Username: "ava", PasswordHash: "$2a$10$hash", Role: RoleUser}

	b, err := json.Marshal(u.Public())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(b)
	if strings.Contains(strings.ToLower(s), "password") || strings.Contains(s, "$2a$") {
		t.Errorf("public view leaks password: %s", s)
	}
	if !strings.Contains(s, `"favoriteArtists":[]`) {
		t.Errorf("nil lists should render as []: %s", s)
	}
}

func TestValidRole(t *testing.T) {
	if !ValidRole(RoleUser) || !ValidRole(RoleAdmin) {
		t.Error("known roles rejected")
	}
	if ValidRole("owner") || ValidRole("") {
		t.Error("unknown role accepted")
	}
}

func TestKindValid(t *testing.T) {
	for _, k := range Kinds {
		if !k.Valid() {
			t.Errorf("%q should be valid", k)
		}
	}
	if Kind("product").Valid() {
		t.Error("product should not be a catalog kind")
	}
}

func TestKindCollection(t *testing.T) {
	want := map[Kind]string{KindVideo: "videos", KindMix: "mixes", KindEvent: "events", KindGallery: "galleries"}
	for _, k := range Kinds {
		if got := k.Collection(); got != want[k] {
			t.Errorf("%s.Collection() = %q, want %q", k, got, want[k])
		}
		if !k.Valid() {
			t.Errorf("%s not valid", k)
		}
	}
	if Kind("podcast").Valid() {
		t.Error("unknown kind reported valid")
	}
}
