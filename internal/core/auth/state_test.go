package auth

import "testing"

func TestSelectBackend(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  Backend
	}{
		{"nil state", nil, BackendLocal},
		{"unauthenticated", Unauthenticated{}, BackendLocal},
		{"guest", Guest{GuestID: "guest-1"}, BackendLocal},
		{"guest with blank id", Guest{}, BackendLocal},
		{"authenticated", Authenticated{User: User{ID: "user-1"}}, BackendRemote},
		{"authenticated without user id", Authenticated{User: User{Email: "a@b.c"}}, BackendLocal},
		{"authenticated with blank user id", Authenticated{User: User{ID: "  "}}, BackendLocal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelectBackend(tt.state); got != tt.want {
				t.Errorf("SelectBackend() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOwnerID(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  string
	}{
		{"unauthenticated", Unauthenticated{}, ""},
		{"guest", Guest{GuestID: "guest-1"}, "guest-1"},
		{"authenticated", Authenticated{User: User{ID: "user-1"}}, "user-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OwnerID(tt.state); got != tt.want {
				t.Errorf("OwnerID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	if got := Describe(Authenticated{User: User{ID: "u", Email: "ann@example.com"}}); got != "signed in as ann@example.com" {
		t.Errorf("Describe() = %q", got)
	}
	if got := Describe(Unauthenticated{}); got != "signed out" {
		t.Errorf("Describe() = %q", got)
	}
}
