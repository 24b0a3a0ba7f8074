package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "validation without cause",
			err:  Validation("migrate", "guest id must not be blank"),
			want: "migrate: guest id must not be blank",
		},
		{
			name: "transient with cause",
			err:  Transient("remote.create", errors.New("i/o timeout")),
			want: "remote.create: transient failure: i/o timeout",
		},
		{
			name: "no op",
			err:  New(KindPermanent, "", "payload rejected"),
			want: "payload rejected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindOf_ThroughWrapping(t *testing.T) {
	base := NotFound("hikes.get", "hike %s not found", "HIKE-001")
	wrapped := fmt.Errorf("failed to load hike: %w", base)

	if got := KindOf(wrapped); got != KindNotFound {
		t.Errorf("KindOf() = %v, want %v", got, KindNotFound)
	}
	if !Is(wrapped, KindNotFound) {
		t.Error("expected Is(wrapped, KindNotFound) to be true")
	}
	if Is(nil, KindNotFound) {
		t.Error("expected Is(nil, ...) to be false")
	}
	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Errorf("KindOf(plain) = %v, want unknown", got)
	}
}

func TestUnwrap_KeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: lookup db: no such host")
	err := Permanent("remote.dial", cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}
