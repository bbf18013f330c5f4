package vcserrors

import (
	"errors"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	cases := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "no cause",
			err:  New(KindObjectNotFound, "object abc not found"),
			want: "object_not_found: object abc not found",
		},
		{
			name: "wrapped cause",
			err:  Wrap(KindTransport, "fetch failed", errors.New("dial tcp: timeout")),
			want: "transport: fetch failed (caused by: dial tcp: timeout)",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.err.Error(); got != tc.want {
				t.Errorf("Error() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestErrorIsMatchesByKind(t *testing.T) {
	err := ObjectNotFound("deadbeef")
	target := New(KindObjectNotFound, "")

	if !errors.Is(err, target) {
		t.Errorf("expected errors.Is to match on Kind")
	}

	other := New(KindTransport, "")
	if errors.Is(err, other) {
		t.Errorf("expected errors.Is to not match across different Kinds")
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindCorruptObject, "bad zlib stream", cause)

	if !errors.Is(err, cause) {
		t.Errorf("expected Unwrap() to expose the original cause")
	}
}

func TestWithHint(t *testing.T) {
	err := WithHint(New(KindAuthDenied, "denied"), "check your token")
	if err.Hint != "check your token" {
		t.Errorf("Hint = %q, want %q", err.Hint, "check your token")
	}
}
