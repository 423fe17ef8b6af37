package result

import (
	"errors"
	"testing"
)

func TestErrorKindString(t *testing.T) {
	cases := map[ErrorKind]string{
		ErrorKindNone:             "none",
		ErrorKindSourceOpen:       "source_open",
		ErrorKindUnsupportedCodec: "unsupported_codec",
		ErrorKindTransientRead:    "transient_read",
		ErrorKindLiveStreamEnded:  "live_stream_ended",
		ErrorKindDecode:           "decode",
		ErrorKind(999):            "unknown",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}

func TestKindErrorMessageWithStreamID(t *testing.T) {
	inner := errors.New("connection refused")
	err := NewKindError(ErrorKindSourceOpen, 3, inner)

	want := "source_open (stream 3): connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, inner) {
		t.Errorf("expected Unwrap to expose the wrapped error")
	}
}

func TestKindErrorMessageWithoutStreamID(t *testing.T) {
	inner := errors.New("eof")
	err := NewKindError(ErrorKindLiveStreamEnded, -1, inner)

	want := "live_stream_ended: eof"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
