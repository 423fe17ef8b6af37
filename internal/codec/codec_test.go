package codec

import (
	"errors"
	"os"
	"testing"

	"github.com/asticode/go-astiav"
)

// testVideoPath mirrors the reader package's integration-test guard: opening
// a real decoder needs a real codec-parameters set discovered from an actual
// media file, which this package does not fabricate.
func testVideoPath(t *testing.T) string {
	t.Helper()
	path := os.Getenv("VIDEODECODEBENCH_TEST_VIDEO")
	if path == "" {
		t.Skip("Skipping integration test (set VIDEODECODEBENCH_TEST_VIDEO to a real media file)")
	}
	return path
}

func openFirstVideoStreamParams(t *testing.T, path string) *astiav.CodecParameters {
	t.Helper()
	formatCtx := astiav.AllocFormatContext()
	if formatCtx == nil {
		t.Fatalf("failed to allocate format context")
	}
	t.Cleanup(formatCtx.Free)

	if err := formatCtx.OpenInput(path, nil, nil); err != nil {
		t.Fatalf("OpenInput failed: %v", err)
	}
	t.Cleanup(formatCtx.CloseInput)

	if err := formatCtx.FindStreamInfo(nil); err != nil {
		t.Fatalf("FindStreamInfo failed: %v", err)
	}

	for _, stream := range formatCtx.Streams() {
		if stream.CodecParameters().MediaType() == astiav.MediaTypeVideo {
			return stream.CodecParameters()
		}
	}
	t.Fatalf("no video stream found in %s", path)
	return nil
}

func TestNewFromParametersOpensAndCloses(t *testing.T) {
	path := testVideoPath(t)
	params := openFirstVideoStreamParams(t, path)

	d, err := NewFromParameters(params, 1)
	if err != nil {
		t.Fatalf("NewFromParameters failed: %v", err)
	}
	if !d.IsOpen() {
		t.Errorf("expected decoder to report open after successful construction")
	}

	d.Close()
	if d.IsOpen() {
		t.Errorf("expected decoder to report closed after Close")
	}
	d.Close() // must not panic on a second close
}

func TestDecodeFromPacketFailsWhenNotOpen(t *testing.T) {
	path := testVideoPath(t)
	params := openFirstVideoStreamParams(t, path)

	d, err := NewFromParameters(params, 1)
	if err != nil {
		t.Fatalf("NewFromParameters failed: %v", err)
	}
	d.Close()

	if _, err := d.DecodeFromPacket(nil); !errors.Is(err, ErrNotOpen) {
		t.Errorf("expected ErrNotOpen after Close, got %v", err)
	}
	if _, err := d.FlushDecoder(); !errors.Is(err, ErrNotOpen) {
		t.Errorf("expected ErrNotOpen from FlushDecoder after Close, got %v", err)
	}
}

