// Package probe opens a video source once, before the sweep starts, to
// extract codec identity, resolution, frame rate, and live/file
// classification — the source probe collaborator of spec §6, implemented
// directly against go-astiav rather than reopening the source per stream.
package probe

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/asticode/go-astiav"
)

// Info describes a probed source, grounded on video_info.hpp's VideoInfo.
type Info struct {
	Path            string
	CodecName       string
	CodecID         astiav.CodecID
	Width           int
	Height          int
	FPS             float64
	DurationSeconds float64
	TotalFrames     int64
	VideoStreamIdx  int
	IsLiveStream    bool
}

// Resolution formats height as the conventional "720p"/"1080p"/"4K" label
// used in benchmark headers, grounded on VideoInfo::getResolutionString.
func (i Info) Resolution() string {
	switch {
	case i.Height >= 2160:
		return "4K"
	case i.Height >= 1440:
		return "1440p"
	case i.Height >= 1080:
		return "1080p"
	case i.Height >= 720:
		return "720p"
	case i.Height >= 480:
		return "480p"
	default:
		return fmt.Sprintf("%dp", i.Height)
	}
}

// IsRTSP classifies a source path as a live RTSP source by URL scheme,
// grounded on cli_parser.cpp's is_rtsp check.
func IsRTSP(path string) bool {
	return strings.HasPrefix(path, "rtsp://") || strings.HasPrefix(path, "rtsps://")
}

// Probe opens path, discovers its first video substream, and reports its
// properties. It does not leave the source open; callers that need to
// decode reopen it through internal/reader.
func Probe(path string) (Info, error) {
	live := IsRTSP(path)

	formatCtx := astiav.AllocFormatContext()
	if formatCtx == nil {
		return Info{}, errors.New("probe: failed to allocate format context")
	}
	defer formatCtx.Free()

	var opts *astiav.Dictionary
	if live {
		opts = astiav.NewDictionary()
		defer opts.Free()
		_ = opts.Set("rtsp_transport", "tcp", 0)
		_ = opts.Set("stimeout", "5000000", 0)
	}

	if err := formatCtx.OpenInput(path, nil, opts); err != nil {
		return Info{}, fmt.Errorf("probe: failed to open source: %w", err)
	}
	defer formatCtx.CloseInput()

	if err := formatCtx.FindStreamInfo(nil); err != nil {
		return Info{}, fmt.Errorf("probe: failed to find stream info: %w", err)
	}

	streamIdx := -1
	var stream *astiav.Stream
	for _, s := range formatCtx.Streams() {
		if s.CodecParameters().MediaType() == astiav.MediaTypeVideo {
			streamIdx = s.Index()
			stream = s
			break
		}
	}
	if streamIdx < 0 {
		return Info{}, errors.New("probe: no video stream found in source")
	}

	fps := frameRate(stream)
	if fps <= 0 && live {
		// Live sources frequently omit a reliable frame rate estimate until
		// packets arrive; fall back to a sane default rather than failing
		// the probe outright.
		fps = 30
	}
	if fps <= 0 {
		return Info{}, errors.New("probe: could not determine video frame rate")
	}

	duration := sourceDuration(formatCtx, stream)
	totalFrames := stream.NbFrames()
	if totalFrames <= 0 && duration > 0 {
		totalFrames = int64(math.Round(duration * fps))
	}

	pars := stream.CodecParameters()
	return Info{
		Path:            path,
		CodecName:       codecName(pars.CodecID()),
		CodecID:         pars.CodecID(),
		Width:           pars.Width(),
		Height:          pars.Height(),
		FPS:             fps,
		DurationSeconds: duration,
		TotalFrames:     totalFrames,
		VideoStreamIdx:  streamIdx,
		IsLiveStream:    live,
	}, nil
}

// avTimeBase mirrors FFmpeg's AV_TIME_BASE: AVFormatContext.duration is
// expressed in these units regardless of any stream's own time base.
const avTimeBase = 1000000.0

func rationalToFloat(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func frameRate(stream *astiav.Stream) float64 {
	if r := stream.AvgFrameRate(); r.Den() != 0 {
		return rationalToFloat(r.Num(), r.Den())
	}
	if r := stream.RFrameRate(); r.Den() != 0 {
		return rationalToFloat(r.Num(), r.Den())
	}
	return 0
}

func sourceDuration(formatCtx *astiav.FormatContext, stream *astiav.Stream) float64 {
	const noPTSValue = int64(-9223372036854775808) // AV_NOPTS_VALUE
	if d := formatCtx.Duration(); d != noPTSValue && d != 0 {
		return float64(d) / avTimeBase
	}
	if d := stream.Duration(); d != noPTSValue && d != 0 {
		tb := stream.TimeBase()
		return float64(d) * rationalToFloat(tb.Num(), tb.Den())
	}
	return 0
}

func codecName(id astiav.CodecID) string {
	switch id {
	case astiav.CodecIDH264:
		return "H.264"
	case astiav.CodecIDHevc:
		return "H.265"
	case astiav.CodecIDVp9:
		return "VP9"
	case astiav.CodecIDAv1:
		return "AV1"
	default:
		return "Unknown"
	}
}

// Supported reports whether codecName would classify id as a recognized
// codec rather than "Unknown", grounded on VideoInfo::isCodecSupported.
func Supported(id astiav.CodecID) bool {
	return codecName(id) != "Unknown"
}
