// Package speech holds text-to-speech request validation and the
// generation history.
package speech

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// MaxTextLength is the upstream per-request character limit.
const MaxTextLength = 4096

// Voices accepted by the synthesizer.
const (
	VoiceAlloy   = "alloy"
	VoiceEcho    = "echo"
	VoiceShimmer = "shimmer"
)

const (
	defaultVoice  = VoiceAlloy
	defaultSpeed  = 1.0
	defaultFormat = "mp3"

	minSpeed = 0.25
	maxSpeed = 4.0
)

var (
	ErrEmptyText   = errors.New("text is required")
	ErrTextTooLong = fmt.Errorf("text must be less than %d characters", MaxTextLength)
	ErrBadSpeed    = fmt.Errorf("speed must be between %v and %v", minSpeed, maxSpeed)
)

// Request is one synthesis request. Zero-valued optional fields take
// defaults during validation.
type Request struct {
	Text   string  `json:"text"`
	Voice  string  `json:"voice,omitempty"`
	Speed  float64 `json:"speed,omitempty"`
	Format string  `json:"format,omitempty"`
}

// Validate checks the request and fills defaults in place.
func (r *Request) Validate() error {
	if r.Text == "" {
		return ErrEmptyText
	}
	if utf8.RuneCountInString(r.Text) > MaxTextLength {
		return ErrTextTooLong
	}
	if r.Voice == "" {
		r.Voice = defaultVoice
	}
	if r.Speed == 0 {
		r.Speed = defaultSpeed
	}
	if r.Speed < minSpeed || r.Speed > maxSpeed {
		return ErrBadSpeed
	}
	if r.Format == "" {
		r.Format = defaultFormat
	}
	return nil
}

// AttachmentFilename names the audio download for a request, stamped
// with the generation time in epoch milliseconds.
func AttachmentFilename(format string, unixMilli int64) string {
	return fmt.Sprintf("speech-%d.%s", unixMilli, format)
}
