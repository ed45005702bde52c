package audio

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/youpy/go-riff"
	"github.com/youpy/go-wav"
)

// Supported upload formats.
const (
	FormatMP3  = "mp3"
	FormatM4A  = "m4a"
	FormatWAV  = "wav"
	FormatWebM = "webm"
)

var supportedFormats = map[string]struct{}{
	FormatMP3:  {},
	FormatM4A:  {},
	FormatWAV:  {},
	FormatWebM: {},
}

// DetectFormat derives the audio format from a file name extension.
func DetectFormat(name string) (string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	_, ok := supportedFormats[ext]
	return ext, ok
}

// Duration reads a WAV stream's header and reports its play length,
// truncated to whole seconds. Non-WAV data yields an error; callers
// treat an unknown duration as zero.
func Duration(r riff.RIFFReader) (time.Duration, error) {
	reader := wav.NewReader(r)

	format, err := reader.Format()
	if err != nil {
		return 0, fmt.Errorf("failed to parse WAV header: %w", err)
	}
	if format.ByteRate == 0 {
		return 0, fmt.Errorf("WAV header has zero byte rate")
	}

	d, err := reader.Duration()
	if err != nil {
		return 0, fmt.Errorf("failed to compute WAV duration: %w", err)
	}
	return d.Truncate(time.Second), nil
}
