package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"
)

// buildWAV assembles a minimal PCM WAV stream carrying n bytes of
// silence at the given byte rate.
func buildWAV(t *testing.T, sampleRate uint32, dataSize uint32) []byte {
	t.Helper()

	var channels uint16 = 1
	var bitsPerSample uint16 = 16
	byteRate := sampleRate * uint32(channels) * uint32(bitsPerSample) / 8

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, channels)
	binary.Write(&buf, binary.LittleEndian, sampleRate)
	binary.Write(&buf, binary.LittleEndian, byteRate)
	binary.Write(&buf, binary.LittleEndian, channels*bitsPerSample/8)
	binary.Write(&buf, binary.LittleEndian, bitsPerSample)
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataSize)
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}

func TestDuration(t *testing.T) {
	// 3 seconds of 16kHz mono 16-bit audio.
	data := buildWAV(t, 16000, 3*16000*2)

	d, err := Duration(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if d != 3*time.Second {
		t.Fatalf("duration = %v, want 3s", d)
	}
}

func TestDurationRejectsGarbage(t *testing.T) {
	if _, err := Duration(bytes.NewReader([]byte("not a wav file"))); err == nil {
		t.Fatal("expected an error for non-WAV data")
	}
}

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		name   string
		format string
		ok     bool
	}{
		{"meeting.mp3", "mp3", true},
		{"Meeting.M4A", "m4a", true},
		{"rec.wav", "wav", true},
		{"clip.webm", "webm", true},
		{"notes.txt", "txt", false},
		{"noextension", "", false},
	}
	for _, c := range cases {
		format, ok := DetectFormat(c.name)
		if format != c.format || ok != c.ok {
			t.Errorf("DetectFormat(%q) = (%q, %v), want (%q, %v)", c.name, format, ok, c.format, c.ok)
		}
	}
}
