// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"visualiser/internal/log"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// ErrUnsupportedFormat is returned for files that are neither WAV nor MP3.
var ErrUnsupportedFormat = errors.New("audio: unsupported file format")

// Format identifies a container the decoder understands.
type Format int

const (
	FormatUnknown Format = iota
	FormatWAV
	FormatMP3
)

func (f Format) String() string {
	switch f {
	case FormatWAV:
		return "wav"
	case FormatMP3:
		return "mp3"
	default:
		return "unknown"
	}
}

// DetectFormat checks both the extension and the leading bytes of a file.
// Either one disagreeing with the other is treated as unsupported.
func DetectFormat(name string, header []byte) (Format, error) {
	var byExt Format
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav", ".wave":
		byExt = FormatWAV
	case ".mp3":
		byExt = FormatMP3
	default:
		return FormatUnknown, fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, filepath.Ext(name))
	}

	if sniff(header) != byExt {
		return FormatUnknown, fmt.Errorf("%w: %s does not look like %s data", ErrUnsupportedFormat, filepath.Base(name), byExt)
	}
	return byExt, nil
}

// sniff recognises RIFF/WAVE headers, ID3 tags and raw MPEG frame sync.
func sniff(h []byte) Format {
	switch {
	case len(h) >= 12 && bytes.Equal(h[0:4], []byte("RIFF")) && bytes.Equal(h[8:12], []byte("WAVE")):
		return FormatWAV
	case len(h) >= 3 && bytes.Equal(h[0:3], []byte("ID3")):
		return FormatMP3
	case len(h) >= 2 && h[0] == 0xFF && h[1]&0xE0 == 0xE0:
		return FormatMP3
	default:
		return FormatUnknown
	}
}

// Open validates and decodes an audio file into a Track.
func Open(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header := make([]byte, 12)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s is empty", ErrUnsupportedFormat, filepath.Base(path))
		}
		return nil, err
	}
	format, err := DetectFormat(path, header[:n])
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	var track *Track
	switch format {
	case FormatWAV:
		track, err = DecodeWAV(f)
	case FormatMP3:
		track, err = DecodeMP3(f)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	track.Name = filepath.Base(path)
	log.Debugf("Audio: Decoded %s", track)
	return track, nil
}

// DecodeWAV reads a PCM WAV stream and scales samples to [-1, 1] by bit depth.
func DecodeWAV(r io.ReadSeeker) (*Track, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: invalid wav header", ErrUnsupportedFormat)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, fmt.Errorf("%w: wav has no channels", ErrUnsupportedFormat)
	}

	bitDepth := int(d.BitDepth)
	samples := make([]float32, len(buf.Data))
	switch {
	case bitDepth == 8:
		// 8-bit WAV is unsigned with a 128 midpoint.
		for i, v := range buf.Data {
			samples[i] = float32(v-128) / 128
		}
	case bitDepth > 8 && bitDepth <= 32:
		scale := float32(int64(1) << (bitDepth - 1))
		for i, v := range buf.Data {
			samples[i] = float32(v) / scale
		}
	default:
		return nil, fmt.Errorf("%w: %d-bit wav", ErrUnsupportedFormat, bitDepth)
	}

	return &Track{
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
		Samples:    samples,
	}, nil
}

// DecodeMP3 reads an MP3 stream. go-mp3 always produces 16-bit little
// endian stereo.
func DecodeMP3(r io.Reader) (*Track, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}

	var pcm []byte
	if n := dec.Length(); n > 0 {
		pcm = make([]byte, 0, n)
	}
	b := bytes.NewBuffer(pcm)
	if _, err := io.Copy(b, dec); err != nil {
		return nil, err
	}
	pcm = b.Bytes()

	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(pcm[2*i:]))) / 32768
	}

	return &Track{
		SampleRate: dec.SampleRate(),
		Channels:   2,
		Samples:    samples,
	}, nil
}
