package resynth

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/mjibson/go-dsp/wav"
)

// ReadWAV decodes a PCM WAV stream, mixing all channels down to mono
func ReadWAV(r io.Reader) (*Sound, error) {
	w, err := wav.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read wav header: %w", err)
	}

	channels := int(w.NumChannels)
	if channels <= 0 || w.SampleRate == 0 {
		return nil, fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupportedWaveform, channels, w.SampleRate)
	}

	raw, err := w.ReadFloats(w.Samples)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("failed to read wav samples: %w", err)
	}

	interleaved := make([]float64, len(raw)-len(raw)%channels)
	for i := range interleaved {
		interleaved[i] = float64(raw[i])
	}

	return NewSound(downmix(interleaved, channels), int(w.SampleRate)), nil
}

// LoadWAV reads a WAV file from disk
func LoadWAV(path string) (*Sound, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadWAV(bufio.NewReader(f))
}

// EncodeWAV writes s as a 16-bit mono PCM WAV stream. Samples outside
// [-1, 1] are clipped.
func EncodeWAV(w io.Writer, s *Sound) error {
	const (
		bitsPerSample = 16
		channels      = 1
		headerSize    = 44
	)

	blockAlign := channels * bitsPerSample / 8
	dataSize := len(s.Samples) * blockAlign

	header := make([]byte, headerSize)
	copy(header[0:], "RIFF")
	binary.LittleEndian.PutUint32(header[4:], uint32(headerSize-8+dataSize))
	copy(header[8:], "WAVE")
	copy(header[12:], "fmt ")
	binary.LittleEndian.PutUint32(header[16:], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(header[20:], 1)  // PCM
	binary.LittleEndian.PutUint16(header[22:], channels)
	binary.LittleEndian.PutUint32(header[24:], uint32(s.SampleRate))
	binary.LittleEndian.PutUint32(header[28:], uint32(s.SampleRate*blockAlign))
	binary.LittleEndian.PutUint16(header[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:], bitsPerSample)
	copy(header[36:], "data")
	binary.LittleEndian.PutUint32(header[40:], uint32(dataSize))

	if _, err := w.Write(header); err != nil {
		return err
	}

	data := make([]byte, dataSize)
	for i, v := range s.Samples {
		v = math.Max(-1, math.Min(1, v))
		binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(math.Round(v*32767))))
	}
	_, err := w.Write(data)
	return err
}

// WriteWAV writes s to path as 16-bit mono PCM
func WriteWAV(path string, s *Sound) error {
	if s.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrUnsupportedWaveform, s.SampleRate)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(f)
	if err := EncodeWAV(bw, s); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
