// Package decode implements the Stem Stream Decoder: opens one RIFF/WAVE
// container, decodes it to normalized mono float samples, and resamples to
// the engine's target rate.
package decode

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/mikup/stemscope/internal/faults"
	"github.com/mikup/stemscope/internal/resample"
	"github.com/mikup/stemscope/internal/types"
	"github.com/mikup/stemscope/internal/wav"
)

const readChunkBytes = 64 * 1024

// Decoder owns one stem's container, resampler residual, and pending
// sample queue. It is created on stream start and destroyed on stop or a
// seek error.
type Decoder struct {
	path       string
	file       *os.File
	format     types.PCMFormat
	dataStart  int64
	dataEnd    int64
	pos        int64
	resampler  *resample.Linear
	pending    []float64
	tailBytes  []byte
	eof        bool
	log        *slog.Logger
}

// Open validates the extension and RIFF/WAVE header, then returns a
// Decoder ready to fill.
func Open(path string, targetRate int) (*Decoder, error) {
	if err := wav.ValidatePath(path); err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", faults.ErrFileMissing, err)
	}

	header, err := wav.ReadHeader(file)
	if err != nil {
		file.Close()

		return nil, err
	}

	if header.Format.SampleRate <= 0 {
		file.Close()

		return nil, faults.ErrMissingSampleRate
	}

	dataStart, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		file.Close()

		return nil, fmt.Errorf("%w: %w", faults.ErrReadFailure, err)
	}

	return &Decoder{
		path:      path,
		file:      file,
		format:    header.Format,
		dataStart: dataStart,
		dataEnd:   dataStart + header.DataSize,
		pos:       dataStart,
		resampler: resample.New(header.Format.SampleRate, targetRate),
		log:       slog.Default().With("stem_path", path),
	}, nil
}

// Format returns the declared PCMFormat, independent of any downstream
// mono downmix or resample, so callers (the diagnostics bank) can run an
// independent pass over the same container.
func (d *Decoder) Format() types.PCMFormat {
	return d.format
}

// IsFinished reports whether the container has reached EOF and every
// pending sample has been drained.
func (d *Decoder) IsFinished() bool {
	return d.eof && len(d.pending) == 0
}

// FillUntil decodes further container data until at least n samples are
// pending or EOF is observed. A read chunk boundary rarely lands on a
// frame boundary (64KiB is not a multiple of a 3- or non-power-of-two
// frame width), so any trailing undecoded bytes from one read are
// prepended to the next before decoding, per DecodeFrames' consumed
// contract.
func (d *Decoder) FillUntil(n int) error {
	buf := make([]byte, readChunkBytes)

	for len(d.pending) < n && !d.eof {
		remaining := d.dataEnd - d.pos
		if remaining <= 0 {
			d.eof = true

			break
		}

		toRead := int64(len(buf))
		if remaining < toRead {
			toRead = remaining
		}

		read, err := d.file.Read(buf[:toRead])
		if read > 0 {
			d.pos += int64(read)

			combined := append(d.tailBytes, buf[:read]...)

			channels, consumed := wav.DecodeFrames(combined, d.format)
			if consumed > 0 {
				mono := wav.DownmixMono(channels)
				d.pending = append(d.pending, d.resampler.Push(mono)...)
			}

			d.tailBytes = append([]byte(nil), combined[consumed:]...)
		}

		if err == io.EOF {
			d.eof = true

			break
		}

		if err != nil {
			d.log.Warn("transient decode error, skipping packet", "error", err)

			continue
		}
	}

	return nil
}

// Pop removes and returns up to n pending samples.
func (d *Decoder) Pop(n int) []float64 {
	if n > len(d.pending) {
		n = len(d.pending)
	}

	out := d.pending[:n]
	d.pending = d.pending[n:]

	return out
}

// Drain removes and returns every pending sample.
func (d *Decoder) Drain() []float64 {
	out := d.pending
	d.pending = nil

	return out
}

// Seek discards pending state and resampler residual, then seeks the
// container to the given media time.
func (d *Decoder) Seek(seconds float64) error {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return faults.ErrInvalidSeekTime
	}

	frameBytes := int64(wav.FrameBytes(d.format))
	offsetFrames := int64(seconds * float64(d.format.SampleRate))
	byteOffset := d.dataStart + offsetFrames*frameBytes

	if byteOffset > d.dataEnd {
		byteOffset = d.dataEnd
	}

	pos, err := d.file.Seek(byteOffset, io.SeekStart)
	if err != nil {
		return fmt.Errorf("%w: %w", faults.ErrReadFailure, err)
	}

	d.pos = pos
	d.pending = nil
	d.tailBytes = nil
	d.resampler.Reset()
	d.eof = pos >= d.dataEnd

	return nil
}

// Close releases the underlying file handle.
func (d *Decoder) Close() error {
	return d.file.Close()
}
