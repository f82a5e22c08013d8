package output

import (
	"fmt"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/mikup/stemscope/internal/faults"
	"github.com/mikup/stemscope/internal/resample"
)

const defaultChannels = 2

// Player owns the default output device and the SPSC ring feeding its
// callback. Construction may fail (no device, unsupported format); such a
// failure is non-fatal to the overall analyzer since audio monitoring is
// optional.
type Player struct {
	stream       *portaudio.Stream
	ring         *ring
	hardwareRate int
	channels     int
	resampler    *resample.Linear
}

// Open initializes portaudio and opens the default output-only stream at
// hardwareRate, fanning the mono mix out to defaultChannels. The
// producer side (PushNonblocking/PushBlocking) accepts samples at
// engineRate and resamples internally.
func Open(engineRate, hardwareRate int, bufferSeconds float64) (*Player, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: %w", faults.ErrOutputDeviceUnavailable, err)
	}

	p := &Player{
		ring:         newRing(ringCapacity(hardwareRate, defaultChannels, bufferSeconds)),
		hardwareRate: hardwareRate,
		channels:     defaultChannels,
		resampler:    resample.New(engineRate, hardwareRate),
	}

	stream, err := portaudio.OpenDefaultStream(0, defaultChannels, float64(hardwareRate), 0, p.callback)
	if err != nil {
		portaudio.Terminate()

		return nil, fmt.Errorf("%w: %w", faults.ErrOutputDeviceUnavailable, err)
	}

	if err := stream.Start(); err != nil {
		portaudio.Terminate()

		return nil, fmt.Errorf("%w: %w", faults.ErrOutputDeviceUnavailable, err)
	}

	p.stream = stream

	return p, nil
}

// callback must never block: it only pops from the ring and fans the
// single mixed channel out to every output channel.
func (p *Player) callback(out [][]float32) {
	numFrames := len(out[0])

	for i := 0; i < numFrames; i++ {
		sample := float32(p.ring.pop())
		for c := range out {
			out[c][i] = sample
		}
	}
}

// PushNonblocking forwards mixed engine-rate samples, resampling to the
// hardware rate, and drops whatever doesn't fit. This is the realtime
// telemetry path.
func (p *Player) PushNonblocking(samples []float64) {
	p.ring.pushNonblocking(p.resampler.Push(samples))
}

// PushBlocking is the offline/bulk path: it retries until every sample is
// enqueued or cancel() returns true.
func (p *Player) PushBlocking(samples []float64, cancel func() bool) {
	p.ring.pushBlocking(p.resampler.Push(samples), cancel)
}

// MarkProducerFinished signals no further samples will be pushed; once the
// callback observes the ring empty, Drained reports true.
func (p *Player) MarkProducerFinished() {
	p.ring.markFinished()
}

// Drained reports whether the producer is finished and the ring is empty.
func (p *Player) Drained() bool {
	return p.ring.drained()
}

// WaitUntilDrainedOrCancel polls until Drained or cancel() returns true.
func (p *Player) WaitUntilDrainedOrCancel(cancel func() bool, pollInterval time.Duration) {
	for !p.Drained() {
		if cancel != nil && cancel() {
			return
		}

		time.Sleep(pollInterval)
	}
}

// Underruns returns the count of callback pops that found the ring empty.
func (p *Player) Underruns() uint64 {
	return p.ring.underrunCount()
}

// Close stops and releases the stream and terminates portaudio.
func (p *Player) Close() error {
	if p.stream == nil {
		return nil
	}

	if err := p.stream.Stop(); err != nil {
		return fmt.Errorf("%w: %w", faults.ErrOutputDeviceUnavailable, err)
	}

	if err := p.stream.Close(); err != nil {
		return fmt.Errorf("%w: %w", faults.ErrOutputDeviceUnavailable, err)
	}

	portaudio.Terminate()

	return nil
}
