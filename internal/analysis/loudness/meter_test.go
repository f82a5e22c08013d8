package loudness

import (
	"math"
	"testing"
)

func sineWave(freq float64, sampleRate, numSamples int) []float64 {
	out := make([]float64, numSamples)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}

	return out
}

func TestCrestFactorSine(t *testing.T) {
	samples := sineWave(1000, 48000, 48000)

	got := CrestFactor(samples)
	want := math.Sqrt2

	if math.Abs(got-want)/want > 0.05 {
		t.Errorf("crest factor = %.4f, want ~%.4f within 5%%", got, want)
	}
}

func TestCrestFactorEmpty(t *testing.T) {
	if got := CrestFactor(nil); got != 0 {
		t.Errorf("CrestFactor(nil) = %v, want 0", got)
	}
}

func TestCrestFactorSilentFloor(t *testing.T) {
	samples := make([]float64, 1000)

	if got := CrestFactor(samples); got != 0 {
		t.Errorf("CrestFactor(silence) = %v, want 0", got)
	}
}

func TestTruePeakSilence(t *testing.T) {
	samples := make([]float64, 1000)

	if got := TruePeakDbTP(samples); got != silenceFloorDbTP {
		t.Errorf("TruePeakDbTP(silence) = %v, want %v", got, silenceFloorDbTP)
	}
}

func TestTruePeakEmptyInput(t *testing.T) {
	if got := TruePeakDbTP(nil); got != silenceFloorDbTP {
		t.Errorf("TruePeakDbTP(nil) = %v, want %v", got, silenceFloorDbTP)
	}
}

func TestTruePeakFullScale(t *testing.T) {
	samples := make([]float64, 100)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 1
		} else {
			samples[i] = -1
		}
	}

	got := TruePeakDbTP(samples)
	if got < -0.5 || got > 6 {
		t.Errorf("TruePeakDbTP(full-scale alternating) = %v, expected roughly 0..6 dBTP", got)
	}
}

func TestMeterIntegratedSilence(t *testing.T) {
	m := NewMeter(48000)
	m.AddSamples(make([]float64, 48000))

	if got := m.Integrated(); got != clampedFloorLUFS {
		t.Errorf("Integrated(silence) = %v, want %v", got, clampedFloorLUFS)
	}
}

func TestMeterIntegratedSteadyTone(t *testing.T) {
	m := NewMeter(48000)

	samples := sineWave(1000, 48000, 48000*5)
	m.AddSamples(samples)

	got := m.Integrated()
	if got < -40 || got > 10 {
		t.Errorf("Integrated(1kHz tone) = %v, expected a finite, non-floor loudness value", got)
	}
}

func TestMeterLoudnessRangeConstantLevel(t *testing.T) {
	m := NewMeter(48000)

	samples := sineWave(1000, 48000, 48000*10)
	m.AddSamples(samples)

	if got := m.LoudnessRange(); got < 0 || got > 2 {
		t.Errorf("LoudnessRange(constant tone) = %v, expected near 0", got)
	}
}

func TestClampLUFS(t *testing.T) {
	cases := map[float64]float64{
		0:    0,
		5:    0,
		-50:  -50,
		-100: clampedFloorLUFS,
		math.NaN(): clampedFloorLUFS,
	}

	for in, want := range cases {
		if got := clampLUFS(in); got != want {
			t.Errorf("clampLUFS(%v) = %v, want %v", in, got, want)
		}
	}
}
