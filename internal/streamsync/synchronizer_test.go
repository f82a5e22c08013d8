package streamsync

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/mikup/stemscope/internal/types"
)

func writeMonoWAV16(t *testing.T, name string, sampleRate int, samples []int16) string {
	t.Helper()

	dataBytes := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(dataBytes[i*2:], uint16(s)) //nolint:gosec
	}

	fmtChunk := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtChunk[0:], 1)
	binary.LittleEndian.PutUint16(fmtChunk[2:], 1)
	binary.LittleEndian.PutUint32(fmtChunk[4:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(fmtChunk[8:], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(fmtChunk[12:], 2)
	binary.LittleEndian.PutUint16(fmtChunk[14:], 16)

	var buf []byte

	buf = append(buf, []byte("RIFF")...)
	buf = append(buf, make([]byte, 4)...)
	buf = append(buf, []byte("WAVE")...)
	buf = append(buf, []byte("fmt ")...)

	chunkSize := make([]byte, 4)
	binary.LittleEndian.PutUint32(chunkSize, uint32(len(fmtChunk)))
	buf = append(buf, chunkSize...)
	buf = append(buf, fmtChunk...)

	buf = append(buf, []byte("data")...)
	dataSize := make([]byte, 4)
	binary.LittleEndian.PutUint32(dataSize, uint32(len(dataBytes)))
	buf = append(buf, dataSize...)
	buf = append(buf, dataBytes...)

	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(buf)-8))

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, buf, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	return path
}

func TestNewRequiresDialoguePath(t *testing.T) {
	states := NewStateMap([]types.StemID{types.StemDialogue})

	_, err := New(Paths{}, 48000, 256, 0.005, states)
	if err == nil {
		t.Fatal("expected an error when dialogue path is missing")
	}
}

func TestReadFrameEmitsFixedSizeFrames(t *testing.T) {
	const (
		sampleRate = 48000
		frameSize  = 256
	)

	dialogue := make([]int16, frameSize*4)
	for i := range dialogue {
		dialogue[i] = 1000
	}

	music := make([]int16, frameSize*4)
	for i := range music {
		music[i] = 500
	}

	paths := Paths{
		types.StemDialogue: writeMonoWAV16(t, "dialogue.wav", sampleRate, dialogue),
		types.StemMusic:    writeMonoWAV16(t, "music.wav", sampleRate, music),
	}

	states := NewStateMap([]types.StemID{types.StemDialogue, types.StemMusic})

	sync, err := New(paths, sampleRate, frameSize, 0.005, states)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sync.Close()

	frame, ok, err := sync.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}

	if !ok {
		t.Fatal("expected ok=true on the first frame")
	}

	if len(frame.Dialogue) != frameSize {
		t.Errorf("len(Dialogue) = %d, want %d", len(frame.Dialogue), frameSize)
	}

	if frame.FrameIndex != 1 {
		t.Errorf("FrameIndex = %d, want 1", frame.FrameIndex)
	}
}

func TestReadFrameEOFAfterAllStemsDrained(t *testing.T) {
	const (
		sampleRate = 48000
		frameSize  = 256
	)

	paths := Paths{
		types.StemDialogue: writeMonoWAV16(t, "dialogue.wav", sampleRate, make([]int16, frameSize)),
	}

	states := NewStateMap([]types.StemID{types.StemDialogue})

	sync, err := New(paths, sampleRate, frameSize, 0.005, states)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sync.Close()

	_, ok, err := sync.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}

	if !ok {
		t.Fatal("expected the first full frame to succeed")
	}

	_, ok, err = sync.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}

	if ok {
		t.Error("expected ok=false once the single-frame stem is exhausted")
	}
}

func TestReadFrameAlignmentMismatchOnUnevenStemLengths(t *testing.T) {
	const (
		sampleRate = 48000
		frameSize  = 256
	)

	paths := Paths{
		types.StemDialogue: writeMonoWAV16(t, "dialogue.wav", sampleRate, make([]int16, frameSize*2)),
		types.StemMusic:    writeMonoWAV16(t, "music.wav", sampleRate, make([]int16, frameSize/2)),
	}

	states := NewStateMap([]types.StemID{types.StemDialogue, types.StemMusic})

	sync, err := New(paths, sampleRate, frameSize, 0.005, states)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sync.Close()

	frame, ok, err := sync.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}

	if !ok {
		t.Fatal("expected ok=true")
	}

	if !frame.AlignmentMismatch {
		t.Error("expected AlignmentMismatch true when one stem runs shorter than the frame size")
	}
}

func TestGainRampMonotonicallyApproachesTarget(t *testing.T) {
	const (
		sampleRate = 48000
		frameSize  = 4096
	)

	dialogue := make([]int16, frameSize)
	for i := range dialogue {
		dialogue[i] = 20000
	}

	paths := Paths{types.StemDialogue: writeMonoWAV16(t, "dialogue.wav", sampleRate, dialogue)}
	states := NewStateMap([]types.StemID{types.StemDialogue})
	states.Set(types.StemDialogue, types.StemState{Muted: true})

	sync, err := New(paths, sampleRate, frameSize, 0.005, states)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sync.Close()

	frame, ok, err := sync.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}

	if !ok {
		t.Fatal("expected ok=true")
	}

	for i := 1; i < len(frame.Dialogue); i++ {
		if frame.Dialogue[i-1] != 0 && frame.Dialogue[i] > frame.Dialogue[i-1] {
			t.Fatalf("gain ramp rose at sample %d: %v -> %v, want monotonically decreasing toward mute",
				i, frame.Dialogue[i-1], frame.Dialogue[i])
		}
	}
}

func TestSeekResetsStatus(t *testing.T) {
	const (
		sampleRate = 48000
		frameSize  = 256
	)

	paths := Paths{types.StemDialogue: writeMonoWAV16(t, "dialogue.wav", sampleRate, make([]int16, frameSize))}
	states := NewStateMap([]types.StemID{types.StemDialogue})

	sync, err := New(paths, sampleRate, frameSize, 0.005, states)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sync.Close()

	if err := sync.Seek(0); err != nil {
		t.Fatalf("Seek: %v", err)
	}

	_, ok, err := sync.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame after Seek: %v", err)
	}

	if !ok {
		t.Error("expected a readable frame immediately after seeking back to the start")
	}
}
