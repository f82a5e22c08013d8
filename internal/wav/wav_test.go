package wav

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/mikup/stemscope/internal/types"
)

func buildWAV(t *testing.T, sampleRate, channels, bitDepth int, dataBytes []byte) []byte {
	t.Helper()

	bytesPerSample := bitDepth / 8
	blockAlign := bytesPerSample * channels
	byteRate := sampleRate * blockAlign

	fmtChunk := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtChunk[0:], 1)
	binary.LittleEndian.PutUint16(fmtChunk[2:], uint16(channels))
	binary.LittleEndian.PutUint32(fmtChunk[4:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(fmtChunk[8:], uint32(byteRate))
	binary.LittleEndian.PutUint16(fmtChunk[12:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(fmtChunk[14:], uint16(bitDepth))

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

	return buf
}

func TestValidatePathAcceptsWavAndWave(t *testing.T) {
	if err := ValidatePath("stem.wav"); err != nil {
		t.Errorf("ValidatePath(.wav) = %v, want nil", err)
	}

	if err := ValidatePath("stem.WAVE"); err != nil {
		t.Errorf("ValidatePath(.WAVE) = %v, want nil", err)
	}
}

func TestValidatePathRejectsOtherExtensions(t *testing.T) {
	if err := ValidatePath("stem.mp3"); err == nil {
		t.Error("expected an error for a non-wav extension")
	}
}

func TestReadHeaderParsesFormatAndDataSize(t *testing.T) {
	raw := buildWAV(t, 48000, 2, 16, make([]byte, 400))

	header, err := ReadHeader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}

	if header.Format.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want 48000", header.Format.SampleRate)
	}

	if header.Format.Channels != 2 {
		t.Errorf("Channels = %d, want 2", header.Format.Channels)
	}

	if header.Format.BitDepth != types.Depth16 {
		t.Errorf("BitDepth = %v, want Depth16", header.Format.BitDepth)
	}

	if header.DataSize != 400 {
		t.Errorf("DataSize = %d, want 400", header.DataSize)
	}
}

func TestReadHeaderRejectsBadMagic(t *testing.T) {
	if _, err := ReadHeader(bytes.NewReader(make([]byte, 20))); err == nil {
		t.Error("expected an error for a non-RIFF/WAVE header")
	}
}

func TestDecodeFramesSignExtends16Bit(t *testing.T) {
	format := types.PCMFormat{SampleRate: 48000, BitDepth: types.Depth16, Channels: 1}

	data := make([]byte, 4)
	binary.LittleEndian.PutUint16(data[0:], uint16(int16(-32768)))
	binary.LittleEndian.PutUint16(data[2:], uint16(int16(32767)))

	channels, consumed := DecodeFrames(data, format)

	if consumed != 4 {
		t.Errorf("consumed = %d, want 4", consumed)
	}

	if channels[0][0] != -1 {
		t.Errorf("channels[0][0] = %v, want -1", channels[0][0])
	}

	if channels[0][1] <= 0.99999 {
		t.Errorf("channels[0][1] = %v, want ~1", channels[0][1])
	}
}

func TestDecodeFrames24BitSignExtension(t *testing.T) {
	format := types.PCMFormat{SampleRate: 48000, BitDepth: types.Depth24, Channels: 1}

	// -1 as a 24-bit two's complement value: 0xFFFFFF.
	data := []byte{0xFF, 0xFF, 0xFF}

	channels, consumed := DecodeFrames(data, format)

	if consumed != 3 {
		t.Fatalf("consumed = %d, want 3", consumed)
	}

	if channels[0][0] >= 0 {
		t.Errorf("channels[0][0] = %v, want negative", channels[0][0])
	}
}

func TestDecodeFramesLeavesPartialFrameUnconsumed(t *testing.T) {
	format := types.PCMFormat{SampleRate: 48000, BitDepth: types.Depth16, Channels: 1}

	data := make([]byte, 3) // one and a half samples

	_, consumed := DecodeFrames(data, format)
	if consumed != 2 {
		t.Errorf("consumed = %d, want 2 (one full frame)", consumed)
	}
}

func TestDecodeQuantizedPreservesExactMax(t *testing.T) {
	format := types.PCMFormat{SampleRate: 48000, BitDepth: types.Depth16, Channels: 1}

	data := make([]byte, 2)
	binary.LittleEndian.PutUint16(data, uint16(int16(32767)))

	channels, _ := DecodeQuantized(data, format)
	if channels[0][0] != 32767 {
		t.Errorf("channels[0][0] = %d, want 32767", channels[0][0])
	}
}

func TestDownmixMonoAveragesAndClamps(t *testing.T) {
	left := []float64{1, 1}
	right := []float64{1, -1}

	mono := DownmixMono([][]float64{left, right})

	if mono[0] != 1 {
		t.Errorf("mono[0] = %v, want 1", mono[0])
	}

	if mono[1] != 0 {
		t.Errorf("mono[1] = %v, want 0", mono[1])
	}
}

func TestDownmixMonoEmptyInput(t *testing.T) {
	if got := DownmixMono(nil); got != nil {
		t.Errorf("DownmixMono(nil) = %v, want nil", got)
	}
}

func TestReadDataChunkRoundTrip(t *testing.T) {
	dataBytes := make([]byte, 200)
	for i := range dataBytes {
		dataBytes[i] = byte(i)
	}

	raw := buildWAV(t, 44100, 1, 16, dataBytes)

	path := filepath.Join(t.TempDir(), "stem.wav")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	format, data, err := ReadDataChunk(path)
	if err != nil {
		t.Fatalf("ReadDataChunk: %v", err)
	}

	if format.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", format.SampleRate)
	}

	if !bytes.Equal(data, dataBytes) {
		t.Error("ReadDataChunk returned a different data chunk than was written")
	}
}

func TestReadDataChunkMissingFile(t *testing.T) {
	if _, _, err := ReadDataChunk(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("expected an error reading a nonexistent file")
	}
}
