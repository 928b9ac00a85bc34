package wave

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"

	"staytuned/src/lib/cerr"
)

// RIFF/WAVE with either IEEE float32 frames (format 3, what ffmpeg and
// demucs emit for us) or plain 16-bit PCM (format 1).
const (
	formatPCM       = 1
	formatIEEEFloat = 3
)

type formatChunk struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

func ReadFile(path string) (Waveform, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return Waveform{}, cerr.Field("path", path).Wrap(err).Error("Failed to read wave file")
	}

	waveform, err := Decode(bytes.NewReader(contents))
	if err != nil {
		return Waveform{}, cerr.Field("path", path).Wrap(err).Error("Failed to decode wave file")
	}

	return waveform, nil
}

func WriteFile(path string, waveform Waveform) error {
	var buf bytes.Buffer
	if err := Encode(&buf, waveform); err != nil {
		return cerr.Field("path", path).Wrap(err).Error("Failed to encode waveform")
	}

	if err := os.WriteFile(path, buf.Bytes(), os.ModePerm); err != nil {
		return cerr.Field("path", path).Wrap(err).Error("Failed to write wave file")
	}

	return nil
}

func Decode(r io.Reader) (Waveform, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return Waveform{}, cerr.Wrap(err).Error("Failed to read RIFF header")
	}

	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return Waveform{}, cerr.Error("Not a RIFF/WAVE stream")
	}

	var format *formatChunk
	var data []byte

	for {
		var chunkHeader [8]byte
		if _, err := io.ReadFull(r, chunkHeader[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return Waveform{}, cerr.Wrap(err).Error("Failed to read chunk header")
		}

		chunkID := string(chunkHeader[0:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])

		chunk := make([]byte, chunkSize)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return Waveform{}, cerr.Field("chunk_id", chunkID).Wrap(err).Error("Failed to read chunk body")
		}

		// chunks are word aligned
		if chunkSize%2 == 1 {
			var pad [1]byte
			_, _ = io.ReadFull(r, pad[:])
		}

		switch chunkID {
		case "fmt ":
			parsed, err := parseFormatChunk(chunk)
			if err != nil {
				return Waveform{}, err
			}
			format = &parsed
		case "data":
			data = chunk
		}
	}

	if format == nil {
		return Waveform{}, cerr.Error("Wave stream has no fmt chunk")
	}

	if data == nil {
		return Waveform{}, cerr.Error("Wave stream has no data chunk")
	}

	return decodeFrames(*format, data)
}

func parseFormatChunk(chunk []byte) (formatChunk, error) {
	if len(chunk) < 16 {
		return formatChunk{}, cerr.Field("chunk_len", len(chunk)).Error("fmt chunk is too short")
	}

	return formatChunk{
		AudioFormat:   binary.LittleEndian.Uint16(chunk[0:2]),
		NumChannels:   binary.LittleEndian.Uint16(chunk[2:4]),
		SampleRate:    binary.LittleEndian.Uint32(chunk[4:8]),
		ByteRate:      binary.LittleEndian.Uint32(chunk[8:12]),
		BlockAlign:    binary.LittleEndian.Uint16(chunk[12:14]),
		BitsPerSample: binary.LittleEndian.Uint16(chunk[14:16]),
	}, nil
}

func decodeFrames(format formatChunk, data []byte) (Waveform, error) {
	numChannels := int(format.NumChannels)
	if numChannels == 0 {
		return Waveform{}, cerr.Error("Wave stream has no channels")
	}

	errctx := cerr.Fields(cerr.F{
		"audio_format":    format.AudioFormat,
		"bits_per_sample": format.BitsPerSample,
	})

	var sampleSize int
	switch {
	case format.AudioFormat == formatIEEEFloat && format.BitsPerSample == 32:
		sampleSize = 4
	case format.AudioFormat == formatPCM && format.BitsPerSample == 16:
		sampleSize = 2
	default:
		return Waveform{}, errctx.Error("Unsupported wave sample format")
	}

	frameSize := sampleSize * numChannels
	frames := len(data) / frameSize

	channels := make([][]float32, numChannels)
	for i := range channels {
		channels[i] = make([]float32, frames)
	}

	for frame := 0; frame < frames; frame++ {
		for channel := 0; channel < numChannels; channel++ {
			offset := frame*frameSize + channel*sampleSize
			switch sampleSize {
			case 4:
				bits := binary.LittleEndian.Uint32(data[offset : offset+4])
				channels[channel][frame] = math.Float32frombits(bits)
			case 2:
				value := int16(binary.LittleEndian.Uint16(data[offset : offset+2]))
				channels[channel][frame] = float32(value) / 32768.0
			}
		}
	}

	return Waveform{
		SampleRate: int(format.SampleRate),
		Channels:   channels,
	}, nil
}

// Encode writes the waveform as a float32 WAVE stream. Sample values are
// written verbatim, including any outside [-1, 1].
func Encode(w io.Writer, waveform Waveform) error {
	numChannels := len(waveform.Channels)
	if numChannels == 0 {
		return cerr.Error("Waveform has no channels")
	}

	frames := waveform.Frames()
	for _, channel := range waveform.Channels {
		if len(channel) != frames {
			return cerr.Error("Waveform channels have uneven lengths")
		}
	}

	dataSize := frames * numChannels * 4

	var header bytes.Buffer
	header.WriteString("RIFF")
	// riff size = 4 (WAVE) + fmt (8+18) + fact (8+4) + data header (8) + data
	writeUint32(&header, uint32(4+26+12+8+dataSize))
	header.WriteString("WAVE")

	header.WriteString("fmt ")
	writeUint32(&header, 18)
	writeUint16(&header, formatIEEEFloat)
	writeUint16(&header, uint16(numChannels))
	writeUint32(&header, uint32(waveform.SampleRate))
	writeUint32(&header, uint32(waveform.SampleRate*numChannels*4))
	writeUint16(&header, uint16(numChannels*4))
	writeUint16(&header, 32)
	writeUint16(&header, 0) // no format extension

	header.WriteString("fact")
	writeUint32(&header, 4)
	writeUint32(&header, uint32(frames))

	header.WriteString("data")
	writeUint32(&header, uint32(dataSize))

	if _, err := w.Write(header.Bytes()); err != nil {
		return cerr.Wrap(err).Error("Failed to write wave header")
	}

	data := make([]byte, dataSize)
	for frame := 0; frame < frames; frame++ {
		for channel := 0; channel < numChannels; channel++ {
			offset := (frame*numChannels + channel) * 4
			bits := math.Float32bits(waveform.Channels[channel][frame])
			binary.LittleEndian.PutUint32(data[offset:offset+4], bits)
		}
	}

	if _, err := w.Write(data); err != nil {
		return cerr.Wrap(err).Error("Failed to write wave frames")
	}

	return nil
}

func writeUint16(buf *bytes.Buffer, value uint16) {
	var scratch [2]byte
	binary.LittleEndian.PutUint16(scratch[:], value)
	buf.Write(scratch[:])
}

func writeUint32(buf *bytes.Buffer, value uint32) {
	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], value)
	buf.Write(scratch[:])
}
