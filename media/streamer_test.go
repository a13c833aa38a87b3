package media

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var oggCRCTable = func() [256]uint32 {
	var table [256]uint32
	for i := range table {
		r := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if r&0x80000000 != 0 {
				r = (r << 1) ^ 0x04c11db7
			} else {
				r <<= 1
			}
		}
		table[i] = r
	}
	return table
}()

// oggPage builds one single-segment ogg page; payload must be shorter than 255 bytes
func oggPage(headerType byte, sequence uint32, payload []byte) []byte {
	page := make([]byte, 27, 28+len(payload))
	copy(page, "OggS")
	page[5] = headerType
	binary.LittleEndian.PutUint64(page[6:], uint64(sequence)*960)
	binary.LittleEndian.PutUint32(page[14:], 1234)
	binary.LittleEndian.PutUint32(page[18:], sequence)
	page[26] = 1
	page = append(page, byte(len(payload)))
	page = append(page, payload...)

	var crc uint32
	for _, b := range page {
		crc = (crc << 8) ^ oggCRCTable[byte(crc>>24)^b]
	}
	binary.LittleEndian.PutUint32(page[22:], crc)
	return page
}

func opusStream(frames ...string) []byte {
	head := []byte("OpusHead")
	head = append(head, 1, 2)                        // version, channels
	head = binary.LittleEndian.AppendUint16(head, 0) // pre-skip
	head = binary.LittleEndian.AppendUint32(head, 48000)
	head = binary.LittleEndian.AppendUint16(head, 0) // output gain
	head = append(head, 0)                           // channel mapping

	var buf bytes.Buffer
	buf.Write(oggPage(2, 0, head))
	buf.Write(oggPage(0, 1, []byte("OpusTags\x00\x00\x00\x00\x00\x00\x00\x00")))
	for i, f := range frames {
		buf.Write(oggPage(0, uint32(i+2), []byte(f)))
	}
	return buf.Bytes()
}

func TestReadOpus(t *testing.T) {
	var got []string
	err := ReadOpus(bytes.NewReader(opusStream("f1", "f2", "f3")), func(frame []byte) error {
		got = append(got, string(frame))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f2", "f3"}, got)
}

func TestReadOpus_SinkError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := ReadOpus(bytes.NewReader(opusStream("f1", "f2")), func(frame []byte) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestReadOpus_BadHeader(t *testing.T) {
	err := ReadOpus(bytes.NewReader([]byte("not an ogg stream at all, just text")), func([]byte) error { return nil })
	assert.Error(t, err)
}

func TestProcessStreamer_Args(t *testing.T) {
	s := NewProcessStreamer("yt-dlp", "ffmpeg")

	args := s.downloadArgs("ytsearch1:lofi beats")
	assert.Equal(t, "ytsearch1:lofi beats", args[len(args)-1])
	assert.Contains(t, args, "--no-playlist")

	transcode := s.transcodeArgs()
	assert.Contains(t, transcode, "libopus")
	assert.Equal(t, "pipe:1", transcode[len(transcode)-1])
}
