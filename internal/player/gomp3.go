package player

import (
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/llehouerou/go-mp3"
)

// mp3Bytes is the size of one decoded frame: stereo, 16 bits per channel.
const mp3Bytes = 4

// goMP3Decoder adapts llehouerou/go-mp3 to beep.StreamSeekCloser. Seeking
// is sample accurate.
type goMP3Decoder struct {
	dec    *mp3.Decoder
	closer io.Closer
	buf    []byte
	err    error
}

func decodeGoMP3(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	dec, err := mp3.NewDecoder(rc)
	if err != nil {
		return nil, beep.Format{}, errors.Wrap(err, "mp3")
	}
	rate := dec.SampleRate()
	if rate == 0 {
		return nil, beep.Format{}, errors.New("mp3: invalid sample rate")
	}
	format := beep.Format{
		SampleRate:  beep.SampleRate(rate),
		NumChannels: 2,
		Precision:   2,
	}
	return &goMP3Decoder{dec: dec, closer: rc}, format, nil
}

func (d *goMP3Decoder) Stream(samples [][2]float64) (n int, ok bool) {
	if d.err != nil {
		return 0, false
	}
	want := len(samples) * mp3Bytes
	if cap(d.buf) < want {
		d.buf = make([]byte, want)
	}
	buf := d.buf[:want]

	read, err := io.ReadFull(d.dec, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		d.err = err
		return 0, false
	}
	n = read / mp3Bytes
	for i := range n {
		b := buf[i*mp3Bytes:]
		samples[i][0] = float64(int16(binary.LittleEndian.Uint16(b))) / 32768    //nolint:gosec // audio samples
		samples[i][1] = float64(int16(binary.LittleEndian.Uint16(b[2:]))) / 32768 //nolint:gosec // audio samples
	}
	return n, n > 0
}

func (d *goMP3Decoder) Err() error { return d.err }

func (d *goMP3Decoder) Len() int {
	return int(max(d.dec.SampleCount(), 0))
}

func (d *goMP3Decoder) Position() int {
	return int(d.dec.SamplePosition())
}

func (d *goMP3Decoder) Seek(p int) error {
	p = min(max(p, 0), d.Len())
	if err := d.dec.SeekToSample(int64(p)); err != nil {
		return errors.Wrap(err, "mp3 seek")
	}
	d.err = nil
	return nil
}

func (d *goMP3Decoder) Close() error {
	return d.closer.Close()
}
