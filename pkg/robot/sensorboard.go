package robot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// Sensor board defaults. The board firmware answers one request per line.
const (
	DefaultSensorBaudRate = 115200
	SensorTimeout         = 200 * time.Millisecond
	MaxSensorChannel      = SensorChannel(5)

	sensorBoardHello = "insectbot"
)

var errReadTimeout = errors.New("read timeout")

var log = logrus.WithFields(logrus.Fields{
	"pkg": "robot",
})

// inputResetter is implemented by serial.Port.
type inputResetter interface {
	ResetInputBuffer() error
}

// SensorBoard reads analog samples from a microcontroller over a serial
// line. It implements Sensor.
//
// Protocol: "A<n>\n" is answered with "A<n>=<sample>", or "A<n>=E" for a
// channel the board doesn't have; "?\n" is answered with "insectbot".
// Replies echo the channel so a late answer to an earlier request is never
// taken for the current one.
type SensorBoard struct {
	rw      io.ReadWriteCloser
	pending []byte
}

var _ Sensor = (*SensorBoard)(nil)

// OpenSensorBoard opens the serial port of a sensor board.
func OpenSensorBoard(port string, baudRate int) (*SensorBoard, error) {
	if baudRate <= 0 {
		baudRate = DefaultSensorBaudRate
	}
	p, err := serial.Open(port, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrSensorUnavailable, port, err)
	}
	if err := p.SetReadTimeout(SensorTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("%w: set timeout: %w", ErrSensorUnavailable, err)
	}
	return NewSensorBoard(p), nil
}

// NewSensorBoard speaks the board protocol over an already open stream. A
// Read returning no data and no error is treated as a timeout, which is what
// serial ports do once their read timeout expires.
func NewSensorBoard(rw io.ReadWriteCloser) *SensorBoard {
	return &SensorBoard{rw: rw}
}

// Close closes the underlying port.
func (b *SensorBoard) Close() error {
	return b.rw.Close()
}

// Ping checks that the other end is a sensor board.
func (b *SensorBoard) Ping(ctx context.Context) error {
	// Sample replies are leftovers from earlier requests.
	reply, err := b.request(ctx, "?", func(line string) bool {
		return !strings.Contains(line, "=")
	})
	if err != nil {
		return err
	}
	if reply != sensorBoardHello {
		return fmt.Errorf("%w: unexpected hello %q", ErrSensorUnavailable, reply)
	}
	return nil
}

// ReadRaw returns one sample of analog input ch.
func (b *SensorBoard) ReadRaw(ctx context.Context, ch SensorChannel) (int, error) {
	if ch < 0 || ch > MaxSensorChannel {
		return 0, fmt.Errorf("%w: %s", ErrSensorChannel, ch)
	}

	tag := ch.String() + "="
	reply, err := b.request(ctx, ch.String(), func(line string) bool {
		return strings.HasPrefix(line, tag)
	})
	if err != nil {
		return 0, err
	}
	reply = strings.TrimPrefix(reply, tag)
	if reply == "E" {
		return 0, fmt.Errorf("%w: board rejected %s", ErrSensorChannel, ch)
	}

	v, err := strconv.Atoi(reply)
	if err != nil {
		return 0, fmt.Errorf("%w: bad sample %q from %s", ErrSensorUnavailable, reply, ch)
	}
	return v, nil
}

// request discards whatever input is left over, sends cmd and returns the
// first reply line accepted by match. Other lines are dropped.
func (b *SensorBoard) request(ctx context.Context, cmd string, match func(string) bool) (string, error) {
	b.discardInput()
	if _, err := io.WriteString(b.rw, cmd+"\n"); err != nil {
		return "", fmt.Errorf("%w: write %q: %w", ErrSensorUnavailable, cmd, err)
	}
	for {
		line, err := b.readLine(ctx)
		if err != nil {
			b.discardInput()
			return "", fmt.Errorf("%w: reply to %q: %w", ErrSensorUnavailable, cmd, err)
		}
		if match(line) {
			return line, nil
		}
		log.Debugf("dropped stale reply %q while waiting for %q", line, cmd)
	}
}

// discardInput forgets buffered bytes and flushes the port's input buffer.
func (b *SensorBoard) discardInput() {
	b.pending = nil
	if r, ok := b.rw.(inputResetter); ok {
		if err := r.ResetInputBuffer(); err != nil {
			log.WithError(err).Warn("reset sensor board input")
		}
	}
}

func (b *SensorBoard) readLine(ctx context.Context) (string, error) {
	buf := make([]byte, 64)
	for {
		if i := bytes.IndexByte(b.pending, '\n'); i >= 0 {
			line := string(b.pending[:i])
			b.pending = b.pending[i+1:]
			return strings.TrimSpace(line), nil
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, err := b.rw.Read(buf)
		b.pending = append(b.pending, buf[:n]...)
		if err != nil {
			return "", err
		}
		if n == 0 {
			return "", errReadTimeout
		}
	}
}
