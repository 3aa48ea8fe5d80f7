package yp4g

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"time"
)

// randomBufferSize is the chunk size of the pseudorandom upload buffer.
const randomBufferSize = 10 * 1024

// throttlePoll is how long the writer sleeps while over the rate ceiling.
const throttlePoll = 10 * time.Millisecond

// RandomBody streams a synthetic upload payload of the declared length
// under a byte-rate ceiling, reporting completion percentage after every
// chunk. A two-byte CRLF terminator follows the payload and is counted
// toward the declared content length.
type RandomBody struct {
	length     int // payload bytes, excluding the terminator
	limit      int // bytes per second
	onProgress func(percent int)
	buf        []byte
	now        func() time.Time
	sleep      func(context.Context, time.Duration) error
}

// NewRandomBody creates a payload of length bytes throttled to limit
// bytes/second. onProgress receives values in [0, 100], non-decreasing.
func NewRandomBody(length, limit int, onProgress func(int)) *RandomBody {
	buf := make([]byte, randomBufferSize)
	rand.Read(buf)
	if onProgress == nil {
		onProgress = func(int) {}
	}
	return &RandomBody{
		length:     length,
		limit:      limit,
		onProgress: onProgress,
		buf:        buf,
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// ContentLength is the total number of bytes WriteTo produces.
func (b *RandomBody) ContentLength() int64 {
	return int64(b.length) + 2
}

// WriteTo streams the payload to w. The throttle check runs after every
// chunk: while sent bytes exceed limit*(1+elapsedSeconds) the writer sleeps
// in short, cancellable intervals. I/O errors propagate from w.
func (b *RandomBody) WriteTo(ctx context.Context, w io.Writer) error {
	sent := 0
	start := b.now()

	speeding := func() bool {
		elapsed := b.now().Sub(start).Seconds()
		return float64(sent) > float64(b.limit)*(1+elapsed)
	}

	b.onProgress(0)
	for sent < b.length {
		c := b.length - sent
		if c > len(b.buf) {
			c = len(b.buf)
		}
		if _, err := w.Write(b.buf[:c]); err != nil {
			return err
		}
		sent += c
		b.onProgress(100 * sent / b.length)

		for speeding() {
			if err := b.sleep(ctx, throttlePoll); err != nil {
				return err
			}
		}
	}

	if _, err := w.Write([]byte{0x0d, 0x0a}); err != nil {
		return err
	}
	return nil
}

// String describes the body for logging.
func (b *RandomBody) String() string {
	return fmt.Sprintf("RandomBody length=%d limit=%d", b.length, b.limit)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
