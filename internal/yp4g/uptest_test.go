package yp4g

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func TestRandomBody_TotalBytes(t *testing.T) {
	const length = 25 * 1024

	body := NewRandomBody(length, 1<<30, nil)
	var buf bytes.Buffer
	if err := body.WriteTo(context.Background(), &buf); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}

	if got := buf.Len(); got != length+2 {
		t.Errorf("wrote %d bytes, want %d", got, length+2)
	}
	if int64(buf.Len()) != body.ContentLength() {
		t.Errorf("ContentLength %d != written %d", body.ContentLength(), buf.Len())
	}
	if !bytes.HasSuffix(buf.Bytes(), []byte{0x0d, 0x0a}) {
		t.Error("payload must end with CRLF terminator")
	}
}

func TestRandomBody_ProgressBoundsAndMonotonic(t *testing.T) {
	const length = 64 * 1024

	var reports []int
	body := NewRandomBody(length, 1<<30, func(p int) {
		reports = append(reports, p)
	})
	if err := body.WriteTo(context.Background(), &bytes.Buffer{}); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}

	if len(reports) == 0 {
		t.Fatal("no progress reported")
	}
	if reports[0] != 0 {
		t.Errorf("first report = %d, want 0", reports[0])
	}
	if last := reports[len(reports)-1]; last != 100 {
		t.Errorf("final report = %d, want 100", last)
	}
	for i, p := range reports {
		if p < 0 || p > 100 {
			t.Fatalf("report %d out of range: %d", i, p)
		}
		if i > 0 && p < reports[i-1] {
			t.Fatalf("progress decreased: %d after %d", p, reports[i-1])
		}
	}
}

func TestRandomBody_ThrottleWaitsWhenSpeeding(t *testing.T) {
	// Deterministic clock: every write appears instantaneous, so the body
	// must sleep until the rate formula allows the next chunk.
	now := time.Unix(0, 0)
	var slept time.Duration

	body := NewRandomBody(30*1024, 10*1024, nil)
	body.now = func() time.Time { return now }
	body.sleep = func(_ context.Context, d time.Duration) error {
		slept += d
		now = now.Add(d)
		return nil
	}

	if err := body.WriteTo(context.Background(), &bytes.Buffer{}); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}

	// 30KiB at 10KiB/s with a 1s grace: roughly two seconds of throttling
	if slept < time.Second {
		t.Errorf("throttle slept %v, expected at least 1s", slept)
	}
}

func TestRandomBody_CancelledDuringThrottle(t *testing.T) {
	now := time.Unix(0, 0)
	body := NewRandomBody(100*1024, 1, nil)
	body.now = func() time.Time { return now }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := body.WriteTo(ctx, &bytes.Buffer{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("WriteTo error = %v, want context.Canceled", err)
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) {
	return 0, errors.New("sink broken")
}

func TestRandomBody_WriteErrorPropagates(t *testing.T) {
	body := NewRandomBody(1024, 1<<30, nil)
	if err := body.WriteTo(context.Background(), failWriter{}); err == nil {
		t.Fatal("expected write error to propagate")
	}
}
