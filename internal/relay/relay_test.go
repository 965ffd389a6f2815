package relay

import (
	"context"
	"errors"
	"iter"
	"slices"
	"testing"
)

type recordingSink struct {
	writes  []string
	closed  int
	failed  int
	failErr error
}

func (s *recordingSink) Write(p []byte) error {
	if s.closed > 0 || s.failed > 0 {
		panic("write after end")
	}
	s.writes = append(s.writes, string(p))
	return nil
}

func (s *recordingSink) Close() error { s.closed++; return nil }

func (s *recordingSink) Fail(err error) { s.failed++; s.failErr = err }

// fragments yields frags, then err if it is non-nil.
func fragments(err error, frags ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, f := range frags {
			if !yield(f, nil) {
				return
			}
		}
		if err != nil {
			yield("", err)
		}
	}
}

func TestForwardPreservesOrderAndClosesOnce(t *testing.T) {
	sink := &recordingSink{}
	if err := Forward(context.Background(), fragments(nil, "Hel", "lo, ", "world"), sink); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if !slices.Equal(sink.writes, []string{"Hel", "lo, ", "world"}) {
		t.Fatalf("unexpected writes %q", sink.writes)
	}
	if sink.closed != 1 || sink.failed != 0 {
		t.Fatalf("expected one close, got close=%d fail=%d", sink.closed, sink.failed)
	}
}

func TestForwardSkipsEmptyFragments(t *testing.T) {
	sink := &recordingSink{}
	_ = Forward(context.Background(), fragments(nil, "", "a", "", "b"), sink)
	if !slices.Equal(sink.writes, []string{"a", "b"}) {
		t.Fatalf("unexpected writes %q", sink.writes)
	}
}

func TestForwardZeroFragmentsCloses(t *testing.T) {
	sink := &recordingSink{}
	_ = Forward(context.Background(), fragments(nil), sink)
	if len(sink.writes) != 0 || sink.closed != 1 || sink.failed != 0 {
		t.Fatalf("unexpected sink state %+v", sink)
	}
}

func TestForwardFailsOnceOnUpstreamError(t *testing.T) {
	boom := errors.New("boom")
	sink := &recordingSink{}
	err := Forward(context.Background(), fragments(boom, "part"), sink)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !slices.Equal(sink.writes, []string{"part"}) {
		t.Fatalf("fragments before the failure must be delivered, got %q", sink.writes)
	}
	if sink.failed != 1 || sink.closed != 0 {
		t.Fatalf("expected one fail, got close=%d fail=%d", sink.closed, sink.failed)
	}
}

func TestForwardStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pulled := 0
	seq := func(yield func(string, error) bool) {
		for i := 0; i < 10; i++ {
			pulled++
			if i == 2 {
				cancel()
			}
			if !yield("x", nil) {
				return
			}
		}
	}

	sink := &recordingSink{}
	err := Forward(ctx, seq, sink)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if pulled != 3 {
		t.Fatalf("upstream should stop being pulled after cancel, pulled %d", pulled)
	}
	if len(sink.writes) != 2 || sink.failed != 1 || sink.closed != 0 {
		t.Fatalf("unexpected sink state %+v", sink)
	}
}
