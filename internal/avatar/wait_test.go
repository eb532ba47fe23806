package avatar

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// scriptedPoller returns statuses in order, repeating the last one.
type scriptedPoller struct {
	mu       sync.Mutex
	statuses []JobStatus
	errs     []error
	calls    int
}

func (p *scriptedPoller) PollVideo(ctx context.Context, jobID VideoJobID) (JobStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.calls
	p.calls++
	var err error
	if i < len(p.errs) {
		err = p.errs[i]
	}
	if i >= len(p.statuses) {
		i = len(p.statuses) - 1
	}
	return p.statuses[i], err
}

func (p *scriptedPoller) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestWaitForVideo_Done(t *testing.T) {
	p := &scriptedPoller{statuses: []JobStatus{
		{State: StateQueued},
		{State: StateProcessing},
		{State: StateDone, VideoURL: "https://cdn/v.mp4"},
	}}
	url, err := WaitForVideo(context.Background(), p, "v", time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://cdn/v.mp4" {
		t.Errorf("url = %q", url)
	}
	if p.count() != 3 {
		t.Errorf("polls = %d, want 3", p.count())
	}
}

func TestWaitForVideo_Failed(t *testing.T) {
	p := &scriptedPoller{statuses: []JobStatus{{State: StateFailed}}}
	_, err := WaitForVideo(context.Background(), p, "v", time.Millisecond, time.Second)
	if !IsKind(err, KindFailed) {
		t.Errorf("err = %v, want failed kind", err)
	}
}

func TestWaitForVideo_TransientPollErrors(t *testing.T) {
	p := &scriptedPoller{
		statuses: []JobStatus{{}, {State: StateDone, VideoURL: "u"}},
		errs:     []error{&Error{Kind: KindPoll, StatusCode: 502}},
	}
	url, err := WaitForVideo(context.Background(), p, "v", time.Millisecond, time.Second)
	if err != nil || url != "u" {
		t.Errorf("got (%q, %v)", url, err)
	}
}

func TestWaitForVideo_Timeout(t *testing.T) {
	p := &scriptedPoller{statuses: []JobStatus{{State: StateProcessing}}}
	start := time.Now()
	_, err := WaitForVideo(context.Background(), p, "v", 5*time.Millisecond, 40*time.Millisecond)
	if !IsKind(err, KindPollTimeout) {
		t.Fatalf("err = %v, want poll_timeout", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
	polls := p.count()
	time.Sleep(30 * time.Millisecond)
	if p.count() != polls {
		t.Error("polling continued after timeout")
	}
}

func TestWaitForVideo_Cancel(t *testing.T) {
	p := &scriptedPoller{statuses: []JobStatus{{State: StateQueued}}}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := WaitForVideo(ctx, p, "v", 5*time.Millisecond, time.Minute)
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForVideo did not return after cancel")
	}
	polls := p.count()
	time.Sleep(30 * time.Millisecond)
	if p.count() != polls {
		t.Error("polling continued after cancel")
	}
}

// hangingPoller blocks until its context ends.
type hangingPoller struct{}

func (hangingPoller) PollVideo(ctx context.Context, jobID VideoJobID) (JobStatus, error) {
	<-ctx.Done()
	return JobStatus{}, ctx.Err()
}

func TestWaitForVideo_TimeoutBoundsInFlightPoll(t *testing.T) {
	start := time.Now()
	_, err := WaitForVideo(context.Background(), hangingPoller{}, "v", 10*time.Millisecond, 100*time.Millisecond)
	if !IsKind(err, KindPollTimeout) {
		t.Fatalf("err = %v, want poll_timeout", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("hanging poll held WaitForVideo for %v", elapsed)
	}
}

func TestWaitForVideo_CancelDuringInFlightPoll(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := WaitForVideo(ctx, hangingPoller{}, "v", 10*time.Millisecond, time.Minute)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want caller's context error", err)
	}
}
