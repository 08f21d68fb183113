package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestGuardReturnsResult(t *testing.T) {
	defer goleak.VerifyNone(t)

	v, err := Guard(context.Background(), time.Second, func() (int, error) { return 42, nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Errorf("v = %d, want 42", v)
	}
}

func TestGuardPassesErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := errors.New("boom")
	_, err := Guard(context.Background(), 0, func() (string, error) { return "", boom })
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestGuardRecoversPanic(t *testing.T) {
	defer goleak.VerifyNone(t)

	_, err := Guard(context.Background(), time.Second, func() (int, error) { panic("kaboom") })
	if err == nil || !strings.Contains(err.Error(), "panic during evaluation: kaboom") {
		t.Errorf("err = %v, want recovered panic", err)
	}
}

func TestGuardTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	start := time.Now()
	_, err := Guard(context.Background(), 20*time.Millisecond, func() (int, error) {
		<-release
		return 1, nil
	})
	close(release)

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Guard waited %s, want about 20ms", elapsed)
	}
}

func TestGuardContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := Guard(ctx, 0, func() (int, error) {
		<-release
		return 1, nil
	})
	close(release)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
