// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stripe_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"code.hybscloud.com/winarr/internal/stripe"
)

func TestSetRoundsToPow2(t *testing.T) {
	for _, tc := range []struct{ n, want int }{{1, 1}, {3, 4}, {64, 64}, {100, 128}} {
		if got := stripe.New(tc.n).Len(); got != tc.want {
			t.Fatalf("New(%d).Len: got %d, want %d", tc.n, got, tc.want)
		}
	}
}

func TestSetPanicsOnZero(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("New(0): expected panic")
		}
	}()
	stripe.New(0)
}

func TestForIsDeterministic(t *testing.T) {
	s := stripe.New(8)
	if s.For(3) != s.For(3) {
		t.Fatal("For(3): got different locks for the same index")
	}
	if s.For(3) != s.For(11) {
		t.Fatal("For(3), For(11): indices 8 apart must share a stripe")
	}
	if s.For(3) == s.For(4) {
		t.Fatal("For(3), For(4): adjacent indices must not share a stripe")
	}
}

func TestWaitDeadlinePassed(t *testing.T) {
	l := stripe.New(1).For(0)
	l.Lock()
	defer l.Unlock()
	ok, err := l.Wait(context.Background(), time.Now().Add(-time.Millisecond))
	if ok || err != nil {
		t.Fatalf("Wait(past deadline): got (%v, %v), want (false, nil)", ok, err)
	}
}

func TestWaitTimeout(t *testing.T) {
	l := stripe.New(1).For(0)
	l.Lock()
	defer l.Unlock()
	start := time.Now()
	ok, err := l.Wait(context.Background(), start.Add(30*time.Millisecond))
	if ok || err != nil {
		t.Fatalf("Wait: got (%v, %v), want (false, nil)", ok, err)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Fatalf("Wait returned after %v, want >= 30ms", elapsed)
	}
	if l.Waiters() != 0 {
		t.Fatalf("Waiters after timeout: got %d, want 0", l.Waiters())
	}
}

func TestBroadcastWakesAll(t *testing.T) {
	l := stripe.New(1).For(0)
	const n = 4
	done := make(chan bool, n)
	for range n {
		go func() {
			l.Lock()
			ok, _ := l.Wait(context.Background(), time.Time{})
			l.Unlock()
			done <- ok
		}()
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		l.Lock()
		w := l.Waiters()
		if w == n {
			l.Broadcast()
			l.Unlock()
			break
		}
		l.Unlock()
		if time.Now().After(deadline) {
			t.Fatalf("waiters: got %d, want %d", w, n)
		}
		time.Sleep(time.Millisecond)
	}

	for range n {
		select {
		case ok := <-done:
			if !ok {
				t.Fatal("Wait: got false after Broadcast")
			}
		case <-time.After(5 * time.Second):
			t.Fatal("waiter not woken by Broadcast")
		}
	}
}

func TestBroadcastWithoutWaiters(t *testing.T) {
	l := stripe.New(1).For(0)
	l.Lock()
	l.Broadcast()
	l.Broadcast()
	l.Unlock()
}

func TestWaitCancelled(t *testing.T) {
	l := stripe.New(1).For(0)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	l.Lock()
	_, err := l.Wait(ctx, time.Time{})
	l.Unlock()
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait: got %v, want context.Canceled", err)
	}
}

func TestSyncWaitsForHolders(t *testing.T) {
	s := stripe.New(4)
	l := s.For(2)
	l.Lock()

	synced := make(chan struct{})
	go func() {
		s.Sync()
		close(synced)
	}()

	select {
	case <-synced:
		t.Fatal("Sync: returned while a lock was held")
	case <-time.After(20 * time.Millisecond):
	}
	l.Unlock()

	select {
	case <-synced:
	case <-time.After(5 * time.Second):
		t.Fatal("Sync: did not return after Unlock")
	}
}
