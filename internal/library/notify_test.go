package library

import (
	"testing"
	"time"
)

func TestNotifier(t *testing.T) {
	t.Run("delivers to every subscriber", func(t *testing.T) {
		n := NewNotifier()
		a, cancelA := n.Subscribe()
		b, cancelB := n.Subscribe()
		defer cancelA()
		defer cancelB()

		n.Publish()

		for name, ch := range map[string]<-chan struct{}{"a": a, "b": b} {
			select {
			case <-ch:
			case <-time.After(time.Second):
				t.Fatalf("subscriber %s did not receive a signal", name)
			}
		}
	})

	t.Run("publish never blocks on a slow subscriber", func(t *testing.T) {
		n := NewNotifier()
		_, cancel := n.Subscribe()
		defer cancel()

		done := make(chan struct{})
		go func() {
			// Nobody drains the channel; repeated publishes must still return.
			for i := 0; i < 10; i++ {
				n.Publish()
			}
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("publish blocked on an undrained subscriber")
		}
	})

	t.Run("unsubscribe closes the channel", func(t *testing.T) {
		n := NewNotifier()
		ch, cancel := n.Subscribe()
		cancel()

		select {
		case _, open := <-ch:
			if open {
				t.Error("expected channel to be closed")
			}
		case <-time.After(time.Second):
			t.Fatal("expected closed channel to be readable")
		}

		if n.Subscribers() != 0 {
			t.Errorf("expected 0 subscribers, got %d", n.Subscribers())
		}

		// Double-unsubscribe is a no-op.
		cancel()
	})

	t.Run("unsubscribed channels receive nothing further", func(t *testing.T) {
		n := NewNotifier()
		_, cancelA := n.Subscribe()
		b, cancelB := n.Subscribe()
		defer cancelB()

		cancelA()
		n.Publish()

		select {
		case <-b:
		case <-time.After(time.Second):
			t.Fatal("remaining subscriber did not receive a signal")
		}
	})
}
