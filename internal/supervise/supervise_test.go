package supervise

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGroupCancelsSiblingsOnFailure(t *testing.T) {
	t.Parallel()
	g, ctx := New(context.Background(), nil)

	started := make(chan struct{})
	siblingSawCancel := make(chan bool, 1)

	g.Go("failing", func(ctx context.Context) error {
		close(started)
		return errors.New("boom")
	})
	g.Go("sibling", func(ctx context.Context) error {
		<-started
		select {
		case <-ctx.Done():
			siblingSawCancel <- true
		case <-time.After(time.Second):
			siblingSawCancel <- false
		}
		return ctx.Err()
	})

	err := g.Wait()
	if err == nil || err.Error() != "boom" {
		t.Fatalf("Wait() = %v, want boom", err)
	}
	if !<-siblingSawCancel {
		t.Fatal("sibling task never observed context cancellation")
	}
}

func TestGroupObservesExternalParentCancellation(t *testing.T) {
	t.Parallel()
	parent, cancelParent := context.WithCancel(context.Background())
	g, ctx := New(parent, nil)

	sawCancel := make(chan bool, 1)
	g.Go("watcher", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			sawCancel <- true
		case <-time.After(time.Second):
			sawCancel <- false
		}
		return nil
	})

	cancelParent()
	if err := g.Wait(); err != nil {
		t.Fatalf("Wait() = %v, want nil", err)
	}
	if !<-sawCancel {
		t.Fatal("task never observed the parent context's cancellation")
	}
	if ctx.Err() == nil {
		t.Fatal("derived context should report an error after parent cancellation")
	}
}

func TestGroupWaitReturnsNilWhenAllTasksSucceed(t *testing.T) {
	t.Parallel()
	g, _ := New(context.Background(), nil)
	g.Go("a", func(ctx context.Context) error { return nil })
	g.Go("b", func(ctx context.Context) error { return nil })
	if err := g.Wait(); err != nil {
		t.Fatalf("Wait() = %v, want nil", err)
	}
}
