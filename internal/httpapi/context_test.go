package httpapi

import (
	"context"
	"errors"
	"testing"
	"time"
)

func waitDone(t *testing.T, ctx context.Context) {
	t.Helper()
	select {
	case <-ctx.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("context was not canceled")
	}
}

func TestJoinContextsCancelsWithEitherParent(t *testing.T) {
	for _, first := range []bool{true, false} {
		a, ac := context.WithCancel(context.Background())
		b, bc := context.WithCancel(context.Background())
		j, cancel := joinContexts(a, b)
		if first {
			ac()
		} else {
			bc()
		}
		waitDone(t, j)
		cancel()
		ac()
		bc()
	}
}

func TestGenerationContextFollowsBaseContext(t *testing.T) {
	base, cancelBase := context.WithCancel(context.Background())
	SetBaseContext(base)
	t.Cleanup(func() { SetBaseContext(context.Background()) })

	ctx, cancel := generationContext(context.Background())
	defer cancel()
	cancelBase()
	waitDone(t, ctx)
}

func TestSetBaseContextNilFallsBack(t *testing.T) {
	//nolint:staticcheck // nil is the case under test
	SetBaseContext(nil)
	if serverBaseCtx != context.Background() {
		t.Fatalf("expected background context after nil")
	}
}

func TestGenerationContextTimeout(t *testing.T) {
	SetGenerateTimeout(20 * time.Millisecond)
	t.Cleanup(func() { SetGenerateTimeout(0) })

	ctx, cancel := generationContext(context.Background())
	defer cancel()
	waitDone(t, ctx)
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.Fatalf("err=%v", ctx.Err())
	}
}

func TestGenerationContextNoTimeoutByDefault(t *testing.T) {
	SetGenerateTimeout(0)
	ctx, cancel := generationContext(context.Background())
	if _, ok := ctx.Deadline(); ok {
		t.Fatalf("unexpected deadline")
	}
	cancel()
	waitDone(t, ctx)
}
