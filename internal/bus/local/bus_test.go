package local

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/rwaexchange/internal/domain"
)

func newBus() *Bus {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func receive(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func assertEmpty(t *testing.T, ch <-chan []byte) {
	t.Helper()
	select {
	case msg := <-ch:
		t.Fatalf("unexpected message %q", msg)
	default:
	}
}

func TestBus_ExactAndPattern(t *testing.T) {
	b := newBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session, err := b.Subscribe(ctx, domain.ChannelSession)
	require.NoError(t, err)
	all, err := b.Subscribe(ctx, "ch:*")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, domain.ChannelSession, []byte(`{"connected":true}`)))
	require.NoError(t, b.Publish(ctx, domain.ChannelInvest, []byte(`{"phase":"submitting"}`)))

	assert.Equal(t, `{"connected":true}`, string(receive(t, session)))
	assertEmpty(t, session)

	assert.Equal(t, `{"connected":true}`, string(receive(t, all)))
	assert.Equal(t, `{"phase":"submitting"}`, string(receive(t, all)))
}

func TestBus_SameChannelSubscribersAreIndependent(t *testing.T) {
	b := newBus()
	ctx := context.Background()

	ctxA, cancelA := context.WithCancel(ctx)
	a, err := b.Subscribe(ctxA, domain.ChannelInvest)
	require.NoError(t, err)
	c, err := b.Subscribe(ctx, domain.ChannelInvest)
	require.NoError(t, err)

	cancelA()
	select {
	case _, ok := <-a:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("cancelled subscription not closed")
	}

	require.NoError(t, b.Publish(ctx, domain.ChannelInvest, []byte("x")))
	assert.Equal(t, "x", string(receive(t, c)))
}

func TestBus_PayloadIsCopied(t *testing.T) {
	b := newBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := b.Subscribe(ctx, domain.ChannelSession)
	require.NoError(t, err)

	payload := []byte("abc")
	require.NoError(t, b.Publish(ctx, domain.ChannelSession, payload))
	payload[0] = 'z'
	assert.Equal(t, "abc", string(receive(t, ch)))
}

func TestBus_FullQueueDrops(t *testing.T) {
	b := newBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := b.Subscribe(ctx, domain.ChannelSession)
	require.NoError(t, err)

	for i := 0; i < bufferSize+10; i++ {
		require.NoError(t, b.Publish(ctx, domain.ChannelSession, []byte("m")))
	}
	assert.Len(t, ch, bufferSize)
}

func TestBus_BadPattern(t *testing.T) {
	b := newBus()
	_, err := b.Subscribe(context.Background(), "ch:[")
	assert.Error(t, err)
	_, err = b.Subscribe(context.Background(), "")
	assert.Error(t, err)
}
