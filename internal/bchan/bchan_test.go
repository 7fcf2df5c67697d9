package bchan_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/braid-engine/braid/internal/bchan"
	"github.com/braid-engine/braid/internal/btest"
	"github.com/stretchr/testify/require"
)

// jsonLog returns a logger whose JSON output accumulates in the buffer,
// so tests can decode individual records.
func jsonLog() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil)), &buf
}

// stillBlocked asserts that results has produced nothing
// within a short grace window.
func stillBlocked[T any](t *testing.T, results <-chan T) {
	t.Helper()

	select {
	case <-results:
		t.Fatal("result arrived before the operation should have finished")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestSendC_contextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, buf := jsonLog()

	// A nil channel blocks forever.
	var blocked chan int

	res := make(chan bool, 1)
	go func() {
		res <- bchan.SendC(ctx, log, blocked, 1, "running test")
	}()

	stillBlocked(t, res)

	// Cancellation unblocks the send attempt.
	cancel()
	require.False(t, btest.ReceiveSoon(t, res))

	// One info record names the interrupted operation and the cause.
	var m map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	require.Equal(t, "INFO", m["level"])
	require.Equal(t, "Context canceled while running test", m["msg"])
	require.Equal(t, context.Cause(ctx).Error(), m["cause"])
}

func TestSendC_valueSent(t *testing.T) {
	t.Parallel()

	log, buf := jsonLog()

	out := make(chan int) // Unbuffered so the test controls when the send completes.

	res := make(chan bool, 1)
	go func() {
		res <- bchan.SendC(context.Background(), log, out, 1, "running test")
	}()

	stillBlocked(t, res)

	// Receiving the value unblocks the sender.
	require.Equal(t, 1, btest.ReceiveSoon(t, out))
	require.True(t, btest.ReceiveSoon(t, res))

	// An uninterrupted send logs nothing.
	require.Zero(t, buf.Len())
}

func TestRecvC_contextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, buf := jsonLog()

	type result struct {
		val      int
		received bool
	}

	in := make(chan int)
	res := make(chan result, 1)
	go func() {
		val, received := bchan.RecvC(ctx, log, in, "running test")
		res <- result{val: val, received: received}
	}()

	stillBlocked(t, res)

	// Cancellation unblocks the receive with a zero value.
	cancel()
	got := btest.ReceiveSoon(t, res)
	require.Zero(t, got.val)
	require.False(t, got.received)

	var m map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	require.Equal(t, "INFO", m["level"])
	require.Equal(t, "Context canceled while running test", m["msg"])
	require.Equal(t, context.Cause(ctx).Error(), m["cause"])
}

func TestRecvC_valueReceived(t *testing.T) {
	t.Parallel()

	log, buf := jsonLog()

	type result struct {
		val      int
		received bool
	}

	in := make(chan int)
	res := make(chan result, 1)
	go func() {
		val, received := bchan.RecvC(context.Background(), log, in, "running test")
		res <- result{val: val, received: received}
	}()

	stillBlocked(t, res)

	in <- 1
	got := btest.ReceiveSoon(t, res)
	require.Equal(t, 1, got.val)
	require.True(t, got.received)

	// An uninterrupted receive logs nothing.
	require.Zero(t, buf.Len())
}

func TestSendCLogBlocked_fastSendLogsNothing(t *testing.T) {
	t.Parallel()

	log, buf := jsonLog()

	out := make(chan int, 1)

	sent := bchan.SendCLogBlocked(context.Background(), log, out, 1, "running test", time.Second)
	require.True(t, sent)
	require.Equal(t, 1, btest.ReceiveSoon(t, out))

	require.Zero(t, buf.Len())
}

func TestSendCLogBlocked_blockedSendLogsTwice(t *testing.T) {
	t.Parallel()

	log, buf := jsonLog()

	out := make(chan int) // Unbuffered so the send blocks until the receive below.

	res := make(chan bool, 1)
	go func() {
		res <- bchan.SendCLogBlocked(context.Background(), log, out, 1, "running test", 10*time.Millisecond)
	}()

	// Wait out the threshold before consuming, forcing the blocked log.
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, btest.ReceiveSoon(t, out))
	require.True(t, btest.ReceiveSoon(t, res))

	dec := json.NewDecoder(buf)

	var first map[string]any
	require.NoError(t, dec.Decode(&first))
	require.Equal(t, "Blocked on send attempt while running test", first["msg"])

	var second map[string]any
	require.NoError(t, dec.Decode(&second))
	require.Equal(t, "Successfully sent while running test", second["msg"])
}

func TestRecvCLogBlocked_fastReceiveLogsNothing(t *testing.T) {
	t.Parallel()

	log, buf := jsonLog()

	in := make(chan int, 1)
	in <- 9

	val, received := bchan.RecvCLogBlocked(context.Background(), log, in, "running test", time.Second)
	require.True(t, received)
	require.Equal(t, 9, val)

	require.Zero(t, buf.Len())
}

func TestRecvCLogBlocked_blockedReceiveLogsTwice(t *testing.T) {
	t.Parallel()

	log, buf := jsonLog()

	in := make(chan int)

	res := make(chan int, 1)
	go func() {
		val, _ := bchan.RecvCLogBlocked(context.Background(), log, in, "running test", 10*time.Millisecond)
		res <- val
	}()

	// Wait out the threshold before sending, forcing the blocked log.
	time.Sleep(50 * time.Millisecond)
	in <- 9
	require.Equal(t, 9, btest.ReceiveSoon(t, res))

	dec := json.NewDecoder(buf)

	var first map[string]any
	require.NoError(t, dec.Decode(&first))
	require.Equal(t, "Blocked on receive attempt while running test", first["msg"])

	var second map[string]any
	require.NoError(t, dec.Decode(&second))
	require.Equal(t, "Successfully received while running test", second["msg"])
}

func TestReqResp_roundTrip(t *testing.T) {
	t.Parallel()

	log, buf := jsonLog()

	reqs := make(chan int)
	resps := make(chan string)

	// Stand-in kernel: doubles the request and reports it as a string.
	go func() {
		req := <-reqs
		if req == 2 {
			resps <- "four"
		}
	}()

	got, ok := bchan.ReqResp(context.Background(), log, reqs, 2, resps, "doubling")
	require.True(t, ok)
	require.Equal(t, "four", got)

	require.Zero(t, buf.Len())
}

func TestReqResp_canceledAwaitingResponse(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, buf := jsonLog()

	reqs := make(chan int, 1)
	resps := make(chan string) // Never written; the response wait must cancel.

	res := make(chan bool, 1)
	go func() {
		_, ok := bchan.ReqResp(ctx, log, reqs, 2, resps, "doubling")
		res <- ok
	}()

	// The request itself goes through the buffered channel.
	require.Equal(t, 2, btest.ReceiveSoon(t, reqs))

	cancel()
	require.False(t, btest.ReceiveSoon(t, res))

	var m map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	require.Equal(t, "Context canceled while receiving doubling response", m["msg"])
}
