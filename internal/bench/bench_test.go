package bench

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/ttcp/internal/ticks"
	"github.com/verte-zerg/ttcp/internal/timer"
)

type countingObserver struct {
	reports  int
	bytes    int
	finished bool
}

func (o *countingObserver) Report(n int) {
	o.reports++
	o.bytes += n
}

func (o *countingObserver) Finish() {
	o.finished = true
}

type receiveOutcome struct {
	res Result
	err error
}

func zeroUsage() (timer.CPUUsage, error) {
	return timer.CPUUsage{}, nil
}

// startReceiver runs Receive on an ephemeral loopback port and returns the
// bound port plus a channel with the outcome.
func startReceiver(t *testing.T, ctx context.Context, opts Options, obs Observer) (int, <-chan receiveOutcome) {
	t.Helper()
	ready := make(chan net.Addr, 1)
	opts.Host = "127.0.0.1"
	opts.Port = 0
	opts.Usage = zeroUsage
	opts.Ready = func(addr net.Addr) { ready <- addr }
	done := make(chan receiveOutcome, 1)
	go func() {
		res, err := RunReceive(ctx, opts, obs)
		done <- receiveOutcome{res: res, err: err}
	}()
	select {
	case addr := <-ready:
		switch a := addr.(type) {
		case *net.TCPAddr:
			return a.Port, done
		case *net.UDPAddr:
			return a.Port, done
		default:
			t.Fatalf("unexpected address type %T", addr)
		}
	case out := <-done:
		t.Fatalf("receiver exited early: %v", out.err)
	case <-time.After(5 * time.Second):
		t.Fatalf("receiver did not start")
	}
	return 0, nil
}

func waitReceiver(t *testing.T, done <-chan receiveOutcome) receiveOutcome {
	t.Helper()
	select {
	case out := <-done:
		return out
	case <-time.After(10 * time.Second):
		t.Fatalf("receiver did not finish")
	}
	return receiveOutcome{}
}

func TestTCPSinkTransfer(t *testing.T) {
	ctx := context.Background()
	recvObs := &countingObserver{}
	port, done := startReceiver(t, ctx, Options{Sink: true, BufLen: 1024, Touch: true}, recvObs)

	sendObs := &countingObserver{}
	res, err := RunTransmit(ctx, Options{
		Host:    "127.0.0.1",
		Port:    port,
		Sink:    true,
		BufLen:  1024,
		NumBufs: 16,
		NoDelay: true,
		Usage:   zeroUsage,
	}, sendObs)
	if err != nil {
		t.Fatalf("transmit: %v", err)
	}
	if res.Bytes != 16*1024 || res.Calls != 16 {
		t.Fatalf("unexpected transmit result: %d bytes, %d calls", res.Bytes, res.Calls)
	}
	if sendObs.reports != 16 || sendObs.bytes != 16*1024 || !sendObs.finished {
		t.Fatalf("unexpected transmit observer state: %+v", sendObs)
	}
	if res.Role != Transmit || res.Proto != "tcp" {
		t.Fatalf("unexpected result identity: %c %s", res.Role, res.Proto)
	}

	out := waitReceiver(t, done)
	if out.err != nil {
		t.Fatalf("receive: %v", out.err)
	}
	if out.res.Bytes != 16*1024 {
		t.Fatalf("expected receiver to count 16384 bytes, got %d", out.res.Bytes)
	}
	if out.res.Calls < 2 {
		t.Fatalf("expected at least one data read and the EOF read, got %d calls", out.res.Calls)
	}
	if recvObs.bytes != 16*1024 || !recvObs.finished {
		t.Fatalf("unexpected receive observer state: %+v", recvObs)
	}
}

func TestTCPStreamCopy(t *testing.T) {
	ctx := context.Background()
	var sink bytes.Buffer
	port, done := startReceiver(t, ctx, Options{BufLen: 64, Stdout: &sink}, nil)

	payload := strings.Repeat("ttcp stream payload ", 100)
	res, err := RunTransmit(ctx, Options{
		Host:   "127.0.0.1",
		Port:   port,
		BufLen: 64,
		Stdin:  strings.NewReader(payload),
		Usage:  zeroUsage,
	}, nil)
	if err != nil {
		t.Fatalf("transmit: %v", err)
	}
	if res.Bytes != uint64(len(payload)) {
		t.Fatalf("expected %d bytes sent, got %d", len(payload), res.Bytes)
	}
	out := waitReceiver(t, done)
	if out.err != nil {
		t.Fatalf("receive: %v", out.err)
	}
	if sink.String() != payload {
		t.Fatalf("payload mismatch: got %d bytes", sink.Len())
	}
}

func TestTCPFullBlocks(t *testing.T) {
	ctx := context.Background()
	port, done := startReceiver(t, ctx, Options{Sink: true, BufLen: 1000, FullBlocks: true}, nil)
	if _, err := RunTransmit(ctx, Options{
		Host:    "127.0.0.1",
		Port:    port,
		Sink:    true,
		BufLen:  100,
		NumBufs: 25,
		Usage:   zeroUsage,
	}, nil); err != nil {
		t.Fatalf("transmit: %v", err)
	}
	out := waitReceiver(t, done)
	if out.err != nil {
		t.Fatalf("receive: %v", out.err)
	}
	if out.res.Bytes != 2500 {
		t.Fatalf("expected 2500 bytes, got %d", out.res.Bytes)
	}
}

func TestUDPSinkTransfer(t *testing.T) {
	ctx := context.Background()
	port, done := startReceiver(t, ctx, Options{UDP: true, Sink: true, BufLen: 512}, nil)

	res, err := RunTransmit(ctx, Options{
		Host:    "127.0.0.1",
		Port:    port,
		UDP:     true,
		Sink:    true,
		BufLen:  512,
		NumBufs: 8,
		Usage:   zeroUsage,
	}, nil)
	if err != nil {
		t.Fatalf("transmit: %v", err)
	}
	if res.Proto != "udp" || res.Bytes != 8*512 {
		t.Fatalf("unexpected transmit result: %s %d", res.Proto, res.Bytes)
	}
	// start sentinel, eight buffers, end sentinel.
	if res.Calls != 10 {
		t.Fatalf("expected 10 calls, got %d", res.Calls)
	}
	out := waitReceiver(t, done)
	if out.err != nil {
		t.Fatalf("receive: %v", out.err)
	}
	if out.res.Bytes != 8*512 {
		t.Fatalf("expected 4096 bytes received, got %d", out.res.Bytes)
	}
	if out.res.Peer == "" {
		t.Fatalf("expected peer address to be recorded")
	}
}

// chunkReader hands out one chunk per Read, pausing before each.
type chunkReader struct {
	chunks []string
	delay  time.Duration
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	time.Sleep(r.delay)
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func TestUDPStreamCopyTimesWholeTransfer(t *testing.T) {
	ctx := context.Background()
	var sink bytes.Buffer
	port, done := startReceiver(t, ctx, Options{UDP: true, BufLen: 512, Stdout: &sink}, nil)

	chunk := strings.Repeat("u", 100)
	res, err := RunTransmit(ctx, Options{
		Host:   "127.0.0.1",
		Port:   port,
		UDP:    true,
		BufLen: 512,
		Stdin:  &chunkReader{chunks: []string{chunk, chunk, chunk}, delay: 100 * time.Millisecond},
		Usage:  zeroUsage,
	}, nil)
	if err != nil {
		t.Fatalf("transmit: %v", err)
	}
	if res.Bytes != 300 {
		t.Fatalf("expected 300 bytes sent, got %d", res.Bytes)
	}
	out := waitReceiver(t, done)
	if out.err != nil {
		t.Fatalf("receive: %v", out.err)
	}
	if out.res.Bytes != 300 || sink.String() != strings.Repeat(chunk, 3) {
		t.Fatalf("unexpected receive: %d bytes, %d written", out.res.Bytes, sink.Len())
	}
	if got := out.res.Reading.RealSeconds(); got < 0.25 {
		t.Fatalf("expected receiver real time to cover the transfer, got %.6fs", got)
	}
}

func TestUDPStreamCopyMergesShortTail(t *testing.T) {
	ctx := context.Background()
	var sink bytes.Buffer
	recvObs := &countingObserver{}
	port, done := startReceiver(t, ctx, Options{UDP: true, BufLen: 100, Stdout: &sink}, recvObs)

	payload := strings.Repeat("a", 100) + "xyz"
	sendObs := &countingObserver{}
	res, err := RunTransmit(ctx, Options{
		Host:   "127.0.0.1",
		Port:   port,
		UDP:    true,
		BufLen: 100,
		Stdin:  &chunkReader{chunks: []string{payload[:100], payload[100:]}},
		Usage:  zeroUsage,
	}, sendObs)
	if err != nil {
		t.Fatalf("transmit: %v", err)
	}
	if res.Bytes != 103 || sendObs.reports != 2 {
		t.Fatalf("expected 103 bytes in two datagrams, got %d in %d", res.Bytes, sendObs.reports)
	}
	out := waitReceiver(t, done)
	if out.err != nil {
		t.Fatalf("receive: %v", out.err)
	}
	if sink.String() != payload || recvObs.reports != 2 {
		t.Fatalf("unexpected receive: %q in %d datagrams", sink.String(), recvObs.reports)
	}
}

func TestUDPStreamCopyRejectsTinyInput(t *testing.T) {
	ctx := context.Background()
	port, done := startReceiver(t, ctx, Options{UDP: true, Sink: true}, nil)

	_, err := RunTransmit(ctx, Options{
		Host:  "127.0.0.1",
		Port:  port,
		UDP:   true,
		Stdin: strings.NewReader("hi"),
		Usage: zeroUsage,
	}, nil)
	if err == nil || !strings.Contains(err.Error(), "too short") {
		t.Fatalf("expected short input error, got %v", err)
	}
	out := waitReceiver(t, done)
	if out.err != nil || out.res.Bytes != 0 {
		t.Fatalf("expected empty receive, got %d bytes, err %v", out.res.Bytes, out.err)
	}
}

func TestReceiveInterruptedWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, done := startReceiver(t, ctx, Options{Sink: true}, nil)
	cancel()
	out := waitReceiver(t, done)
	if !errors.Is(out.err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", out.err)
	}
}

func TestReceiveInterruptedMidTransfer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	port, done := startReceiver(t, ctx, Options{Sink: true}, nil)

	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	cancel()
	out := waitReceiver(t, done)
	if out.err != nil {
		t.Fatalf("expected interrupted receive to succeed, got %v", out.err)
	}
	if !out.res.Interrupted || out.res.Bytes != 5 {
		t.Fatalf("unexpected interrupted result: %+v", out.res)
	}
}

func TestTransmitDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	_, err = RunTransmit(context.Background(), Options{Host: "127.0.0.1", Port: port, Sink: true}, nil)
	if err == nil || !strings.Contains(err.Error(), "failed to connect") {
		t.Fatalf("expected connect error, got %v", err)
	}
}

func TestProgressObserverTicksPerBuffer(t *testing.T) {
	ctx := context.Background()
	port, done := startReceiver(t, ctx, Options{Sink: true, BufLen: 128}, nil)

	var status bytes.Buffer
	bar := ticks.NewBar(&status, ticks.BarOptions{LineLength: 10})
	obs := NewProgressObserver(bar, 10)
	if _, err := RunTransmit(ctx, Options{
		Host:    "127.0.0.1",
		Port:    port,
		Sink:    true,
		BufLen:  128,
		NumBufs: 10,
		Usage:   zeroUsage,
	}, obs); err != nil {
		t.Fatalf("transmit: %v", err)
	}
	waitReceiver(t, done)
	if bar.Position() != 10 || bar.Redraws() != 10 {
		t.Fatalf("expected 10 redraws ending at 10, got %d at %d", bar.Redraws(), bar.Position())
	}
	if !strings.HasSuffix(status.String(), "|##########| \r\n") {
		t.Fatalf("unexpected bar output %q", status.String())
	}
}

func TestFillPattern(t *testing.T) {
	p := make([]byte, 200)
	fillPattern(p)
	if p[0] != ' ' || p[94] != '~' || p[95] != ' ' {
		t.Fatalf("unexpected pattern bytes %q %q %q", p[0], p[94], p[95])
	}
	for i, b := range p {
		if !isPrint(b) {
			t.Fatalf("byte %d not printable: %#x", i, b)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := (Options{}).Validate(Transmit); err == nil {
		t.Fatalf("expected missing host error")
	}
	if err := (Options{Host: "x", Port: 70000}).Validate(Transmit); err == nil {
		t.Fatalf("expected port range error")
	}
	if err := (Options{SockBuf: -1}).Validate(Receive); err == nil {
		t.Fatalf("expected sockbuf error")
	}
	if err := (Options{}).Validate(Receive); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	opts := Options{UDP: true, Sink: true, BufLen: 2}.withDefaults()
	if opts.BufLen != 5 {
		t.Fatalf("expected udp buffer length raised to 5, got %d", opts.BufLen)
	}
	opts = Options{UDP: true, BufLen: 2}.withDefaults()
	if opts.BufLen != minCopyBufLen {
		t.Fatalf("expected udp copy buffer length raised to %d, got %d", minCopyBufLen, opts.BufLen)
	}
}

func TestResultRates(t *testing.T) {
	res := Result{Bytes: 2048}
	if got := res.BytesPerSecond(); got != 2048/0.001 {
		t.Fatalf("expected floor of 1ms real time, got %f", got)
	}
	if Transmit.Tag() != "ttcp-t" || Receive.Tag() != "ttcp-r" {
		t.Fatalf("unexpected tags")
	}
}
