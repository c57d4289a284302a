package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
)

// RunTransmit connects to opts.Host and sends data, reporting each successful
// write to obs. Cancelling ctx closes the connection and returns the partial
// result with Interrupted set.
func RunTransmit(ctx context.Context, opts Options, obs Observer) (Result, error) {
	if err := opts.Validate(Transmit); err != nil {
		return Result{}, err
	}
	opts = opts.withDefaults()
	if obs == nil {
		obs = nopObserver{}
	}
	s := newSession(Transmit, opts, obs)

	conn, err := s.dial(ctx)
	if err != nil {
		return Result{}, err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	s.startTimer()
	ioErr := s.transmit(conn)
	obs.Finish()
	if !opts.UDP {
		// Closing with linger set waits for the data to be delivered.
		_ = conn.Close()
	}
	res := s.result()
	if opts.UDP {
		sentinel := make([]byte, sentinelLen)
		fillPattern(sentinel)
		for i := 0; i < 4; i++ {
			_, _ = s.write(conn, sentinel)
		}
		_ = conn.Close()
	}
	if ctx.Err() != nil {
		res.Interrupted = true
		return res, nil
	}
	if ioErr != nil {
		return res, fmt.Errorf("failed to transmit: %w", ioErr)
	}
	return res, nil
}

// transmit sends the data, framed by start and end markers on UDP.
func (s *session) transmit(conn net.Conn) error {
	sentinel := make([]byte, sentinelLen)
	fillPattern(sentinel)
	if s.opts.UDP {
		if _, err := s.write(conn, sentinel); err != nil {
			return err
		}
	}
	var err error
	switch {
	case s.opts.Sink:
		err = s.sendPattern(conn)
	case s.opts.UDP:
		err = s.copyToDatagrams(conn)
	default:
		err = s.copyToNet(conn)
	}
	if err != nil {
		return err
	}
	if s.opts.UDP {
		if _, err := s.write(conn, sentinel); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) sendPattern(conn net.Conn) error {
	fillPattern(s.buf)
	for i := 0; i < s.opts.NumBufs; i++ {
		n, err := s.write(conn, s.buf)
		if err != nil {
			return err
		}
		if n != len(s.buf) {
			break
		}
		s.observe(n)
	}
	return nil
}

func (s *session) copyToNet(conn net.Conn) error {
	for {
		n, rerr := s.opts.Stdin.Read(s.buf)
		if n > 0 {
			w, err := s.write(conn, s.buf[:n])
			if err != nil {
				return err
			}
			if w != n {
				return nil
			}
			s.observe(n)
		}
		if errors.Is(rerr, io.EOF) {
			return nil
		}
		if rerr != nil {
			return fmt.Errorf("failed to read input: %w", rerr)
		}
	}
}

// copyToDatagrams forwards input as datagrams longer than sentinelLen so the
// receiver never takes data for a marker. Each chunk is held back until the
// next read shows whether a short tail has to be merged into it.
func (s *session) copyToDatagrams(conn net.Conn) error {
	pending := make([]byte, 0, len(s.buf)+sentinelLen)
	for {
		n, rerr := io.ReadAtLeast(s.opts.Stdin, s.buf, sentinelLen+1)
		eof := errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF)
		if rerr != nil && !eof {
			return fmt.Errorf("failed to read input: %w", rerr)
		}
		if n > sentinelLen && len(pending) > 0 {
			if done, err := s.sendDatagram(conn, pending); err != nil || done {
				return err
			}
			pending = pending[:0]
		}
		pending = append(pending, s.buf[:n]...)
		if eof {
			return s.flushDatagrams(conn, pending)
		}
	}
}

// flushDatagrams sends the final held-back bytes, splitting them in two when
// a merged tail made them longer than one buffer.
func (s *session) flushDatagrams(conn net.Conn, p []byte) error {
	switch {
	case len(p) == 0:
		return nil
	case len(p) <= sentinelLen:
		return fmt.Errorf("udp input of %d bytes is too short to send", len(p))
	case len(p) <= len(s.buf):
		_, err := s.sendDatagram(conn, p)
		return err
	}
	half := len(p) / 2
	if done, err := s.sendDatagram(conn, p[:half]); err != nil || done {
		return err
	}
	_, err := s.sendDatagram(conn, p[half:])
	return err
}

// sendDatagram writes p and reports whether the transfer has to stop.
func (s *session) sendDatagram(conn net.Conn, p []byte) (bool, error) {
	w, err := s.write(conn, p)
	if err != nil {
		return true, err
	}
	if w != len(p) {
		return true, nil
	}
	s.observe(w)
	return false, nil
}

func (s *session) dial(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, s.opts.Proto(), s.opts.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", s.opts.Address(), err)
	}
	s.peer = conn.RemoteAddr().String()
	s.verbosef("socket")

	switch c := conn.(type) {
	case *net.TCPConn:
		if err := c.SetLinger(lingerSeconds); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set linger: %w", err)
		}
		if s.opts.SockBuf > 0 {
			if err := c.SetWriteBuffer(s.opts.SockBuf); err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("failed to set sndbuf: %w", err)
			}
			s.verbosef("sndbuf")
		}
		if err := c.SetNoDelay(s.opts.NoDelay); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set nodelay: %w", err)
		}
		if s.opts.NoDelay {
			s.verbosef("nodelay")
		}
	case *net.UDPConn:
		if s.opts.SockBuf > 0 {
			if err := c.SetWriteBuffer(s.opts.SockBuf); err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("failed to set sndbuf: %w", err)
			}
			s.verbosef("sndbuf")
		}
	}
	s.verbosef("connect")
	return conn, nil
}
