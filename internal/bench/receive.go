package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
)

// RunReceive waits for a single peer on opts.Port and consumes its data,
// reporting each successful read to obs.
func RunReceive(ctx context.Context, opts Options, obs Observer) (Result, error) {
	if err := opts.Validate(Receive); err != nil {
		return Result{}, err
	}
	opts = opts.withDefaults()
	if obs == nil {
		obs = nopObserver{}
	}
	s := newSession(Receive, opts, obs)

	var ioErr error
	if opts.UDP {
		pc, err := s.listenUDP(ctx)
		if err != nil {
			return Result{}, err
		}
		stop := context.AfterFunc(ctx, func() {
			_ = pc.Close()
		})
		defer stop()
		s.startTimer()
		ioErr = s.receiveUDP(pc)
		obs.Finish()
		_ = pc.Close()
	} else {
		conn, err := s.accept(ctx)
		if err != nil {
			return Result{}, err
		}
		stop := context.AfterFunc(ctx, func() {
			_ = conn.Close()
		})
		defer stop()
		s.startTimer()
		ioErr = s.receiveTCP(conn)
		obs.Finish()
		_ = conn.Close()
	}

	res := s.result()
	if ctx.Err() != nil {
		res.Interrupted = true
		return res, nil
	}
	if ioErr != nil {
		return res, fmt.Errorf("failed to receive: %w", ioErr)
	}
	return res, nil
}

func (s *session) receiveTCP(conn net.Conn) error {
	for {
		n, err := s.read(conn, s.buf)
		if n > 0 {
			if !s.opts.Sink {
				if w, werr := s.opts.Stdout.Write(s.buf[:n]); werr != nil || w != n {
					return werr
				}
			}
			s.observe(n)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

// receiveUDP treats datagrams of sentinelLen bytes or less as markers: the
// first restarts the timer and the second ends the transfer.
func (s *session) receiveUDP(pc net.PacketConn) error {
	going := false
	for {
		n, from, err := pc.ReadFrom(s.buf)
		s.calls++
		if err != nil {
			return err
		}
		if s.peer == "" && from != nil {
			s.peer = from.String()
			s.verbosef("datagrams from %s", s.peer)
		}
		if n <= sentinelLen {
			if going {
				return nil
			}
			going = true
			s.startTimer()
			continue
		}
		if !s.opts.Sink {
			if w, werr := s.opts.Stdout.Write(s.buf[:n]); werr != nil || w != n {
				return werr
			}
		}
		s.observe(n)
	}
}

func (s *session) accept(ctx context.Context) (net.Conn, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.opts.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", s.opts.Address(), err)
	}
	s.verbosef("socket")
	if s.opts.Ready != nil {
		s.opts.Ready(ln.Addr())
	}
	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()

	conn, err := ln.Accept()
	_ = ln.Close()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("interrupted while waiting for a peer: %w", ctx.Err())
		}
		return nil, fmt.Errorf("failed to accept: %w", err)
	}
	s.peer = conn.RemoteAddr().String()
	host, _, splitErr := net.SplitHostPort(s.peer)
	if splitErr != nil {
		host = s.peer
	}
	s.logf("accept from %s", host)

	if c, ok := conn.(*net.TCPConn); ok {
		if err := c.SetLinger(lingerSeconds); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set linger: %w", err)
		}
		if s.opts.SockBuf > 0 {
			if err := c.SetReadBuffer(s.opts.SockBuf); err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("failed to set rcvbuf: %w", err)
			}
			s.verbosef("rcvbuf")
		}
	}
	return conn, nil
}

func (s *session) listenUDP(ctx context.Context) (net.PacketConn, error) {
	var lc net.ListenConfig
	pc, err := lc.ListenPacket(ctx, "udp", s.opts.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", s.opts.Address(), err)
	}
	s.verbosef("socket")
	if c, ok := pc.(*net.UDPConn); ok && s.opts.SockBuf > 0 {
		if err := c.SetReadBuffer(s.opts.SockBuf); err != nil {
			_ = pc.Close()
			return nil, fmt.Errorf("failed to set rcvbuf: %w", err)
		}
		s.verbosef("rcvbuf")
	}
	if s.opts.Ready != nil {
		s.opts.Ready(pc.LocalAddr())
	}
	return pc, nil
}
