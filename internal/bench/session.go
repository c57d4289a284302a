package bench

import (
	"errors"
	"fmt"
	"io"
	"syscall"
	"time"

	"github.com/verte-zerg/ttcp/internal/timer"
)

// session holds the per-transfer counters shared by both roles.
type session struct {
	role     Role
	opts     Options
	obs      Observer
	buf      []byte
	bytes    uint64
	calls    uint64
	checksum uint64
	peer     string
	timer    *timer.Timer
	started  time.Time
}

func newSession(role Role, opts Options, obs Observer) *session {
	return &session{
		role: role,
		opts: opts,
		obs:  obs,
		buf:  make([]byte, opts.BufLen),
	}
}

// observe counts n transferred bytes.
func (s *session) observe(n int) {
	s.bytes += uint64(n)
	s.obs.Report(n)
}

func (s *session) logf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.opts.Log, s.role.Tag()+": "+format+"\n", args...)
}

func (s *session) verbosef(format string, args ...any) {
	if s.opts.Verbose {
		s.logf(format, args...)
	}
}

func (s *session) startTimer() {
	s.started = s.opts.Clock.Now().Time()
	if s.timer == nil {
		s.timer = timer.Start(s.opts.Clock, s.opts.Usage)
		return
	}
	s.timer.Restart()
}

func (s *session) result() Result {
	reading := s.timer.Read()
	return Result{
		Role:      s.role,
		Proto:     s.opts.Proto(),
		Peer:      s.peer,
		BufLen:    s.opts.BufLen,
		NumBufs:   s.opts.NumBufs,
		Bytes:     s.bytes,
		Calls:     s.calls,
		Reading:   reading,
		StartedAt: s.started,
		EndedAt:   s.started.Add(reading.Real.Duration()),
	}
}

// write sends p once, retrying UDP sends the kernel rejected for lack of
// buffer space.
func (s *session) write(w io.Writer, p []byte) (int, error) {
	for {
		n, err := w.Write(p)
		s.calls++
		if err != nil && s.opts.UDP && errors.Is(err, syscall.ENOBUFS) {
			time.Sleep(noBufsDelay)
			continue
		}
		return n, err
	}
}

// read performs one logical read. With FullBlocks set on TCP it keeps
// reading until p is full or the stream ends.
func (s *session) read(r io.Reader, p []byte) (int, error) {
	var n int
	var err error
	if s.opts.FullBlocks && !s.opts.UDP {
		n, err = s.readFull(r, p)
	} else {
		n, err = r.Read(p)
		s.calls++
	}
	if s.opts.Touch && !s.opts.UDP && n > 0 {
		s.touch(p[:n])
	}
	return n, err
}

func (s *session) readFull(r io.Reader, p []byte) (int, error) {
	count := 0
	for count < len(p) {
		n, err := r.Read(p[count:])
		s.calls++
		count += n
		if err != nil {
			if errors.Is(err, io.EOF) && count > 0 {
				return count, nil
			}
			return count, err
		}
		if n == 0 {
			break
		}
	}
	return count, nil
}

func (s *session) touch(p []byte) {
	for _, b := range p {
		s.checksum += uint64(b)
	}
}

// fillPattern writes cycling printable ASCII into p.
func fillPattern(p []byte) {
	var c byte
	for i := range p {
		for !isPrint(c & 0x7f) {
			c++
		}
		p[i] = c & 0x7f
		c++
	}
}

func isPrint(c byte) bool {
	return c >= 0x20 && c < 0x7f
}
