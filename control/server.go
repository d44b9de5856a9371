package control

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/rs/zerolog/log"
)

// ErrRateLimited is reported to clients that send commands too quickly.
var ErrRateLimited = errors.New("rate limited")

// replyTimeout bounds how long a client waits for the control goroutine to
// apply its command before it is told the command was queued.
const replyTimeout = 500 * time.Millisecond

// Server accepts line-oriented commands on a unix socket and feeds them into
// a Channel. Each line is a command name or code; each reply is "ok",
// "queued" or "error: <reason>".
type Server struct {
	path     string
	commands *Channel
	limiter  *catrate.Limiter

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
	ready chan struct{}
}

// NewServer creates a server on path. ratePerSecond <= 0 disables rate
// limiting.
func NewServer(path string, commands *Channel, ratePerSecond int) *Server {
	s := &Server{
		path:     path,
		commands: commands,
		conns:    make(map[net.Conn]struct{}),
		ready:    make(chan struct{}),
	}
	if ratePerSecond > 0 {
		s.limiter = catrate.NewLimiter(map[time.Duration]int{time.Second: ratePerSecond})
	}
	return s
}

// Ready is closed once the socket is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// ListenAndServe serves until ctx is cancelled. Errors on a single
// connection only close that connection.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}
	defer os.Remove(s.path)

	log.Info().Str("socket", s.path).Msg("control server listening")
	close(s.ready)

	stop := context.AfterFunc(ctx, func() {
		ln.Close()
		s.mu.Lock()
		for c := range s.conns {
			c.Close()
		}
		s.mu.Unlock()
	})
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				s.mu.Lock()
				delete(s.conns, conn)
				s.mu.Unlock()
				conn.Close()
			}()
			s.serveConn(ctx, conn)
		}()
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	w := bufio.NewWriter(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		reply := s.handleLine(ctx, conn, line)
		if _, err := w.WriteString(reply + "\n"); err != nil {
			log.Debug().Err(err).Msg("control client write failed")
			return
		}
		if err := w.Flush(); err != nil {
			log.Debug().Err(err).Msg("control client write failed")
			return
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		log.Debug().Err(err).Msg("control client read failed")
	}
}

func (s *Server) handleLine(ctx context.Context, conn net.Conn, line string) string {
	if s.limiter != nil {
		if _, ok := s.limiter.Allow(conn); !ok {
			return "error: " + ErrRateLimited.Error()
		}
	}

	typ, err := ParseCommand(line)
	if err != nil {
		return "error: " + err.Error()
	}

	cmd := Command{Type: typ, Reply: make(chan error, 1)}
	if err := s.commands.Enqueue(ctx, cmd); err != nil {
		return "error: " + err.Error()
	}
	log.Debug().Stringer("command", typ).Msg("control command received")

	t := time.NewTimer(replyTimeout)
	defer t.Stop()
	select {
	case err := <-cmd.Reply:
		if err != nil {
			return "error: " + err.Error()
		}
		return "ok"
	case <-t.C:
		return "queued"
	case <-ctx.Done():
		return "queued"
	}
}

// Send delivers one command to the server at path and returns its reply.
func Send(ctx context.Context, path string, typ CommandType) (string, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return "", fmt.Errorf("connect to %s: %w", path, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return "", err
		}
	}

	if _, err := fmt.Fprintln(conn, typ.String()); err != nil {
		return "", fmt.Errorf("send command: %w", err)
	}
	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read reply: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if rest, ok := strings.CutPrefix(reply, "error: "); ok {
		return reply, errors.New(rest)
	}
	return reply, nil
}
