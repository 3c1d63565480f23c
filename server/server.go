/*
Package server is the concurrent connection driver for the ledger.

PURPOSE:
  Accepts TCP connections; each connection is one complete CSV record
  stream terminated by peer half-close. Every record is applied to the
  same shared engine, then the full account snapshot is written back on
  that connection and it is closed. The server keeps accepting until
  its context is cancelled.

CONCURRENCY:
  One worker per connection, drawn from a bounded pool so a connection
  flood cannot exhaust goroutines. Connections are independent of each
  other except for the shared engine; the engine's single apply lock is
  the only synchronization point. Parsing, socket reads, and snapshot
  rendering all happen outside that lock.

CANCELLATION:
  A dropped connection mid-stream just stops feeding events. Effects
  already applied stay committed - there is no rollback and no
  transaction boundary spanning records.

SEE ALSO:
  - ingest/reader.go: the shared CSV dialect
  - engine/engine.go: the shared state machine
*/
package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/payments-engine/engine"
	"github.com/warp/payments-engine/ingest"
)

// DefaultMaxConnections bounds concurrently served connections.
const DefaultMaxConnections = 256

// Server owns the listener and the connection worker pool.
type Server struct {
	addr   string
	engine *engine.Engine
	log    *zap.Logger
	pool   pond.Pool
	ln     net.Listener
}

// New creates a server for addr. maxConns <= 0 falls back to
// DefaultMaxConnections.
func New(addr string, maxConns int, eng *engine.Engine, log *zap.Logger) *Server {
	if maxConns <= 0 {
		maxConns = DefaultMaxConnections
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		addr:   addr,
		engine: eng,
		log:    log,
		pool:   pond.NewPool(maxConns),
	}
}

// Listen binds the configured address. Binding is the only fatal
// startup condition the service has.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.log.Info("ledger server listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address. Only valid after Listen.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve accepts connections until ctx is cancelled, then drains
// in-flight connections before returning.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				break
			}
			s.log.Error("accept failed", zap.Error(err))
			continue
		}
		s.pool.Submit(func() { s.handleConn(conn) })
	}

	s.pool.StopAndWait()
	s.log.Info("ledger server stopped")
	return ctx.Err()
}

// handleConn reads one record stream to EOF, then answers with the
// full snapshot.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	log := s.log.With(
		zap.String("conn", uuid.NewString()[:8]),
		zap.String("remote", conn.RemoteAddr().String()),
	)
	log.Info("connection accepted")

	reader := ingest.NewReader(bufio.NewReader(conn))
	var processed, skipped int
	for {
		ev, err := reader.Read()
		if err == io.EOF {
			break
		}
		var parseErr *ingest.ParseError
		if errors.As(err, &parseErr) {
			skipped++
			log.Warn("skipping malformed row", zap.Error(parseErr))
			continue
		}
		if err != nil {
			// Dropped connection: whatever was applied stays applied.
			log.Warn("connection read failed", zap.Error(err))
			return
		}

		if err := s.engine.Apply(ev); err != nil {
			skipped++
			continue
		}
		processed++
	}
	log.Info("input exhausted",
		zap.Int("processed", processed),
		zap.Int("skipped", skipped),
	)

	// Render outside the apply lock, then ship in one write.
	var buf bytes.Buffer
	if err := ingest.WriteSnapshot(&buf, s.engine.Snapshot()); err != nil {
		log.Error("render snapshot failed", zap.Error(err))
		return
	}
	if _, err := conn.Write(buf.Bytes()); err != nil {
		log.Warn("write response failed", zap.Error(err))
		return
	}
	log.Info("response sent", zap.Int("bytes", buf.Len()))
}
