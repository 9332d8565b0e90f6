// Package server implements the TCP listener and per-connection read
// loop that drive the RESP framer and command dispatcher, plus the
// periodic snapshot timer and shutdown hook. Grounded on the teacher's
// Controller start/stop/runCollector lifecycle in controller.go, and
// on the original RedisServer::run/shutdown accept-and-read-loop this
// specification is drawn from.
package server

import (
	"bytes"
	"net"
	"sync"
	"time"

	"github.com/tarnaldo88/Redis-Server/internal/command"
	"github.com/tarnaldo88/Redis-Server/internal/log"
	"github.com/tarnaldo88/Redis-Server/internal/resp"
	"github.com/tarnaldo88/Redis-Server/internal/snapshot"
	"github.com/tarnaldo88/Redis-Server/internal/store"
)

// readChunkSize is the number of bytes read from a connection per recv,
// per spec.md §4.5.
const readChunkSize = 1024

// DefaultSnapshotInterval is how often the background snapshot task
// rewrites the dump file, per spec.md §6.
const DefaultSnapshotInterval = 300 * time.Second

// Server owns the listening socket, the store, and the background
// snapshot timer.
type Server struct {
	addr             string
	dumpPath         string
	snapshotInterval time.Duration

	store *store.Store

	mu       sync.Mutex
	listener net.Listener
	stopCh   chan struct{}

	connWg sync.WaitGroup
	svcWg  sync.WaitGroup
}

// New constructs a Server listening on addr (host:port, or just :port),
// persisting to dumpPath, with st as its value store.
func New(addr, dumpPath string, st *store.Store) *Server {
	return &Server{
		addr:             addr,
		dumpPath:         dumpPath,
		snapshotInterval: DefaultSnapshotInterval,
		store:            st,
		stopCh:           make(chan struct{}),
	}
}

// SetSnapshotInterval overrides the default periodic snapshot interval;
// intended for tests.
func (s *Server) SetSnapshotInterval(d time.Duration) {
	s.snapshotInterval = d
}

// ListenAndServe loads any existing snapshot, starts the periodic
// snapshot task, and accepts connections until Shutdown is called. It
// returns nil after a clean shutdown, or the error from net.Listen or
// from an Accept that fails before Shutdown.
func (s *Server) ListenAndServe() error {
	if snapshot.Load(s.store, s.dumpPath) {
		log.Infof("Loaded snapshot from %s", s.dumpPath)
	} else {
		log.Infof("Starting with an empty database (no usable snapshot at %s)", s.dumpPath)
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		log.Errorf("Error creating server socket: %s", err)
		return err
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.svcWg.Add(1)
	go s.runSnapshotTask()

	log.Infof("Redis-Server ready to serve on %s", s.addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				// Shutdown closed the listener; this is expected.
				s.connWg.Wait()
				s.svcWg.Wait()
				return nil
			default:
				log.Errorf("accept() failed: %s", err)
				return err
			}
		}

		s.connWg.Add(1)
		go s.handleConn(conn)
	}
}

// Shutdown stops accepting new connections, dumps a final snapshot,
// closes the listener, and lets in-flight connections drain. Safe to
// call once after ListenAndServe has been entered.
func (s *Server) Shutdown() {
	log.Infof("Shutting down...")
	close(s.stopCh)

	if snapshot.Dump(s.store, s.dumpPath) {
		log.Infof("Database dumped to %s", s.dumpPath)
	} else {
		log.Errorf("Error dumping database to %s", s.dumpPath)
	}

	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln != nil {
		ln.Close()
	}

	log.Infof("Server shutdown complete")
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.connWg.Done()
	defer conn.Close()

	var inbuf bytes.Buffer
	chunk := make([]byte, readChunkSize)

	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			inbuf.Write(chunk[:n])
		}
		if err != nil {
			return
		}

		for {
			tokens, consumed, ok := resp.ReadRequest(inbuf.Bytes())
			if !ok {
				break
			}

			remaining := inbuf.Bytes()[consumed:]
			rest := make([]byte, len(remaining))
			copy(rest, remaining)
			inbuf.Reset()
			inbuf.Write(rest)

			if len(tokens) == 0 {
				continue
			}

			reply := command.Dispatch(tokens, s.store)
			if _, err := conn.Write(reply); err != nil {
				log.Debugf("write to connection failed, closing: %s", err)
				return
			}
		}
	}
}

func (s *Server) runSnapshotTask() {
	defer s.svcWg.Done()

	ticker := time.NewTicker(s.snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if snapshot.Dump(s.store, s.dumpPath) {
				log.Debugf("Periodic snapshot written to %s", s.dumpPath)
			} else {
				log.Errorf("Periodic snapshot to %s failed", s.dumpPath)
			}
		}
	}
}
