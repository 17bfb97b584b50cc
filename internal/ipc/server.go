package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"

	"github.com/austinkregel/local-media/audiod/internal/engine"
)

// DefaultMaxRequestBytes bounds one request line (base64 audio included)
const DefaultMaxRequestBytes = 64 << 20

// Server handles IPC communication with clients
type Server struct {
	socketPath      string
	router          *Router
	maxRequestBytes int
	listener        net.Listener
	mu              sync.Mutex
	clients         map[net.Conn]struct{}
}

// NewServer creates a new IPC server
func NewServer(socketPath string, router *Router, maxRequestBytes int) *Server {
	if maxRequestBytes <= 0 {
		maxRequestBytes = DefaultMaxRequestBytes
	}
	return &Server{
		socketPath:      socketPath,
		router:          router,
		maxRequestBytes: maxRequestBytes,
		clients:         make(map[net.Conn]struct{}),
	}
}

// Start starts the IPC server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	// Remove existing socket file if it exists
	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("failed to remove existing socket: %w", err)
	}

	log.Printf("[IPC] Creating socket at %s", s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	// Set socket permissions (user-only)
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("[IPC] Server listening, waiting for connections...")

	go s.acceptLoop(ctx, listener)

	<-ctx.Done()

	log.Printf("[IPC] Shutting down server...")

	s.mu.Lock()
	clientCount := len(s.clients)
	for conn := range s.clients {
		conn.Close()
	}
	s.mu.Unlock()

	log.Printf("[IPC] Closed %d client connections", clientCount)

	listener.Close()
	os.RemoveAll(s.socketPath)

	log.Printf("[IPC] Server stopped")

	return nil
}

// Addr returns the listening address once Start has created the socket
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop(ctx context.Context, listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("[IPC] Accept error: %v", err)
			continue
		}

		go s.ServeConn(ctx, conn)
	}
}

// ServeConn reads requests from conn until it is closed. Requests on one
// connection run concurrently; responses are written whole, in completion
// order, and carry the request ID for correlation.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) {
	remoteAddr := "local"
	if addr := conn.RemoteAddr(); addr != nil && addr.String() != "" {
		remoteAddr = addr.String()
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	clientCount := len(s.clients)
	s.mu.Unlock()
	log.Printf("[IPC] New client connection from %s (active: %d)", remoteAddr, clientCount)

	var (
		writeMu  sync.Mutex
		inFlight sync.WaitGroup
	)

	defer func() {
		// Let running requests answer before the connection goes away
		inFlight.Wait()
		conn.Close()
		s.mu.Lock()
		delete(s.clients, conn)
		clientCount := len(s.clients)
		s.mu.Unlock()
		log.Printf("[IPC] Client disconnected: %s (active: %d)", remoteAddr, clientCount)
	}()

	send := func(resp *Response) error {
		data, err := EncodeResponse(resp)
		if err != nil {
			return err
		}
		data = append(data, '\n')

		writeMu.Lock()
		defer writeMu.Unlock()
		_, err = conn.Write(data)
		return err
	}

	initial := 64 * 1024
	if initial > s.maxRequestBytes {
		initial = s.maxRequestBytes
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, initial), s.maxRequestBytes)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		msg := make([]byte, len(line))
		copy(msg, line)

		inFlight.Add(1)
		go func() {
			defer inFlight.Done()
			if err := send(s.router.Handle(ctx, msg)); err != nil {
				log.Printf("[IPC] Send error to %s: %v", remoteAddr, err)
			}
		}()
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			log.Printf("[IPC] Request from %s exceeds %d bytes, closing connection", remoteAddr, s.maxRequestBytes)
			send(NewErrorResponse("", engine.InvalidInput(fmt.Sprintf("request exceeds %d bytes", s.maxRequestBytes), err)))
			return
		}
		if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
			log.Printf("[IPC] Read error from %s: %v", remoteAddr, err)
		}
	}
}
