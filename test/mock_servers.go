package test

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"sync/atomic"
	"time"
)

// MockServer is a raw TCP server for end-to-end proxy tests: it echoes every
// line it receives back prefixed with its own name, so a test can tell which
// backend actually served a given connection.
type MockServer struct {
	Port             int
	Name             string
	listener         net.Listener
	ConnectionCount  int64
	RequestCount     int64
	closeImmediately int32
}

// NewMockServer creates a new mock server bound to a fixed port.
func NewMockServer(port int, name string) *MockServer {
	return &MockServer{Port: port, Name: name}
}

// Start binds the listener and begins accepting connections. It blocks until
// Stop is called.
func (ms *MockServer) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", ms.Port))
	if err != nil {
		return err
	}
	ms.listener = ln

	log.Printf("mock server %s listening on port %d", ms.Name, ms.Port)
	for {
		conn, err := ln.Accept()
		if err != nil {
			return nil
		}
		atomic.AddInt64(&ms.ConnectionCount, 1)
		go ms.handle(conn)
	}
}

func (ms *MockServer) handle(conn net.Conn) {
	defer conn.Close()

	if atomic.LoadInt32(&ms.closeImmediately) != 0 {
		return
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		atomic.AddInt64(&ms.RequestCount, 1)
		fmt.Fprintf(conn, "%s:%s\n", ms.Name, scanner.Text())
	}
}

// Stop closes the listener, unblocking Start.
func (ms *MockServer) Stop() error {
	if ms.listener != nil {
		return ms.listener.Close()
	}
	return nil
}

// SetRefusing makes future connections close immediately without echoing,
// simulating a backend that accepts TCP but never answers.
func (ms *MockServer) SetRefusing(refusing bool) {
	if refusing {
		atomic.StoreInt32(&ms.closeImmediately, 1)
	} else {
		atomic.StoreInt32(&ms.closeImmediately, 0)
	}
}

// GetRequestCount returns the number of lines this server has echoed.
func (ms *MockServer) GetRequestCount() int64 {
	return atomic.LoadInt64(&ms.RequestCount)
}

// ResetRequestCount zeroes the request counter.
func (ms *MockServer) ResetRequestCount() {
	atomic.StoreInt64(&ms.RequestCount, 0)
}

// MockServerPool manages a group of mock TCP backends for a test.
type MockServerPool struct {
	servers []*MockServer
}

// NewMockServerPool creates one MockServer per port.
func NewMockServerPool(ports []int) *MockServerPool {
	pool := &MockServerPool{servers: make([]*MockServer, len(ports))}
	for i, port := range ports {
		pool.servers[i] = NewMockServer(port, fmt.Sprintf("server-%d", i+1))
	}
	return pool
}

// StartAll starts every server in its own goroutine and waits briefly for
// the listeners to come up.
func (pool *MockServerPool) StartAll() {
	for _, server := range pool.servers {
		go func(s *MockServer) {
			if err := s.Start(); err != nil {
				log.Printf("mock server %s failed: %v", s.Name, err)
			}
		}(server)
	}
	time.Sleep(100 * time.Millisecond)
}

// StopAll stops every server in the pool.
func (pool *MockServerPool) StopAll() {
	for _, server := range pool.servers {
		if err := server.Stop(); err != nil {
			log.Printf("error stopping server %s: %v", server.Name, err)
		}
	}
}

// GetServers returns all servers in the pool.
func (pool *MockServerPool) GetServers() []*MockServer {
	return pool.servers
}

// GetTotalRequests returns the total request count across all servers.
func (pool *MockServerPool) GetTotalRequests() int64 {
	var total int64
	for _, server := range pool.servers {
		total += server.GetRequestCount()
	}
	return total
}

// GetRequestDistribution maps server name to request count.
func (pool *MockServerPool) GetRequestDistribution() map[string]int64 {
	distribution := make(map[string]int64)
	for _, server := range pool.servers {
		distribution[server.Name] = server.GetRequestCount()
	}
	return distribution
}

// ResetAllCounters resets every server's request counter.
func (pool *MockServerPool) ResetAllCounters() {
	for _, server := range pool.servers {
		server.ResetRequestCount()
	}
}

// WaitForHealthy polls each server with a real TCP dial until all accept
// connections or timeout elapses.
func (pool *MockServerPool) WaitForHealthy(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		allUp := true
		for _, server := range pool.servers {
			conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", server.Port), 50*time.Millisecond)
			if err != nil {
				allUp = false
				break
			}
			conn.Close()
		}
		if allUp {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}

	return fmt.Errorf("servers did not become reachable within timeout")
}
