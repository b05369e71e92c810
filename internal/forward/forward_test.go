package forward

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// pipePair returns two connected *net.TCPConn over loopback.
func pipePair(t *testing.T) (a, b net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	connCh := make(chan net.Conn, 1)
	go func() {
		c, _ := ln.Accept()
		connCh <- c
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	server := <-connCh
	return client, server
}

func TestForwardPropagatesHalfClose(t *testing.T) {
	client, proxySideClient := pipePair(t)
	backendConn, proxySideBackend := pipePair(t)
	defer client.Close()
	defer backendConn.Close()

	type outcome struct {
		stats Stats
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		stats, err := Forward(context.Background(), proxySideClient, proxySideBackend, zerolog.Nop())
		done <- outcome{stats, err}
	}()

	if _, err := client.Write([]byte("REQUEST\n")); err != nil {
		t.Fatal(err)
	}
	client.(*net.TCPConn).CloseWrite()

	buf := make([]byte, 8)
	n, err := backendConn.Read(buf)
	if err != nil || string(buf[:n]) != "REQUEST\n" {
		t.Fatalf("backend did not see request: n=%d err=%v", n, err)
	}

	// Backend observes EOF because the client half-closed and the proxy
	// propagated it.
	n, err = backendConn.Read(buf)
	if n != 0 || err != io.EOF {
		t.Fatalf("expected EOF on backend side, got n=%d err=%v", n, err)
	}

	// Backend now sends several chunks, then closes. The client must see
	// all of it. Forward leaves closing the client connection to its
	// caller, so the read loop below ends at the read deadline.
	parts := []string{"part1", "part2", "part3", "COMPLETE"}
	for _, p := range parts {
		if _, err := backendConn.Write([]byte(p)); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	backendConn.Close()

	var received []byte
	readBuf := make([]byte, 256)
	client.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		n, err := client.Read(readBuf)
		received = append(received, readBuf[:n]...)
		if err != nil {
			break
		}
	}

	want := "part1part2part3COMPLETE"
	if string(received) != want {
		t.Fatalf("client received %q, want %q", received, want)
	}

	select {
	case o := <-done:
		if o.err != nil {
			t.Fatalf("Forward returned error: %v", o.err)
		}
		if o.stats.ClientToBackendBytes != int64(len("REQUEST\n")) {
			t.Fatalf("client->backend bytes = %d, want %d", o.stats.ClientToBackendBytes, len("REQUEST\n"))
		}
		if o.stats.BackendToClientBytes != int64(len(want)) {
			t.Fatalf("backend->client bytes = %d, want %d", o.stats.BackendToClientBytes, len(want))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Forward did not return")
	}
}

func TestForwardCancellationUnblocksBothDirections(t *testing.T) {
	client, proxySideClient := pipePair(t)
	backendConn, proxySideBackend := pipePair(t)
	defer client.Close()
	defer backendConn.Close()
	defer proxySideClient.Close()
	defer proxySideBackend.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := Forward(ctx, proxySideClient, proxySideBackend, zerolog.Nop())
		done <- err
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Forward did not unblock after cancellation")
	}
}

func TestForwardErrorOnOneSideDoesNotLeakOtherDirection(t *testing.T) {
	client, proxySideClient := pipePair(t)
	backendConn, proxySideBackend := pipePair(t)
	defer client.Close()

	done := make(chan error, 1)
	go func() {
		_, err := Forward(context.Background(), proxySideClient, proxySideBackend, zerolog.Nop())
		done <- err
	}()

	// Abruptly close the backend side the proxy holds, simulating a
	// backend-side socket fault.
	proxySideBackend.Close()
	backendConn.Close()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected an error when one direction faults")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Forward did not return after a socket fault")
	}
}
