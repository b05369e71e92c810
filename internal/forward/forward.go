// Package forward implements bidirectional byte forwarding between two TCP
// connections, with correct half-close propagation. This is the core of the
// proxy: it is what makes a round-robin TCP forwarder behave like a
// transparent wire instead of truncating whichever side finishes last.
package forward

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/rs/zerolog"
)

// unblockDeadline is far enough in the past that SetDeadline with it
// immediately interrupts any in-flight Read/Write.
var unblockDeadline = time.Unix(0, 1)

// bufSize is the per-direction copy buffer size.
const bufSize = 8 * 1024

// direction names a single copy task for logging.
type direction string

const (
	clientToBackend direction = "client->backend"
	backendToClient direction = "backend->client"
)

// result is what one copy task reports back to the parent.
type result struct {
	dir   direction
	bytes int64
	err   error
}

// Stats reports how many bytes moved in each direction during one session,
// regardless of the outcome.
type Stats struct {
	ClientToBackendBytes int64
	BackendToClientBytes int64
}

// Forward copies bytes in both directions between client and backend until
// one side reaches EOF or errors, then propagates the half-close and waits
// for the other direction to finish on its own. The caller remains
// responsible for closing both connections once Forward returns.
func Forward(ctx context.Context, client, backendConn net.Conn, logger zerolog.Logger) (Stats, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make(chan result, 2)

	// Plain net.Conn reads/writes don't observe ctx.Done() on their own;
	// forcing a deadline into the past is what actually interrupts a
	// blocked Read or Write so cancellation unblocks both directions.
	go func() {
		<-ctx.Done()
		_ = client.SetDeadline(unblockDeadline)
		_ = backendConn.SetDeadline(unblockDeadline)
	}()

	go func() {
		out <- copyDirection(ctx, backendConn, client, clientToBackend)
	}()
	go func() {
		out <- copyDirection(ctx, client, backendConn, backendToClient)
	}()

	var stats Stats
	first := <-out
	recordBytes(&stats, first)

	if isRealError(first.err) {
		// A socket fault on one direction must not leak bytes on the
		// other: cancel the shared scope so the surviving copy unblocks
		// on its next read/write instead of continuing to forward.
		cancel()
		second := <-out
		recordBytes(&stats, second)
		return stats, first.err
	}

	// first.dir finished with a clean EOF: propagate the FIN by
	// half-closing the opposite connection's write side, and let the
	// reverse direction keep flushing for as long as it needs to.
	halfClose(peerOf(first.dir, client, backendConn), logger)

	second := <-out
	recordBytes(&stats, second)
	if isRealError(second.err) {
		return stats, second.err
	}
	return stats, nil
}

func recordBytes(stats *Stats, r result) {
	if r.dir == clientToBackend {
		stats.ClientToBackendBytes += r.bytes
	} else {
		stats.BackendToClientBytes += r.bytes
	}
}

// copyDirection copies from src to dst until EOF, a socket error, or
// cancellation, reporting exactly one of those outcomes plus the number of
// bytes successfully copied.
func copyDirection(ctx context.Context, dst, src net.Conn, dir direction) result {
	buf := make([]byte, bufSize)
	var total int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				if ctx.Err() != nil {
					return result{dir: dir, bytes: total, err: ctx.Err()}
				}
				return result{dir: dir, bytes: total, err: werr}
			}
			total += int64(n)
		}
		if rerr != nil {
			if rerr == io.EOF {
				return result{dir: dir, bytes: total, err: nil}
			}
			if ctx.Err() != nil {
				return result{dir: dir, bytes: total, err: ctx.Err()}
			}
			return result{dir: dir, bytes: total, err: rerr}
		}
	}
}

// isRealError reports whether err represents a genuine socket fault, as
// opposed to a clean EOF (nil) or cooperative cancellation, neither of which
// the caller should treat as a forwarding failure.
func isRealError(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func peerOf(dir direction, client, backendConn net.Conn) net.Conn {
	if dir == clientToBackend {
		// client->backend finished: client has no more to send, tell
		// the backend by shutting down our write side to it.
		return backendConn
	}
	return client
}

// halfClose shuts down the write half of conn, if it is a *net.TCPConn, so
// the peer observes an orderly FIN while the reverse direction keeps
// reading. A failure here (typically because the peer already closed) is
// swallowed.
func halfClose(conn net.Conn, logger zerolog.Logger) {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	if err := tc.CloseWrite(); err != nil {
		logger.Debug().Err(err).Msg("half-close: CloseWrite failed, peer likely already closed")
	}
}
