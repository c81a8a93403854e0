package feed

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/tve/cwop-relay/internal/domain"
)

// maxLineBytes bounds a single feed line; APRS packets are far shorter.
const maxLineBytes = 64 * 1024

// Reader reads newline-delimited packets from an APRS TCP feed.
// It implements pipeline.Extractor.
type Reader struct {
	conn    net.Conn
	scanner *bufio.Scanner
	logger  *slog.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

// Dial connects to the feed at addr (host:port).
func Dial(ctx context.Context, addr string, timeout time.Duration, logger *slog.Logger) (*Reader, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial feed %s: %w", addr, err)
	}
	logger.Info("feed connected", "addr", addr)
	return NewReader(conn, logger), nil
}

// NewReader wraps an established connection.
func NewReader(conn net.Conn, logger *slog.Logger) *Reader {
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 4096), maxLineBytes)
	return &Reader{
		conn:    conn,
		scanner: sc,
		logger:  logger,
		closed:  make(chan struct{}),
	}
}

// Extract blocks until the next line arrives and returns it cleaned of line
// terminators. It returns io.EOF once the feed closes the connection.
// Cancelling ctx closes the connection to unblock the read.
func (r *Reader) Extract(ctx context.Context) (string, error) {
	stop := context.AfterFunc(ctx, func() { _ = r.Close() })
	defer stop()

	if r.scanner.Scan() {
		return domain.CleanLine(r.scanner.Text()), nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	err := r.scanner.Err()
	if err == nil || r.isClosed() || errors.Is(err, net.ErrClosed) {
		return "", io.EOF
	}
	return "", fmt.Errorf("read feed: %w", err)
}

// Close closes the underlying connection. Safe to call more than once.
func (r *Reader) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.closed)
		err = r.conn.Close()
	})
	return err
}

func (r *Reader) isClosed() bool {
	select {
	case <-r.closed:
		return true
	default:
		return false
	}
}
