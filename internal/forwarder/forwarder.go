// Package forwarder ships newline-delimited log records to a receiver over
// TCP, reconnecting on failure.
package forwarder

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"github.com/valyala/fastjson"
)

// ReconnectDelay is the wait between connection attempts.
const ReconnectDelay = 5 * time.Second

// Forwarder maintains one connection to the receiver and writes one JSON
// record per line. It is not safe for concurrent use; run one per input.
type Forwarder struct {
	addr     string
	hostname string
	delay    time.Duration
	poll     time.Duration
	parser   fastjson.Parser
	conn     net.Conn
}

// New creates a forwarder targeting the receiver's ingest address.
func New(addr string) *Forwarder {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return &Forwarder{
		addr:     addr,
		hostname: host,
		delay:    ReconnectDelay,
		poll:     500 * time.Millisecond,
	}
}

// Connect dials the receiver, retrying until it succeeds or ctx ends.
func (f *Forwarder) Connect(ctx context.Context) error {
	for {
		conn, err := net.Dial("tcp", f.addr)
		if err == nil {
			f.conn = conn
			log.Printf("[Forwarder] Connected to %s", f.addr)
			return nil
		}
		log.Printf("[Forwarder] Connection to %s failed: %v, retrying in %v", f.addr, err, f.delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.delay):
		}
	}
}

// Close tears the connection down.
func (f *Forwarder) Close() error {
	if f.conn == nil {
		return nil
	}
	err := f.conn.Close()
	f.conn = nil
	return err
}

// Send ships one input line. Blank lines are skipped. A failed write
// triggers one reconnect-and-resend; a second failure returns the error.
// There is no acknowledgement, so a record the receiver never saw can still
// count as sent.
func (f *Forwarder) Send(ctx context.Context, line string) error {
	payload := f.encode(line)
	if payload == nil {
		return nil
	}
	payload = append(payload, '\n')

	if f.conn == nil {
		if err := f.Connect(ctx); err != nil {
			return err
		}
	}
	if _, err := f.conn.Write(payload); err != nil {
		log.Printf("[Forwarder] Send failed: %v, reconnecting", err)
		f.conn.Close()
		f.conn = nil
		if err := f.Connect(ctx); err != nil {
			return err
		}
		if _, err := f.conn.Write(payload); err != nil {
			f.conn.Close()
			f.conn = nil
			return fmt.Errorf("resend after reconnect: %w", err)
		}
	}
	return nil
}

// encode passes JSON object lines through verbatim and wraps everything
// else the way the journal forwarder wraps raw strings. Returns nil for
// blank input.
func (f *Forwarder) encode(line string) []byte {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	if v, err := f.parser.Parse(trimmed); err == nil && v.Type() == fastjson.TypeObject {
		return []byte(trimmed)
	}
	wrapped, err := json.Marshal(map[string]any{
		"message":   trimmed,
		"priority":  "6",
		"hostname":  f.hostname,
		"timestamp": time.Now().UnixMicro(),
		"source":    "logharbor-forwarder",
	})
	if err != nil {
		return nil
	}
	return wrapped
}

// Run streams r line by line until EOF or ctx cancellation.
func (f *Forwarder) Run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	count := 0
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := f.Send(ctx, scanner.Text()); err != nil {
			return err
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	log.Printf("[Forwarder] Forwarded %d records", count)
	return nil
}

// Follow streams a file and keeps polling it for appended lines until ctx
// ends. Rotation and truncation are not handled.
func (f *Forwarder) Follow(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	var partial []byte
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			partial = append(partial, line...)
		}
		if err == nil {
			if err := f.Send(ctx, string(partial)); err != nil {
				return err
			}
			partial = partial[:0]
			continue
		}
		if err != io.EOF {
			return fmt.Errorf("read input: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.poll):
		}
	}
}
