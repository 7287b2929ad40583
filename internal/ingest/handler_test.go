package ingest

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/logharbor/logharbor/internal/sources"
	"github.com/logharbor/logharbor/internal/store"
)

func newTestServer(maxLogs int) (*Server, *store.LogStore, *sources.Registry) {
	st := store.New(maxLogs)
	reg := sources.NewRegistry()
	return NewServer(st, reg, 0), st, reg
}

// runConn feeds one in-memory connection to the handler and returns the
// client end plus a channel closed when the handler exits.
func runConn(s *Server) (net.Conn, chan struct{}) {
	client, server := net.Pipe()
	done := make(chan struct{})
	go func() {
		s.handleConn(server)
		close(done)
	}()
	return client, done
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestHandler_ReassemblesSplitLines(t *testing.T) {
	t.Parallel()
	s, st, _ := newTestServer(10)
	client, done := runConn(s)

	// One record split across three writes.
	io.WriteString(client, `{"message":"par`)
	io.WriteString(client, `tial record",`)
	io.WriteString(client, `"level":"info"}`+"\n")
	client.Close()
	<-done

	snap := st.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("stored %d records, want 1", len(snap))
	}
	if v, _ := snap[0].Field("message"); v != "partial record" {
		t.Errorf("message = %v, want reassembled value", v)
	}
}

func TestHandler_MultipleRecordsPerRead(t *testing.T) {
	t.Parallel()
	s, st, _ := newTestServer(10)
	client, done := runConn(s)

	io.WriteString(client, `{"seq":1}`+"\n"+`{"seq":2}`+"\n"+`{"seq":3}`+"\n")
	client.Close()
	<-done

	snap := st.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("stored %d records, want 3", len(snap))
	}
	for i, rec := range snap {
		if v, _ := rec.Field("seq"); v != int64(i+1) {
			t.Errorf("snapshot[%d] seq = %v, want %d", i, v, i+1)
		}
	}
}

func TestHandler_MalformedLineDoesNotKillConnection(t *testing.T) {
	t.Parallel()
	s, st, _ := newTestServer(10)
	client, done := runConn(s)

	io.WriteString(client, `{"seq":1}`+"\n")
	io.WriteString(client, `{this is not json}`+"\n")
	io.WriteString(client, `{"seq":2}`+"\n")
	client.Close()
	<-done

	snap := st.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("stored %d records, want 2", len(snap))
	}
	if v, _ := snap[0].Field("seq"); v != int64(1) {
		t.Errorf("first record seq = %v, want 1", v)
	}
	if v, _ := snap[1].Field("seq"); v != int64(2) {
		t.Errorf("second record seq = %v, want 2", v)
	}
	if got := st.Stats().DecodeErrors; got != 1 {
		t.Errorf("DecodeErrors = %d, want 1", got)
	}
}

func TestHandler_BlankLinesSkipped(t *testing.T) {
	t.Parallel()
	s, st, _ := newTestServer(10)
	client, done := runConn(s)

	io.WriteString(client, "\n  \n\t\n"+`{"seq":1}`+"\n\n")
	client.Close()
	<-done

	if got := st.Len(); got != 1 {
		t.Errorf("stored %d records, want 1", got)
	}
	if got := st.Stats().DecodeErrors; got != 0 {
		t.Errorf("DecodeErrors = %d, want 0 for blank lines", got)
	}
}

func TestHandler_ArrayLineIsDecodeError(t *testing.T) {
	t.Parallel()
	s, st, _ := newTestServer(10)
	client, done := runConn(s)

	io.WriteString(client, `[{"seq":1}]`+"\n")
	client.Close()
	<-done

	if got := st.Len(); got != 0 {
		t.Errorf("stored %d records, want 0", got)
	}
	if got := st.Stats().DecodeErrors; got != 1 {
		t.Errorf("DecodeErrors = %d, want 1", got)
	}
}

func TestHandler_TrailingPartialDiscarded(t *testing.T) {
	t.Parallel()
	s, st, _ := newTestServer(10)
	client, done := runConn(s)

	// No terminating newline before disconnect: the segment never completes.
	io.WriteString(client, `{"seq":1}`)
	client.Close()
	<-done

	if got := st.Len(); got != 0 {
		t.Errorf("stored %d records, want 0", got)
	}
}

func TestHandler_StampsReceiverFields(t *testing.T) {
	t.Parallel()
	s, st, _ := newTestServer(10)
	client, done := runConn(s)

	// Forwarder-supplied received_at/source must lose to the receiver's stamp.
	io.WriteString(client, `{"message":"x","received_at":"1999-01-01T00:00:00Z","source":"spoofed"}`+"\n")
	client.Close()
	<-done

	snap := st.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("stored %d records, want 1", len(snap))
	}
	rec := snap[0]
	if rec.Source() != "pipe" {
		t.Errorf("source = %q, want stamped peer address %q", rec.Source(), "pipe")
	}
	got, err := time.Parse(time.RFC3339Nano, rec.ReceivedAt())
	if err != nil {
		t.Fatalf("received_at %q does not parse: %v", rec.ReceivedAt(), err)
	}
	if time.Since(got) > time.Minute {
		t.Errorf("received_at = %v, want a fresh receiver stamp", got)
	}
}

func TestHandler_SourceLifecycle(t *testing.T) {
	t.Parallel()
	s, _, reg := newTestServer(10)
	client, done := runConn(s)

	waitFor(t, func() bool { return reg.Count() == 1 }, "source never registered")

	io.WriteString(client, `{"seq":1}`+"\n")
	waitFor(t, func() bool {
		list := reg.List()
		return len(list) == 1 && list[0].Records == 1
	}, "record count never updated")

	client.Close()
	<-done
	if got := reg.Count(); got != 0 {
		t.Errorf("Count = %d after disconnect, want 0", got)
	}
}
