package ingest

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/logharbor/logharbor/internal/query"
	"github.com/logharbor/logharbor/internal/sources"
	"github.com/logharbor/logharbor/internal/store"
)

func startListener(t *testing.T, s *Server) {
	t.Helper()
	if err := s.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go s.Serve(ctx)
	t.Cleanup(func() {
		cancel()
		s.Close()
	})
}

func TestServer_EndToEnd(t *testing.T) {
	t.Parallel()
	st := store.New(3)
	s := NewServer(st, sources.NewRegistry(), 0)
	startListener(t, s)

	conn, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(conn, `{"seq":%d,"message":"record %d"}`+"\n", i, i)
	}
	conn.Close()

	waitFor(t, func() bool { return st.TotalCount() == 5 }, "records never arrived")

	// Capacity 3 with 5 ingested: the query sees only the newest three.
	res := query.NewEngine(st).Run("", 3)
	if res.Total != 3 {
		t.Errorf("Total = %d, want 3", res.Total)
	}
	if res.Returned != 3 {
		t.Errorf("Returned = %d, want 3", res.Returned)
	}
	for i, wantSeq := range []int64{3, 4, 5} {
		v, _ := res.Records[i].Field("seq")
		if v != wantSeq {
			t.Errorf("records[%d] seq = %v, want %d", i, v, wantSeq)
		}
	}
}

func TestServer_StampsPeerAddress(t *testing.T) {
	t.Parallel()
	st := store.New(10)
	s := NewServer(st, sources.NewRegistry(), 0)
	startListener(t, s)

	conn, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	local := conn.LocalAddr().String()
	fmt.Fprintf(conn, `{"message":"hello"}`+"\n")
	conn.Close()

	waitFor(t, func() bool { return st.TotalCount() == 1 }, "record never arrived")

	snap := st.Snapshot()
	if got := snap[0].Source(); got != local {
		t.Errorf("source = %q, want dialing address %q", got, local)
	}
}

func TestServer_ConcurrentConnectionsKeepPerConnOrder(t *testing.T) {
	t.Parallel()
	st := store.New(100)
	s := NewServer(st, sources.NewRegistry(), 0)
	startListener(t, s)

	const conns = 4
	const perConn = 10

	for c := 1; c <= conns; c++ {
		go func(c int) {
			conn, err := net.Dial("tcp", s.Addr().String())
			if err != nil {
				t.Errorf("Dial: %v", err)
				return
			}
			defer conn.Close()
			for i := 0; i < perConn; i++ {
				fmt.Fprintf(conn, `{"conn":%d,"i":%d}`+"\n", c, i)
			}
		}(c)
	}

	waitFor(t, func() bool { return st.TotalCount() == conns*perConn }, "records never arrived")

	// Interleaving across connections is unspecified, but each connection's
	// records must stay in send order.
	next := make(map[int64]int64)
	for _, rec := range st.Snapshot() {
		cv, _ := rec.Field("conn")
		iv, _ := rec.Field("i")
		c, i := cv.(int64), iv.(int64)
		if i != next[c] {
			t.Fatalf("connection %d: got index %d, want %d", c, i, next[c])
		}
		next[c]++
	}
}

func TestServer_BindFailureIsReported(t *testing.T) {
	t.Parallel()
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer occupied.Close()

	s := NewServer(store.New(10), sources.NewRegistry(), 0)
	if err := s.Listen(occupied.Addr().String()); err == nil {
		s.Close()
		t.Fatal("Listen on an occupied port succeeded, want error")
	}
}

func TestServer_CloseStopsAcceptLoop(t *testing.T) {
	t.Parallel()
	s := NewServer(store.New(10), sources.NewRegistry(), 0)
	if err := s.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	done := make(chan struct{})
	go func() {
		s.Serve(context.Background())
		close(done)
	}()

	s.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Close")
	}
}

func TestServer_IdleTimeoutDropsConnection(t *testing.T) {
	t.Parallel()
	reg := sources.NewRegistry()
	s := NewServer(store.New(10), reg, 50*time.Millisecond)
	startListener(t, s)

	conn, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	waitFor(t, func() bool { return reg.Count() == 1 }, "connection never registered")
	// Send nothing: the read deadline should expire and release the handler.
	waitFor(t, func() bool { return reg.Count() == 0 }, "idle connection never dropped")
}
