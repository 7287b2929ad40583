package ingest

import (
	"bytes"
	"io"
	"log"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/logharbor/logharbor/internal/model"
)

const readChunkSize = 4096

// handleConn owns one forwarder connection end-to-end: it reassembles
// newline-terminated records across reads, decodes them, and appends them
// to the store. It returns when the peer closes or a read fails.
func (s *Server) handleConn(conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Ingest] Handler panic: %v", r)
		}
	}()
	defer conn.Close()

	id := uuid.NewString()
	peer := conn.RemoteAddr().String()
	s.sources.Connect(id, peer)
	defer s.sources.Disconnect(id)
	log.Printf("[Ingest] Forwarder connected: %s", peer)

	// Complete lines are consumed as they arrive; the buffer retains the
	// trailing partial segment across reads. There is no line-length cap, so
	// a peer that never sends a newline grows the buffer without bound.
	var buf []byte
	chunk := make([]byte, readChunkSize)
	for {
		if s.idleTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
		}
		n, err := conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			buf = s.drainLines(buf, id, peer)
		}
		if err != nil {
			if err == io.EOF {
				log.Printf("[Ingest] Forwarder disconnected: %s", peer)
			} else {
				log.Printf("[Ingest] Read error from %s: %v", peer, err)
			}
			return
		}
	}
}

// drainLines consumes every complete newline-terminated segment in buf and
// returns the remaining partial tail. Blank segments are skipped silently.
func (s *Server) drainLines(buf []byte, id, peer string) []byte {
	for {
		idx := bytes.IndexByte(buf, '\n')
		if idx < 0 {
			return buf
		}
		line := bytes.TrimSpace(buf[:idx])
		buf = buf[idx+1:]
		if len(line) == 0 {
			continue
		}
		s.ingestLine(line, id, peer)
	}
}

// ingestLine decodes one record, stamps it, and appends it to the store.
// A malformed line is logged and dropped; the connection keeps going.
func (s *Server) ingestLine(line []byte, id, peer string) {
	fields, err := s.codec.DecodeLine(line)
	if err != nil {
		s.store.CountDecodeError()
		log.Printf("[Ingest] Dropping malformed record from %s: %v", peer, err)
		return
	}

	rec, err := model.NewRecord(fields, peer, time.Now())
	if err != nil {
		s.store.CountDecodeError()
		log.Printf("[Ingest] Dropping unserializable record from %s: %v", peer, err)
		return
	}

	s.store.Append(rec)
	s.sources.RecordSeen(id)
}
