// Package store implements the tiered (Hot/Warm/Cold) node store, its
// write-ahead log, and snapshot/recovery machinery: an append-only
// journal of operations plus periodic full-state snapshots, replayed
// forward on startup.
package store

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"hash/crc32"
	"io"
	"os"
	"sync"

	"github.com/yantra-mind/memoryd/core/apperr"
)

// Op identifies the kind of mutation a WAL frame records.
type Op uint8

const (
	OpRemember Op = iota + 1
	OpUpdate
	OpAddTag
	OpRemoveTag
	OpConnect
	OpDisconnect
	OpForget
	OpFeedback
	OpTierChange
	OpCheckpoint
	OpDecay
)

// frameHeaderLen is lsn(8) + op(1) + bodyLen(4) + crc32(4).
const frameHeaderLen = 17

// Frame is one decoded WAL record.
type Frame struct {
	LSN  uint64
	Op   Op
	Body []byte
}

// WAL is an append-only, crash-recoverable log of store mutations. Every
// mutating store operation appends a frame before it is considered
// committed.
type WAL struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	lsn  uint64
	path string
}

// OpenWAL opens (creating if absent) the WAL file at path, positioned for
// appending. startLSN seeds the in-memory counter, normally the LSN of the
// last frame found during recovery.
func OpenWAL(path string, startLSN uint64) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, err, "open wal %s", path)
	}
	return &WAL{f: f, w: bufio.NewWriter(f), lsn: startLSN, path: path}, nil
}

// Append encodes v with gob, wraps it in a frame, writes it, and fsyncs
// before returning — the frame is durable once Append returns nil.
func (w *WAL) Append(op Op, v interface{}) (uint64, error) {
	var buf bytes.Buffer
	if v != nil {
		if err := gob.NewEncoder(&buf).Encode(v); err != nil {
			return 0, apperr.Wrap(apperr.KindStore, err, "encode wal frame")
		}
	}
	body := buf.Bytes()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.lsn++
	lsn := w.lsn

	var hdr [frameHeaderLen]byte
	binary.LittleEndian.PutUint64(hdr[0:8], lsn)
	hdr[8] = byte(op)
	binary.LittleEndian.PutUint32(hdr[9:13], uint32(len(body)))
	crc := crc32.ChecksumIEEE(body)
	binary.LittleEndian.PutUint32(hdr[13:17], crc)

	if _, err := w.w.Write(hdr[:]); err != nil {
		return 0, apperr.Wrap(apperr.KindStore, err, "write wal header")
	}
	if _, err := w.w.Write(body); err != nil {
		return 0, apperr.Wrap(apperr.KindStore, err, "write wal body")
	}
	if err := w.w.Flush(); err != nil {
		return 0, apperr.Wrap(apperr.KindStore, err, "flush wal")
	}
	if err := w.f.Sync(); err != nil {
		return 0, apperr.Wrap(apperr.KindStore, err, "fsync wal")
	}
	return lsn, nil
}

// LSN returns the last-assigned log sequence number.
func (w *WAL) LSN() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lsn
}

// Close flushes and closes the underlying file.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.w.Flush()
	return w.f.Close()
}

// Truncate discards the WAL contents after a successful checkpoint: the
// snapshot now covers everything up to and including lsn, so replaying
// this log from scratch would redo committed work.
func (w *WAL) Truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.f.Truncate(0); err != nil {
		return apperr.Wrap(apperr.KindStore, err, "truncate wal")
	}
	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return apperr.Wrap(apperr.KindStore, err, "seek wal")
	}
	w.w = bufio.NewWriter(w.f)
	return nil
}

// ReadWAL reads every well-formed frame with LSN > afterLSN from path, in
// order, for crash recovery after a snapshot has been loaded. A truncated
// final frame (a torn write from a crash mid-append) is treated as the end
// of the log rather than an error: everything before it is still replayed.
func ReadWAL(path string, afterLSN uint64) ([]Frame, uint64, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, afterLSN, nil
	}
	if err != nil {
		return nil, afterLSN, apperr.Wrap(apperr.KindStore, err, "open wal %s", path)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var frames []Frame
	maxLSN := afterLSN
	for {
		var hdr [frameHeaderLen]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			break // EOF or torn header: stop, keep what we have
		}
		lsn := binary.LittleEndian.Uint64(hdr[0:8])
		op := Op(hdr[8])
		bodyLen := binary.LittleEndian.Uint32(hdr[9:13])
		wantCRC := binary.LittleEndian.Uint32(hdr[13:17])

		body := make([]byte, bodyLen)
		if _, err := io.ReadFull(r, body); err != nil {
			break // torn body: stop
		}
		if crc32.ChecksumIEEE(body) != wantCRC {
			break // corrupt frame: stop rather than replay garbage
		}
		if lsn > afterLSN {
			frames = append(frames, Frame{LSN: lsn, Op: op, Body: body})
		}
		if lsn > maxLSN {
			maxLSN = lsn
		}
	}
	return frames, maxLSN, nil
}

// DecodeFrame gob-decodes a frame body into dst.
func DecodeFrame(body []byte, dst interface{}) error {
	if len(body) == 0 {
		return nil
	}
	if err := gob.NewDecoder(bytes.NewReader(body)).Decode(dst); err != nil {
		return apperr.Wrap(apperr.KindStore, err, "decode wal frame")
	}
	return nil
}

