package store

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/yantra-mind/memoryd/core/apperr"
	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/model"
)

const snapshotMagic = "MEMDSNAP"
const snapshotVersion = 1

// snapshotPayload is the full serialized state of the store at one
// generation — exactly the fields needed to reconstruct hot, warm, and
// cold tiers (cold carries payload + metadata but no embedding).
type snapshotPayload struct {
	Nodes map[ident.ID]*model.Node
	LSN   uint64
}

// snapshotPath returns the generation file name for base at generation
// g: a numbered suffix on the base store path.
func snapshotPath(base string, g uint64) string {
	return fmt.Sprintf("%s.snapshot.%d", base, g)
}

// latestSnapshot finds the highest-generation snapshot file present next
// to base, returning ("", 0, false) if none exists.
func latestSnapshot(base string) (path string, generation uint64, ok bool) {
	dir := filepath.Dir(base)
	prefix := filepath.Base(base) + ".snapshot."
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", 0, false
	}
	var best uint64
	var bestPath string
	found := false
	for _, e := range entries {
		name := e.Name()
		if len(name) <= len(prefix) || name[:len(prefix)] != prefix {
			continue
		}
		var g uint64
		if _, err := fmt.Sscanf(name[len(prefix):], "%d", &g); err != nil {
			continue
		}
		if !found || g > best {
			best = g
			bestPath = filepath.Join(dir, name)
			found = true
		}
	}
	return bestPath, best, found
}

// writeSnapshot serializes payload to a temp file and atomically renames
// it into place at snapshotPath(base, generation), so a reader never
// observes a half-written snapshot.
func writeSnapshot(base string, generation uint64, payload snapshotPayload) (string, error) {
	final := snapshotPath(base, generation)
	tmp := final + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return "", apperr.Wrap(apperr.KindStore, err, "create snapshot temp file")
	}

	var body bytes.Buffer
	if err := gob.NewEncoder(&body).Encode(payload); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", apperr.Wrap(apperr.KindStore, err, "encode snapshot")
	}

	w := bufio.NewWriter(f)
	var hdr [len(snapshotMagic) + 4 + 8 + 4]byte
	off := copy(hdr[:], snapshotMagic)
	binary.LittleEndian.PutUint32(hdr[off:], snapshotVersion)
	off += 4
	binary.LittleEndian.PutUint64(hdr[off:], generation)
	off += 8
	binary.LittleEndian.PutUint32(hdr[off:], crc32.ChecksumIEEE(body.Bytes()))

	if _, err := w.Write(hdr[:]); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", apperr.Wrap(apperr.KindStore, err, "write snapshot header")
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", apperr.Wrap(apperr.KindStore, err, "write snapshot body")
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", apperr.Wrap(apperr.KindStore, err, "flush snapshot")
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", apperr.Wrap(apperr.KindStore, err, "fsync snapshot")
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", apperr.Wrap(apperr.KindStore, err, "close snapshot")
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return "", apperr.Wrap(apperr.KindStore, err, "rename snapshot into place")
	}
	return final, nil
}

// readSnapshot loads and verifies the snapshot at path.
func readSnapshot(path string) (snapshotPayload, error) {
	var payload snapshotPayload
	f, err := os.Open(path)
	if err != nil {
		return payload, apperr.Wrap(apperr.KindStore, err, "open snapshot %s", path)
	}
	defer f.Close()

	hdrLen := len(snapshotMagic) + 4 + 8 + 4
	hdr := make([]byte, hdrLen)
	if _, err := io.ReadFull(f, hdr); err != nil {
		return payload, apperr.Wrap(apperr.KindStore, err, "read snapshot header")
	}
	if string(hdr[:len(snapshotMagic)]) != snapshotMagic {
		return payload, apperr.New(apperr.KindStore, "snapshot %s: bad magic", path)
	}
	off := len(snapshotMagic)
	version := binary.LittleEndian.Uint32(hdr[off:])
	if version != snapshotVersion {
		return payload, apperr.New(apperr.KindStore, "snapshot %s: unsupported version %d", path, version)
	}
	off += 4 + 8 // skip generation, already known from the filename
	wantCRC := binary.LittleEndian.Uint32(hdr[off:])

	body, err := io.ReadAll(f)
	if err != nil {
		return payload, apperr.Wrap(apperr.KindStore, err, "read snapshot body")
	}
	if crc32.ChecksumIEEE(body) != wantCRC {
		return payload, apperr.New(apperr.KindStore, "snapshot %s: checksum mismatch", path)
	}
	if err := gob.NewDecoder(bytes.NewReader(body)).Decode(&payload); err != nil {
		return payload, apperr.Wrap(apperr.KindStore, err, "decode snapshot")
	}
	return payload, nil
}

// Upgrade checks the layout version of the latest snapshot at base and
// reports whether a migration ran. A store already at the current version
// is left untouched; a snapshot from a newer build is an error rather
// than a silent downgrade. No migration is implemented: a snapshot at any
// older version is reported as an unknown-version error and is not
// rewritten, so the result is never true.
func Upgrade(base string) (bool, error) {
	path, _, ok := latestSnapshot(base)
	if !ok {
		return false, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return false, apperr.Wrap(apperr.KindStore, err, "open snapshot %s", path)
	}
	hdr := make([]byte, len(snapshotMagic)+4)
	_, err = io.ReadFull(f, hdr)
	f.Close()
	if err != nil {
		return false, apperr.Wrap(apperr.KindStore, err, "read snapshot header")
	}
	if string(hdr[:len(snapshotMagic)]) != snapshotMagic {
		return false, apperr.New(apperr.KindStore, "snapshot %s: bad magic", path)
	}
	version := binary.LittleEndian.Uint32(hdr[len(snapshotMagic):])
	switch {
	case version == snapshotVersion:
		return false, nil
	case version > snapshotVersion:
		return false, apperr.New(apperr.KindStore, "snapshot %s was written by a newer version (%d)", path, version)
	default:
		// No older layout exists yet; the case is reserved for future
		// format revisions.
		return false, apperr.New(apperr.KindStore, "snapshot %s: unknown version %d", path, version)
	}
}

// VerifySnapshot re-reads and checksum-verifies the latest snapshot
// generation, if one exists. Used by integrity checks; a verification
// failure degrades health but does not affect the live in-memory state.
func (s *Store) VerifySnapshot() error {
	s.mu.RLock()
	base := s.path
	s.mu.RUnlock()
	path, _, ok := latestSnapshot(base)
	if !ok {
		return nil
	}
	_, err := readSnapshot(path)
	return err
}

// pruneOldSnapshots removes every generation file for base except the
// keepNewest newest, so checkpoints do not accumulate without bound.
func pruneOldSnapshots(base string, keepNewest int) {
	dir := filepath.Dir(base)
	prefix := filepath.Base(base) + ".snapshot."
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	type gen struct {
		g    uint64
		path string
	}
	var gens []gen
	for _, e := range entries {
		name := e.Name()
		if len(name) <= len(prefix) || name[:len(prefix)] != prefix {
			continue
		}
		var g uint64
		if _, err := fmt.Sscanf(name[len(prefix):], "%d", &g); err != nil {
			continue
		}
		gens = append(gens, gen{g: g, path: filepath.Join(dir, name)})
	}
	sort.Slice(gens, func(i, j int) bool { return gens[i].g > gens[j].g })
	for i := keepNewest; i < len(gens); i++ {
		os.Remove(gens[i].path)
	}
}
