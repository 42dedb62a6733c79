package simkernel

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"sync"
)

// walOp identifies which dense mutation a WAL record replays. Adapted
// from internal/wal/wal.go's pending/commit byte-marker format, but the
// payload is a vector-set + id + float64 vector instead of a
// string key/value pair.
type walOp byte

const (
	walSet walOp = 'S'
	walAcc walOp = 'A'
	walDel walOp = 'D'
)

// vectorWAL is internal/wal/wal.go's format rewritten for vector
// payloads: each record is
// [opByte][commitByte][vkeyLen u32][vkey][id i64][vecLen u32][vec float64...]
type vectorWAL struct {
	mu   sync.Mutex
	file *os.File
}

func openVectorWAL(path string) (*vectorWAL, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, err
	}
	return &vectorWAL{file: f}, nil
}

type walRecord struct {
	op   walOp
	vkey string
	id   int
	vec  []float64
}

func (w *vectorWAL) append(rec walRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	vkeyBytes := []byte(rec.vkey)
	buf := make([]byte, 0, 1+1+4+len(vkeyBytes)+8+4+8*len(rec.vec))
	buf = append(buf, byte(rec.op), 'P')

	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(len(vkeyBytes)))
	buf = append(buf, tmp[:]...)
	buf = append(buf, vkeyBytes...)

	var tmp8 [8]byte
	binary.LittleEndian.PutUint64(tmp8[:], uint64(int64(rec.id)))
	buf = append(buf, tmp8[:]...)

	binary.LittleEndian.PutUint32(tmp[:], uint32(len(rec.vec)))
	buf = append(buf, tmp[:]...)
	for _, v := range rec.vec {
		binary.LittleEndian.PutUint64(tmp8[:], math.Float64bits(v))
		buf = append(buf, tmp8[:]...)
	}

	if _, err := w.file.Write(buf); err != nil {
		return err
	}
	return w.file.Sync()
}

// markCommittedAt flips the commit byte of the record written at offset.
// Mirrors wal.WAL.MarkCommitted's single-flag-at-a-fixed-offset trick,
// but since vector records are variable length, the caller must track
// the offset it wrote at; for the kernel's usage (one append then an
// immediate commit) that's always "the position right before append".
func (w *vectorWAL) markCommittedAt(offset int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.file.WriteAt([]byte{'C'}, offset+1); err != nil {
		return err
	}
	return w.file.Sync()
}

func (w *vectorWAL) offset() (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Seek(0, io.SeekEnd)
}

// replay returns every record in the file, committed or not. Unlike
// the teacher's wal.Replay, which can skip committed records because
// VectorEngineImpl.insertAfterWAL durably persists each write to a
// separate dataFile before MarkCommitted runs, this kernel has no such
// second durable store: the WAL is the only record of a write between
// dumps, and Bload always rebuilds a Basis from a blank slate before
// replaying, so every record — commit byte or not — still needs to be
// reapplied to reach the pre-crash state.
func (w *vectorWAL) replay() ([]walRecord, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	var out []walRecord
	for {
		header := make([]byte, 2)
		if _, err := io.ReadFull(w.file, header); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		op := walOp(header[0])

		var lenBuf [4]byte
		if _, err := io.ReadFull(w.file, lenBuf[:]); err != nil {
			break
		}
		vkeyLen := binary.LittleEndian.Uint32(lenBuf[:])
		vkeyBytes := make([]byte, vkeyLen)
		if _, err := io.ReadFull(w.file, vkeyBytes); err != nil {
			break
		}

		var idBuf [8]byte
		if _, err := io.ReadFull(w.file, idBuf[:]); err != nil {
			break
		}
		id := int(int64(binary.LittleEndian.Uint64(idBuf[:])))

		if _, err := io.ReadFull(w.file, lenBuf[:]); err != nil {
			break
		}
		vecLen := binary.LittleEndian.Uint32(lenBuf[:])
		vec := make([]float64, vecLen)
		for i := range vec {
			var vbuf [8]byte
			if _, err := io.ReadFull(w.file, vbuf[:]); err != nil {
				return out, nil
			}
			vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(vbuf[:]))
		}

		out = append(out, walRecord{op: op, vkey: string(vkeyBytes), id: id, vec: vec})
	}
	return out, nil
}

func (w *vectorWAL) clear() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Truncate(0)
}

func (w *vectorWAL) close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
