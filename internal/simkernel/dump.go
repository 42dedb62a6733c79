package simkernel

import (
	"encoding/binary"
	"math"
	"os"

	"github.com/vmihailenco/msgpack/v5"
)

// dumpEnvelope is the on-disk shape of a Basis dump file. Dump encoding
// is explicitly out of scope for the core dispatcher (spec.md §1); the
// kernel reference implementation is free to pick any format, and picks
// msgpack — the serialization library the example pack reaches for
// (haivivi-giztoy) — over encoding/gob, per the "prefer the ecosystem
// library" transformation rule.
type dumpEnvelope struct {
	CoordNames      []string          `msgpack:"coords"`
	VectorSets      []dumpVectorSet   `msgpack:"vector_sets"`
	Recommendations []dumpRecommended `msgpack:"recommendations"`
}

type dumpVectorSet struct {
	Name    string    `msgpack:"name"`
	IDs     []int     `msgpack:"ids"`
	Vectors [][]byte  `msgpack:"vectors"`
	Sparse  [][]int   `msgpack:"sparse"`
}

type dumpRecommended struct {
	Src       string `msgpack:"src"`
	Tgt       string `msgpack:"tgt"`
	FuncScore string `msgpack:"funcscore"`
}

func encodeVec(v []float64) []byte {
	raw := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(raw[i*8:], math.Float64bits(x))
	}
	return raw
}

func decodeVec(raw []byte) []float64 {
	n := len(raw) / 8
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return out
}

func writeDump(path string, env dumpEnvelope) error {
	data, err := msgpack.Marshal(env)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func readDump(path string) (dumpEnvelope, error) {
	var env dumpEnvelope
	data, err := os.ReadFile(path)
	if err != nil {
		return env, err
	}
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return env, err
	}
	return env, nil
}
