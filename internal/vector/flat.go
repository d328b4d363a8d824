package vector

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FlatIndex is a brute-force inner-product index. The knowledge base is
// curated and small (hundreds of documents per collection), so exact search
// is both fast enough and exactly deterministic, which approximate indexes
// are not.
type FlatIndex struct {
	dimensions int
	ids        []string
	vectors    [][]float32
	positions  map[string]int // id -> slot in ids/vectors
	mu         sync.RWMutex
}

// NewFlatIndex creates an empty flat index with the given dimension.
func NewFlatIndex(dimensions int) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}
	return &FlatIndex{
		dimensions: dimensions,
		positions:  make(map[string]int),
	}, nil
}

// Upsert inserts or replaces the vector for id. Replacement keeps the entry's
// original insertion position.
func (x *FlatIndex) Upsert(ctx context.Context, id string, vec []float32) error {
	if len(vec) != x.dimensions {
		return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vec), x.dimensions)
	}
	cp := make([]float32, x.dimensions)
	copy(cp, vec)

	x.mu.Lock()
	defer x.mu.Unlock()
	if pos, ok := x.positions[id]; ok {
		x.vectors[pos] = cp
		return nil
	}
	x.positions[id] = len(x.ids)
	x.ids = append(x.ids, id)
	x.vectors = append(x.vectors, cp)
	return nil
}

// Search scores every eligible vector against query and returns the top k by
// similarity descending, ties by insertion order. k <= 0 or an empty index
// yields no results and no error.
func (x *FlatIndex) Search(ctx context.Context, query []float32, k int, eligible Filter) ([]*Result, error) {
	if len(query) != x.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), x.dimensions)
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	if k <= 0 || len(x.ids) == 0 {
		return nil, nil
	}

	scored := make([]*Result, 0, len(x.ids))
	for i, vec := range x.vectors {
		if eligible != nil && !eligible(x.ids[i]) {
			continue
		}
		var dot float64
		for j := 0; j < x.dimensions; j++ {
			dot += float64(query[j] * vec[j])
		}
		scored = append(scored, &Result{ID: x.ids[i], Score: dot})
	}
	// Stable sort over the insertion-ordered slice: equal scores keep
	// earlier-inserted entries first.
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// Remove deletes vectors by id, compacting the index while preserving the
// relative insertion order of the remaining entries.
func (x *FlatIndex) Remove(ctx context.Context, ids []string) error {
	removeSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		removeSet[id] = true
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	newIDs := x.ids[:0:0]
	newVectors := x.vectors[:0:0]
	for i, id := range x.ids {
		if !removeSet[id] {
			newIDs = append(newIDs, id)
			newVectors = append(newVectors, x.vectors[i])
		}
	}
	x.ids = newIDs
	x.vectors = newVectors
	x.positions = make(map[string]int, len(newIDs))
	for i, id := range newIDs {
		x.positions[id] = i
	}
	return nil
}

// Save persists the index to path in insertion order. Format: dimensions (4),
// count (4), then per entry: idLen (4), id bytes, vector (dimensions*4).
func (x *FlatIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, uint32(x.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(x.ids))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, id := range x.ids {
		idBytes := []byte(id)
		if err := binary.Write(f, binary.LittleEndian, uint32(len(idBytes))); err != nil {
			return fmt.Errorf("write id length: %w", err)
		}
		if _, err := f.Write(idBytes); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if _, err := f.Write(float32sToBytes(x.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load replaces the index contents from path, restoring insertion order.
// A missing file leaves the index empty and is not an error; a corrupt file
// or a dimension mismatch is, and callers treat that as fatal at startup.
func (x *FlatIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != x.dimensions {
		return fmt.Errorf("index dimension mismatch: file has %d, index expects %d", dim, x.dimensions)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}

	ids := make([]string, 0, n)
	vectors := make([][]float32, 0, n)
	buf := make([]byte, x.dimensions*4)
	for i := uint32(0); i < n; i++ {
		var idLen uint32
		if err := binary.Read(f, binary.LittleEndian, &idLen); err != nil {
			return fmt.Errorf("read id length: %w", err)
		}
		idBytes := make([]byte, idLen)
		if _, err := io.ReadFull(f, idBytes); err != nil {
			return fmt.Errorf("read id: %w", err)
		}
		if _, err := io.ReadFull(f, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		ids = append(ids, string(idBytes))
		vectors = append(vectors, bytesToFloat32s(buf))
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.ids = ids
	x.vectors = vectors
	x.positions = make(map[string]int, len(ids))
	for i, id := range ids {
		x.positions[id] = i
	}
	return nil
}

// Size returns the number of vectors in the index.
func (x *FlatIndex) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.ids)
}

// Dimensions returns the vector dimension.
func (x *FlatIndex) Dimensions() int {
	return x.dimensions
}

// Close is a no-op for FlatIndex.
func (x *FlatIndex) Close() error {
	return nil
}

func float32sToBytes(s []float32) []byte {
	out := make([]byte, len(s)*4)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*4:(i+1)*4], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32s(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : (i+1)*4]))
	}
	return out
}
