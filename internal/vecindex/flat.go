// Package vecindex implements an exact flat inner-product similarity index
// over packed float32 vectors, with a single-file on-disk format.
//
// Vectors are addressed by insertion position; callers that keep a parallel
// record list aligned with insertion order can map search ids straight back
// to records. Scores are plain inner products, which equal cosine similarity
// when all stored vectors and the query are L2-normalized.
package vecindex

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrDimension is returned when a vector's length does not match the
	// index dimension.
	ErrDimension = errors.New("vector dimension mismatch")
	// ErrBadFile is returned when an index file is corrupt or has an
	// unrecognized format.
	ErrBadFile = errors.New("invalid index file")
)

// Flat is an exact inner-product index. Search scans every stored vector.
type Flat struct {
	dim  int
	data []float32 // packed row-major, len = dim * count
}

// New creates an empty index for vectors of the given dimension.
func New(dim int) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension %d", ErrDimension, dim)
	}
	return &Flat{dim: dim}, nil
}

// Dimension returns the vector dimension.
func (f *Flat) Dimension() int { return f.dim }

// Ntotal returns the number of stored vectors.
func (f *Flat) Ntotal() int { return len(f.data) / f.dim }

// IsTrained reports whether the index is ready to accept vectors. A flat
// index needs no training phase.
func (f *Flat) IsTrained() bool { return true }

// Add appends vectors in order. Positions are assigned sequentially from the
// current Ntotal.
func (f *Flat) Add(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("%w: vector %d has dimension %d, index has %d", ErrDimension, i, len(v), f.dim)
		}
	}
	for _, v := range vectors {
		f.data = append(f.data, v...)
	}
	return nil
}

// Search returns the k highest inner-product matches for query, scores in
// descending order. Equal scores keep insertion order. If k exceeds the
// number of stored vectors the remaining slots are padded with id -1, so both
// returned slices always have length k.
func (f *Flat) Search(query []float32, k int) ([]float32, []int, error) {
	if len(query) != f.dim {
		return nil, nil, fmt.Errorf("%w: query has dimension %d, index has %d", ErrDimension, len(query), f.dim)
	}
	if k <= 0 {
		return nil, nil, fmt.Errorf("k must be positive, got %d", k)
	}
	n := f.Ntotal()
	scores := make([]float32, n)
	for i := 0; i < n; i++ {
		row := f.data[i*f.dim : (i+1)*f.dim]
		var sum float32
		for j, q := range query {
			sum += row[j] * q
		}
		scores[i] = sum
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	outScores := make([]float32, k)
	outIDs := make([]int, k)
	for i := 0; i < k; i++ {
		if i < n {
			outScores[i] = scores[order[i]]
			outIDs[i] = order[i]
		} else {
			outScores[i] = float32(math.Inf(-1))
			outIDs[i] = -1
		}
	}
	return outScores, outIDs, nil
}
