package vecindex

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// File format (v1), little-endian:
//
//	0..7   magic "KSFLAT01"
//	8..15  dim (uint64)
//	16..23 count (uint64)
//	24..   count*dim float32 vector data
const headerSize = 24

var fileMagic = [8]byte{'K', 'S', 'F', 'L', 'A', 'T', '0', '1'}

// Extensions recognized as index files.
var Extensions = []string{".index", ".faiss"}

// WriteFile persists the index to path, overwriting any existing file.
func (f *Flat) WriteFile(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	w := bufio.NewWriter(out)

	header := make([]byte, headerSize)
	copy(header[:8], fileMagic[:])
	binary.LittleEndian.PutUint64(header[8:16], uint64(f.dim))
	binary.LittleEndian.PutUint64(header[16:24], uint64(f.Ntotal()))
	if _, err := w.Write(header); err != nil {
		_ = out.Close()
		return fmt.Errorf("write index header: %w", err)
	}

	buf := make([]byte, 4)
	for _, v := range f.data {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
		if _, err := w.Write(buf); err != nil {
			_ = out.Close()
			return fmt.Errorf("write index data: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = out.Close()
		return fmt.Errorf("write index data: %w", err)
	}
	return out.Close()
}

// ReadFile loads an index previously written with WriteFile. A missing file
// surfaces as an *os.PathError; anything structurally wrong with the content
// wraps ErrBadFile.
func ReadFile(path string) (*Flat, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(in, header); err != nil {
		return nil, fmt.Errorf("%w: truncated header: %v", ErrBadFile, err)
	}
	var magic [8]byte
	copy(magic[:], header[:8])
	if magic != fileMagic {
		return nil, fmt.Errorf("%w: magic mismatch", ErrBadFile)
	}
	dim := binary.LittleEndian.Uint64(header[8:16])
	count := binary.LittleEndian.Uint64(header[16:24])
	if dim == 0 || dim > 1<<20 {
		return nil, fmt.Errorf("%w: implausible dimension %d", ErrBadFile, dim)
	}

	// The header's count is untrusted input: verify it against the actual
	// file size before allocating, dividing by the vector width so the
	// check cannot overflow.
	info, err := in.Stat()
	if err != nil {
		return nil, err
	}
	payload := info.Size() - headerSize
	vecBytes := uint64(dim) * 4
	if payload < 0 || uint64(payload)%vecBytes != 0 || uint64(payload)/vecBytes != count {
		return nil, fmt.Errorf("%w: header count %d does not match file size %d", ErrBadFile, count, info.Size())
	}

	data := make([]byte, dim*count*4)
	if _, err := io.ReadFull(in, data); err != nil {
		return nil, fmt.Errorf("%w: truncated vector data: %v", ErrBadFile, err)
	}

	f := &Flat{dim: int(dim), data: make([]float32, dim*count)}
	for i := range f.data {
		f.data[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : i*4+4]))
	}
	return f, nil
}
