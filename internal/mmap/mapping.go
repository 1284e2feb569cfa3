package mmap

import (
	"errors"
	"math"
	"os"
	"sync"
)

// ErrTooLarge is returned for files that do not fit in the address space.
var ErrTooLarge = errors.New("mmap: file too large")

// Advice is an access hint for a mapping.
type Advice int

const (
	// Normal clears any previous hint.
	Normal Advice = iota
	// Sequential announces a single front-to-back pass.
	Sequential
	// WillNeed asks the kernel to read ahead the whole mapping.
	WillNeed
)

// Mapping is a read-only view of a file.
type Mapping struct {
	data  []byte
	unmap func() error

	once sync.Once
	err  error
}

// Open maps the file at path. Empty files yield an empty mapping.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() == 0 {
		return &Mapping{}, nil
	}
	if uint64(fi.Size()) > math.MaxInt {
		return nil, ErrTooLarge
	}

	data, unmap, err := mapFile(f, int(fi.Size()))
	if err != nil {
		return nil, err
	}
	return &Mapping{data: data, unmap: unmap}, nil
}

// Bytes returns the mapped contents. The slice must not be used after Close.
func (m *Mapping) Bytes() []byte { return m.data }

// Len returns the size of the mapping in bytes.
func (m *Mapping) Len() int { return len(m.data) }

// Advise passes an access hint to the kernel. Hints are best effort.
func (m *Mapping) Advise(a Advice) error {
	if len(m.data) == 0 {
		return nil
	}
	return advise(m.data, a)
}

// Close releases the mapping. Further calls return the first result.
func (m *Mapping) Close() error {
	m.once.Do(func() {
		if m.unmap != nil {
			m.err = m.unmap()
		}
		m.data = nil
	})
	return m.err
}

// View maps path for a single sequential pass and calls fn with its contents.
// data is only valid until fn returns.
func View(path string, fn func(data []byte) error) error {
	m, err := Open(path)
	if err != nil {
		return err
	}
	_ = m.Advise(Sequential)

	ferr := fn(m.Bytes())
	if cerr := m.Close(); ferr == nil {
		return cerr
	}
	return ferr
}
