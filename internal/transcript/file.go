// Package transcript loads transcript files for parsing.
//
// Transcripts are memory-mapped read-only, so spans produced from a
// loaded transcript borrow the mapping directly and large captures are
// parsed without copying the file into the heap. The mapping must
// outlive every span derived from it; Close only after the parse
// results are no longer needed.
package transcript

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// File is a memory-mapped transcript.
type File struct {
	file *os.File
	data mmap.MMap
}

// Open memory-maps the file at path read-only. Empty files cannot be
// mapped and yield a File with no bytes.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat transcript: %w", err)
	}
	if fi.Size() == 0 {
		return &File{file: f}, nil
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap transcript: %w", err)
	}

	return &File{file: f, data: data}, nil
}

// Bytes returns the mapped transcript bytes. The slice is valid until
// Close.
func (f *File) Bytes() []byte {
	return f.data
}

// Len returns the transcript length in bytes.
func (f *File) Len() int {
	return len(f.data)
}

// Close unmaps the transcript and closes the underlying file.
func (f *File) Close() error {
	if f.data != nil {
		if err := f.data.Unmap(); err != nil {
			f.file.Close()
			return fmt.Errorf("unmap transcript: %w", err)
		}
		f.data = nil
	}
	return f.file.Close()
}
