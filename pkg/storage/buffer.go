package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// DefaultBufferMaxMemory controls how much of a non-seekable upload is held
// in memory. Larger bodies are spooled to a temp file.
const DefaultBufferMaxMemory int64 = 16 << 20 // 16 MiB

// seekableBody is an upload body with a known length. Close releases any
// buffer it owns.
type seekableBody struct {
	reader  io.ReadSeeker
	size    int64
	cleanup func() error
}

func (b *seekableBody) Close() error {
	if b.cleanup == nil {
		return nil
	}
	return b.cleanup()
}

// asSeekable returns src unchanged when it can seek, otherwise a buffered
// copy of it.
func asSeekable(src io.Reader, maxMemoryBytes int64) (*seekableBody, error) {
	if rs, ok := src.(io.ReadSeeker); ok {
		if size, err := remaining(rs); err == nil {
			return &seekableBody{reader: rs, size: size}, nil
		}
		// Pipes and sockets satisfy io.Seeker but fail to seek.
	}
	return bufferBody(src, maxMemoryBytes)
}

// remaining reports the bytes between the current offset and the end,
// leaving the offset where it was.
func remaining(rs io.ReadSeeker) (int64, error) {
	cur, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := rs.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	return end - cur, nil
}

func bufferBody(src io.Reader, maxMemoryBytes int64) (*seekableBody, error) {
	if maxMemoryBytes <= 0 {
		maxMemoryBytes = DefaultBufferMaxMemory
	}

	head, err := io.ReadAll(io.LimitReader(src, maxMemoryBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(head)) <= maxMemoryBytes {
		return &seekableBody{reader: bytes.NewReader(head), size: int64(len(head))}, nil
	}

	f, err := os.CreateTemp("", "nimbusfs-save-buffer-*")
	if err != nil {
		return nil, err
	}
	discard := func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}

	n, err := f.Write(head)
	if err != nil {
		discard()
		return nil, err
	}
	rest, err := io.Copy(f, src)
	if err != nil {
		discard()
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		discard()
		return nil, err
	}

	return &seekableBody{
		reader: f,
		size:   int64(n) + rest,
		cleanup: func() error {
			name := f.Name()
			closeErr := f.Close()
			rmErr := os.Remove(name)
			if closeErr != nil {
				return fmt.Errorf("close temp file: %w", closeErr)
			}
			if rmErr != nil {
				return fmt.Errorf("remove temp file: %w", rmErr)
			}
			return nil
		},
	}, nil
}
