package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/j-veylop/bidmanager-cli/internal/dbm"
	"github.com/j-veylop/bidmanager-cli/internal/models"
)

// Transfer tunables.
const (
	// StreamCopyBufferSize is the copy buffer of the stream-copy strategy.
	StreamCopyBufferSize = 16000
	// DefaultBlockSize is the chunked-read block when the length is unknown.
	DefaultBlockSize = 100 * 1024 * 1024
	// DefaultChunks is the number of blocks chunked-read aims for.
	DefaultChunks = 100
	// wholeFileBlockSize is the nominal block reported by whole-file progress.
	wholeFileBlockSize = 8 * 1024
)

// ProgressEvent reports transfer progress. Total is -1 when unknown.
type ProgressEvent struct {
	Block     int
	BlockSize int
	Written   int64
	Total     int64
}

// ProgressFunc receives progress events; it must not block.
type ProgressFunc func(ProgressEvent)

// Strategy writes every byte of an open resource to dst.
type Strategy interface {
	Fetch(ctx context.Context, res *Resource, dst string, progress ProgressFunc) (int64, error)
}

// NewStrategy returns the strategy implementing method.
func NewStrategy(method models.DownloadMethod) (Strategy, error) {
	switch method {
	case models.MethodWholeFile:
		return WholeFile{}, nil
	case models.MethodStreamCopy:
		return StreamCopy{}, nil
	case models.MethodChunkedRead:
		return ChunkedRead{}, nil
	default:
		return nil, dbm.InvalidArgument("unknown download method %q", method)
	}
}

// WholeFile transfers the resource to the destination in one call, reporting
// progress on every write.
type WholeFile struct{}

// Fetch implements Strategy.
func (WholeFile) Fetch(ctx context.Context, res *Resource, dst string, progress ProgressFunc) (n int64, err error) {
	f, err := createDestination(dst)
	if err != nil {
		return 0, err
	}
	defer closeDestination(f, &err)

	pw := &progressWriter{w: f, total: res.Length, progress: progress}
	pw.report()
	return io.Copy(pw, contextReader{ctx: ctx, r: res.Body})
}

// StreamCopy copies the stream through a fixed-size buffer.
type StreamCopy struct {
	BufferSize int
}

// Fetch implements Strategy.
func (s StreamCopy) Fetch(ctx context.Context, res *Resource, dst string, _ ProgressFunc) (n int64, err error) {
	size := s.BufferSize
	if size <= 0 {
		size = StreamCopyBufferSize
	}

	f, err := createDestination(dst)
	if err != nil {
		return 0, err
	}
	defer closeDestination(f, &err)

	// Plain wrappers keep io.CopyBuffer from bypassing the buffer via ReadFrom/WriteTo.
	return io.CopyBuffer(struct{ io.Writer }{f}, contextReader{ctx: ctx, r: res.Body}, make([]byte, size))
}

// ChunkedRead reads the resource in blocks sized to produce about Chunks
// writes, falling back to DefaultBlockSize when the length is unknown.
type ChunkedRead struct {
	DefaultBlockSize int
	Chunks           int
}

// BlockSize returns the block used for a resource of the given length.
func (c ChunkedRead) BlockSize(length int64) int {
	if length < 0 {
		if c.DefaultBlockSize > 0 {
			return c.DefaultBlockSize
		}
		return DefaultBlockSize
	}
	chunks := c.Chunks
	if chunks <= 0 {
		chunks = DefaultChunks
	}
	return int(length/int64(chunks)) + 1
}

// Fetch implements Strategy.
func (c ChunkedRead) Fetch(ctx context.Context, res *Resource, dst string, progress ProgressFunc) (n int64, err error) {
	f, err := createDestination(dst)
	if err != nil {
		return 0, err
	}
	defer closeDestination(f, &err)

	blockSize := c.BlockSize(res.Length)
	buf := make([]byte, blockSize)
	emit := func(block int) {
		if progress != nil {
			progress(ProgressEvent{Block: block, BlockSize: blockSize, Written: n, Total: res.Length})
		}
	}

	emit(0)
	body := contextReader{ctx: ctx, r: res.Body}
	for block := 1; ; block++ {
		read, rerr := readBlock(body, buf)
		if read > 0 {
			if _, err := f.Write(buf[:read]); err != nil {
				return n, fmt.Errorf("failed to write %s: %w", dst, err)
			}
			n += int64(read)
			emit(block)
		}
		if rerr != nil {
			return n, rerr
		}
		if read == 0 {
			return n, nil
		}
	}
}

// readBlock fills buf unless the stream ends first; an empty result means EOF.
// Only io.EOF ends the stream cleanly. A body cut off mid-transfer reports
// io.ErrUnexpectedEOF, which is returned along with the bytes read so far.
func readBlock(r io.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func createDestination(dst string) (*os.File, error) {
	if dir := filepath.Dir(dst); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dst, err)
	}
	return f, nil
}

func closeDestination(f *os.File, errp *error) {
	if err := f.Close(); err != nil && *errp == nil {
		*errp = fmt.Errorf("failed to close %s: %w", f.Name(), err)
	}
}

// progressWriter counts bytes and reports one event per write.
type progressWriter struct {
	w        io.Writer
	progress ProgressFunc
	total    int64
	written  int64
	block    int
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	p.block++
	p.report()
	return n, err
}

func (p *progressWriter) report() {
	if p.progress != nil {
		p.progress(ProgressEvent{Block: p.block, BlockSize: wholeFileBlockSize, Written: p.written, Total: p.total})
	}
}

// contextReader stops reading once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
