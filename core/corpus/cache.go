package corpus

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/siherrmann/kbrag/helper"
)

// ErrCacheMiss is returned by a VectorCache without vectors for a version.
var ErrCacheMiss = errors.New("vector cache miss")

// VectorCache stores built vector arrays keyed by version.
type VectorCache interface {
	Load(ctx context.Context, version string) ([][]float32, error)
	Save(ctx context.Context, version string, vectors [][]float32) error
}

const (
	fileCacheMagic   = "KBVC"
	fileCacheFormat  = uint32(1)
	maxCachedFloats  = 1 << 28
	fileCachePattern = "vectors-%s.zst"
)

// FileCache keeps one zstd compressed snapshot file per version in Dir.
//
// File layout before compression, little endian:
//
//	magic "KBVC" | format uint32 | rows uint32 | dim uint32 | rows*dim float32
type FileCache struct {
	Dir string
}

// NewFileCache creates a file cache in dir.
func NewFileCache(dir string) *FileCache {
	return &FileCache{Dir: dir}
}

func (c *FileCache) path(version string) string {
	return filepath.Join(c.Dir, fmt.Sprintf(fileCachePattern, version))
}

// Load reads the snapshot of version. A missing file is ErrCacheMiss.
func (c *FileCache) Load(ctx context.Context, version string) ([][]float32, error) {
	if err := validVersion(version); err != nil {
		return nil, err
	}

	f, err := os.Open(c.path(version))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrCacheMiss
	} else if err != nil {
		return nil, helper.NewError("open vector cache", err)
	}
	defer f.Close()

	decoder, err := zstd.NewReader(f)
	if err != nil {
		return nil, helper.NewError("create zstd reader", err)
	}
	defer decoder.Close()

	r := bufio.NewReader(decoder)

	magic := make([]byte, len(fileCacheMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, helper.NewError("read vector cache header", err)
	}
	if string(magic) != fileCacheMagic {
		return nil, helper.NewError("read vector cache header", fmt.Errorf("unexpected magic %q", magic))
	}

	var header [3]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, helper.NewError("read vector cache header", err)
	}
	format, rows, dim := header[0], header[1], header[2]
	if format != fileCacheFormat {
		return nil, helper.NewError("read vector cache header", fmt.Errorf("unsupported format %d", format))
	}
	if uint64(rows)*uint64(dim) > maxCachedFloats {
		return nil, helper.NewError("read vector cache header", fmt.Errorf("snapshot too large: %d x %d", rows, dim))
	}

	flat := make([]float32, int(rows)*int(dim))
	if err := binary.Read(r, binary.LittleEndian, flat); err != nil {
		return nil, helper.NewError("read vector cache rows", err)
	}

	vectors := make([][]float32, rows)
	for i := range vectors {
		vectors[i] = flat[i*int(dim) : (i+1)*int(dim) : (i+1)*int(dim)]
	}

	return vectors, nil
}

// Save writes the snapshot of version to a temporary file and renames it
// into place, readers never see a partial file.
func (c *FileCache) Save(ctx context.Context, version string, vectors [][]float32) error {
	if err := validVersion(version); err != nil {
		return err
	}

	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dim {
			return helper.NewError("save vector cache", fmt.Errorf("row %d has dimension %d, expected %d", i, len(v), dim))
		}
	}

	if err := os.MkdirAll(c.Dir, 0750); err != nil {
		return helper.NewError("create cache directory", err)
	}

	tmp, err := os.CreateTemp(c.Dir, ".vectors-*.tmp")
	if err != nil {
		return helper.NewError("create temp file", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeSnapshot(tmp, vectors, dim); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return helper.NewError("sync vector cache", err)
	}
	if err := tmp.Close(); err != nil {
		return helper.NewError("close vector cache", err)
	}

	if err := os.Rename(tmp.Name(), c.path(version)); err != nil {
		return helper.NewError("rename vector cache", err)
	}

	return nil
}

func writeSnapshot(w io.Writer, vectors [][]float32, dim int) error {
	encoder, err := zstd.NewWriter(w)
	if err != nil {
		return helper.NewError("create zstd writer", err)
	}

	bw := bufio.NewWriter(encoder)
	bw.WriteString(fileCacheMagic)
	header := [3]uint32{fileCacheFormat, uint32(len(vectors)), uint32(dim)}
	if err := binary.Write(bw, binary.LittleEndian, header); err != nil {
		encoder.Close()
		return helper.NewError("write vector cache header", err)
	}
	for _, v := range vectors {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			encoder.Close()
			return helper.NewError("write vector cache rows", err)
		}
	}
	if err := bw.Flush(); err != nil {
		encoder.Close()
		return helper.NewError("flush vector cache", err)
	}

	if err := encoder.Close(); err != nil {
		return helper.NewError("close zstd writer", err)
	}
	return nil
}

// validVersion rejects versions that could escape Dir.
func validVersion(version string) error {
	if version == "" || filepath.Base(version) != version || version == "." || version == ".." {
		return helper.NewError("vector cache", fmt.Errorf("invalid version %q", version))
	}
	return nil
}
