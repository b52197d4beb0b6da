package vectorindex

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/yungbote/reviewer-backend/internal/platform/apierr"
	"github.com/yungbote/reviewer-backend/internal/platform/fsutil"
)

// File layout, little endian:
//
//	magic "EXIX" | version u32 | dim u32 | count u32
//	count x (len u16 | id bytes)
//	count*dim x f32
const (
	fileMagic   = "EXIX"
	fileVersion = 1

	maxIDLen = math.MaxUint16
	maxDim   = 1 << 16
	// 1 GiB of float32
	maxValues = 1 << 28
)

// FilePath is <dir>/index_<exam lowercased>.exix.
func FilePath(dir, examType string) string {
	return filepath.Join(dir, "index_"+strings.ToLower(examType)+".exix")
}

func (ix *Index) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	buf.WriteString(fileMagic)
	for _, v := range []uint32{fileVersion, uint32(ix.dim), uint32(len(ix.ids))} {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	for _, id := range ix.ids {
		if len(id) > maxIDLen {
			return 0, fmt.Errorf("id too long: %d bytes", len(id))
		}
		_ = binary.Write(&buf, binary.LittleEndian, uint16(len(id)))
		buf.WriteString(id)
	}
	if err := binary.Write(&buf, binary.LittleEndian, ix.vectors); err != nil {
		return 0, err
	}
	return buf.WriteTo(w)
}

// Read decodes an index; any structural problem is index_corrupt.
func Read(r io.Reader) (*Index, error) {
	br := bufio.NewReader(r)
	corrupt := func(format string, args ...any) error {
		return apierr.Newf(apierr.CodeIndexCorrupt, "index file: "+format, args...)
	}

	magic := make([]byte, len(fileMagic))
	if _, err := io.ReadFull(br, magic); err != nil || string(magic) != fileMagic {
		return nil, corrupt("bad magic")
	}
	var hdr [3]uint32
	if err := binary.Read(br, binary.LittleEndian, &hdr); err != nil {
		return nil, corrupt("short header: %v", err)
	}
	version, dim, count := hdr[0], hdr[1], hdr[2]
	if version != fileVersion {
		return nil, corrupt("unsupported version %d", version)
	}
	if dim == 0 || dim > maxDim {
		return nil, corrupt("invalid dim %d", dim)
	}
	if uint64(count)*uint64(dim) > maxValues {
		return nil, corrupt("%d vectors of dim %d exceed size limit", count, dim)
	}

	ix := &Index{dim: int(dim), ids: make([]string, 0, min(int(count), 1<<16))}
	for i := uint32(0); i < count; i++ {
		var n uint16
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, corrupt("id %d: %v", i, err)
		}
		id := make([]byte, n)
		if _, err := io.ReadFull(br, id); err != nil {
			return nil, corrupt("id %d: %v", i, err)
		}
		ix.ids = append(ix.ids, string(id))
	}
	ix.vectors = make([]float32, int(count)*int(dim))
	if err := binary.Read(br, binary.LittleEndian, ix.vectors); err != nil {
		return nil, corrupt("vectors: %v", err)
	}
	if _, err := br.ReadByte(); err != io.EOF {
		return nil, corrupt("trailing data")
	}
	return ix, nil
}

// Save replaces path atomically.
func (ix *Index) Save(path string) error {
	var buf bytes.Buffer
	if _, err := ix.WriteTo(&buf); err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

// Load reads the index at path. A missing file returns (nil, nil).
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeIndexCorrupt, fmt.Errorf("open index: %w", err))
	}
	defer f.Close()
	return Read(f)
}
