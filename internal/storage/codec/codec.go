// Package codec persists a whole database as a single file.
//
// File format:
//   - Header (24 bytes): magic (8) + version (4) + flags (4) + payload
//     length (4) + CRC-32 IEEE of the stored payload (4)
//   - Payload: see encoding.go; snappy-compressed when flag bit 0 is set
//
// Save writes a temporary file next to the destination and renames it into
// place, so readers see either the old or the new snapshot.
package codec

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/golang/snappy"

	"github.com/xtxerr/rrdb/config"
	"github.com/xtxerr/rrdb/internal/errors"
	"github.com/xtxerr/rrdb/internal/logging"
	"github.com/xtxerr/rrdb/internal/storage/aggregate"
	"github.com/xtxerr/rrdb/internal/storage/buffer"
	"github.com/xtxerr/rrdb/internal/storage/types"
)

var log = logging.Component("codec")

const (
	fileMagic  = 0x454C494642445252 // "RRDBFILE" little-endian
	headerSize = 24

	flagSnappy = 1 << 0
	knownFlags = flagSnappy
)

// Compression names accepted by Options.
const (
	CompressionNone   = "none"
	CompressionSnappy = "snappy"
)

// State is the complete persisted state of one database.
type State struct {
	// Version is the file format version the state was read from.
	Version uint32

	DatasetCount       int
	SampleCapacity     int
	CreationTimeMs     int64
	PercentileAccuracy float64
	Transforms         []types.Transform

	Ring    *buffer.SampleRing
	Windows []*aggregate.Window
}

// Layout returns the bucket layout implied by the configuration.
func (st *State) Layout() aggregate.Layout {
	l := aggregate.Layout{
		Datasets: st.DatasetCount,
		Sketches: make([]bool, st.DatasetCount),
		Accuracy: st.PercentileAccuracy,
	}
	for d := range l.Sketches {
		l.Sketches[d] = types.UsesPercentiles(st.Transforms, d)
	}
	return l
}

// Options configures Save.
type Options struct {
	// Compression is "snappy" or "none".
	// Default: snappy
	Compression string

	// Fsync syncs the temporary file and the directory around the rename.
	// Default: true
	Fsync bool

	// FileMode is the permission of the written file.
	// Default: 0664
	FileMode fs.FileMode
}

// DefaultOptions returns default save options.
func DefaultOptions() Options {
	return Options{
		Compression: config.DefaultCompression,
		Fsync:       config.DefaultFsync,
		FileMode:    config.DefaultFileMode,
	}
}

// Encode renders st as a complete file image.
func Encode(st *State, opts Options) ([]byte, error) {
	payload, err := encodeState(st)
	if err != nil {
		return nil, err
	}

	var flags uint32
	switch opts.Compression {
	case CompressionSnappy, "":
		payload = snappy.Encode(nil, payload)
		flags |= flagSnappy
	case CompressionNone:
	default:
		return nil, errors.NewValidation("compression", opts.Compression)
	}

	buf := make([]byte, headerSize, headerSize+len(payload))
	binary.LittleEndian.PutUint64(buf[0:8], fileMagic)
	binary.LittleEndian.PutUint32(buf[8:12], config.FileVersion)
	binary.LittleEndian.PutUint32(buf[12:16], flags)
	binary.LittleEndian.PutUint32(buf[16:20], uint32(len(payload)))
	binary.LittleEndian.PutUint32(buf[20:24], crc32.ChecksumIEEE(payload))
	return append(buf, payload...), nil
}

// Decode parses a complete file image.
func Decode(data []byte) (*State, error) {
	if len(data) < headerSize {
		return nil, errors.NewCorrupt("file too short for header: %d bytes", len(data))
	}

	magic := binary.LittleEndian.Uint64(data[0:8])
	if magic != fileMagic {
		return nil, errors.NewCorrupt("invalid magic: expected %x, got %x", uint64(fileMagic), magic)
	}
	version := binary.LittleEndian.Uint32(data[8:12])
	if version != config.FileVersion {
		return nil, errors.NewCorrupt("unsupported version: %d", version)
	}
	flags := binary.LittleEndian.Uint32(data[12:16])
	if flags&^knownFlags != 0 {
		return nil, errors.NewCorrupt("unknown flags: %#x", flags)
	}
	length := binary.LittleEndian.Uint32(data[16:20])
	if int64(length) != int64(len(data)-headerSize) {
		return nil, errors.NewCorrupt("payload length %d, file holds %d", length, len(data)-headerSize)
	}

	payload := data[headerSize:]
	if crc := crc32.ChecksumIEEE(payload); crc != binary.LittleEndian.Uint32(data[20:24]) {
		return nil, errors.NewCorrupt("checksum mismatch")
	}

	if flags&flagSnappy != 0 {
		var err error
		payload, err = snappy.Decode(nil, payload)
		if err != nil {
			return nil, errors.NewCorrupt("decompress: %v", err)
		}
	}

	st, err := decodeState(payload)
	if err != nil {
		return nil, err
	}
	st.Version = version
	return st, nil
}

// Load reads the database at path. A missing file is ErrNotFound; anything
// unreadable is ErrCorruptState.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewNotFound("database", path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	st, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	log.Debug("loaded", "path", path, "bytes", len(data), "samples", st.Ring.Len())
	return st, nil
}

// Save atomically replaces the file at path with st. On failure the
// previous file is left untouched and no temporary file remains.
func Save(path string, st *State, opts Options) error {
	data, err := Encode(st, opts)
	if err != nil {
		return err
	}
	if err := writeAtomic(path, data, opts); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	log.Debug("saved", "path", path, "bytes", len(data), "compression", opts.Compression)
	return nil
}

func writeAtomic(path string, data []byte, opts Options) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	f, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if opts.Fsync {
		if err = f.Sync(); err != nil {
			return fmt.Errorf("sync temp file: %w", err)
		}
	}
	mode := opts.FileMode
	if mode == 0 {
		mode = config.DefaultFileMode
	}
	if err = f.Chmod(mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	if opts.Fsync {
		if d, derr := os.Open(dir); derr == nil {
			if serr := d.Sync(); serr != nil {
				log.Warn("directory sync failed", "dir", dir, "error", serr)
			}
			d.Close()
		}
	}
	return nil
}
