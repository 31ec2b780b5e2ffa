package codec

import (
	"encoding/binary"
	"math"

	"github.com/DataDog/sketches-go/ddsketch"
	"github.com/DataDog/sketches-go/ddsketch/pb/sketchpb"
	"google.golang.org/protobuf/proto"

	"github.com/xtxerr/rrdb/config"
	"github.com/xtxerr/rrdb/internal/errors"
	"github.com/xtxerr/rrdb/internal/storage/aggregate"
	"github.com/xtxerr/rrdb/internal/storage/buffer"
	"github.com/xtxerr/rrdb/internal/storage/types"
)

// Payload encoding format (binary, little-endian):
//
//	Configuration:
//	- DatasetCount (4 bytes)
//	- SampleCapacity (4 bytes)
//	- CreationTimeMs (8 bytes)
//	- PercentileAccuracy (8 bytes, float64)
//	- Transforms length (4 bytes) + canonical token string
//	Ring:
//	- Pushed (8 bytes)
//	- Sample count (4 bytes)
//	- Per sample: TimestampMs (8 bytes) + DatasetCount values (8 bytes each)
//	Windows:
//	- Window count (4 bytes)
//	- Per window: Granularity (1 byte) + Retention (4 bytes) + open bucket
//	  + history count (4 bytes) + history buckets, oldest first
//	Bucket:
//	- Start (8 bytes) + Arrivals (8 bytes)
//	- Per dataset: Count (8) + Sum (8) + Min (8) + Max (8) + sketch flag (1)
//	  [+ sketch length (4) + DDSketch protobuf]

const (
	sampleFixedSize = 8
	bucketFixedSize = 16
	accFixedSize    = 33
)

// encodeState encodes a database snapshot into a payload.
func encodeState(st *State) ([]byte, error) {
	samples := st.Ring.Samples()

	// Estimate size: samples dominate for most files
	buf := make([]byte, 0, 64+len(samples)*(sampleFixedSize+8*st.DatasetCount))

	buf = binary.LittleEndian.AppendUint32(buf, uint32(st.DatasetCount))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(st.SampleCapacity))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(st.CreationTimeMs))
	buf = appendFloat(buf, st.PercentileAccuracy)
	buf = appendString(buf, types.FormatTransforms(st.Transforms))

	buf = binary.LittleEndian.AppendUint64(buf, uint64(st.Ring.Pushed()))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(samples)))
	for _, s := range samples {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(s.TimestampMs))
		for _, v := range s.Values {
			buf = appendFloat(buf, v)
		}
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(st.Windows)))
	for _, w := range st.Windows {
		buf = append(buf, byte(w.Granularity))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(w.Retention))

		var err error
		if buf, err = appendBucket(buf, &w.Open); err != nil {
			return nil, err
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(w.History)))
		for i := range w.History {
			if buf, err = appendBucket(buf, &w.History[i]); err != nil {
				return nil, err
			}
		}
	}

	return buf, nil
}

func appendBucket(buf []byte, b *aggregate.Bucket) ([]byte, error) {
	buf = binary.LittleEndian.AppendUint64(buf, uint64(b.Start))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(b.Arrivals))

	for i := range b.Datasets {
		acc := &b.Datasets[i]
		buf = binary.LittleEndian.AppendUint64(buf, uint64(acc.Count))
		buf = appendFloat(buf, acc.Sum)
		buf = appendFloat(buf, acc.Min)
		buf = appendFloat(buf, acc.Max)

		sketch := acc.Sketch()
		if sketch == nil {
			buf = append(buf, 0)
			continue
		}
		data, err := proto.MarshalOptions{Deterministic: true}.Marshal(sketch.ToProto())
		if err != nil {
			return nil, errors.Wrap(err, "marshal sketch")
		}
		buf = append(buf, 1)
		buf = appendBytes(buf, data)
	}
	return buf, nil
}

// decodeState decodes a payload into a database snapshot. Any structural
// inconsistency is reported as ErrCorruptState.
func decodeState(data []byte) (*State, error) {
	d := &decoder{data: data}
	st := &State{}

	st.DatasetCount = int(d.u32("dataset count"))
	st.SampleCapacity = int(d.u32("sample capacity"))
	st.CreationTimeMs = d.i64("creation time")
	st.PercentileAccuracy = d.f64("percentile accuracy")
	tokens := string(d.bytes("transforms"))
	if d.err != nil {
		return nil, d.err
	}

	if st.DatasetCount < 1 || st.DatasetCount > config.MaxDatasets {
		return nil, errors.NewCorrupt("dataset count %d out of range", st.DatasetCount)
	}
	if st.SampleCapacity < 1 || st.SampleCapacity > config.MaxSampleCapacity {
		return nil, errors.NewCorrupt("sample capacity %d out of range", st.SampleCapacity)
	}
	if err := aggregate.CheckAccuracy(st.PercentileAccuracy); err != nil {
		return nil, errors.NewCorrupt("%v", err)
	}

	transforms, err := types.ParseTransforms(tokens)
	if err != nil {
		return nil, errors.NewCorrupt("transforms %q: %v", tokens, err)
	}
	for _, t := range transforms {
		if err := t.Validate(st.DatasetCount); err != nil {
			return nil, errors.NewCorrupt("transforms: %v", err)
		}
	}
	st.Transforms = transforms
	layout := st.Layout()

	// Ring
	pushed := d.i64("ring pushes")
	count := int(d.u32("ring length"))
	if d.err != nil {
		return nil, d.err
	}
	if count > st.SampleCapacity || int64(count) > pushed {
		return nil, errors.NewCorrupt("ring length %d exceeds capacity %d or pushes %d",
			count, st.SampleCapacity, pushed)
	}
	if !d.fits(count, sampleFixedSize+8*st.DatasetCount) {
		return nil, errors.NewCorrupt("ring: data too short for %d samples", count)
	}
	samples := make([]types.Sample, count)
	for i := range samples {
		samples[i].TimestampMs = d.i64("sample timestamp")
		samples[i].Values = make([]float64, st.DatasetCount)
		for j := range samples[i].Values {
			samples[i].Values[j] = d.f64("sample value")
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	st.Ring = buffer.Restore(st.SampleCapacity, samples, pushed)

	// Windows
	want := types.Granularities(transforms)
	nwin := int(d.u32("window count"))
	if d.err != nil {
		return nil, d.err
	}
	if nwin != len(want) {
		return nil, errors.NewCorrupt("have %d windows, transforms reference %d", nwin, len(want))
	}
	for i := 0; i < nwin; i++ {
		g := types.Granularity(d.u8("granularity"))
		retention := int(d.u32("retention"))
		if d.err != nil {
			return nil, d.err
		}
		if g != want[i] {
			return nil, errors.NewCorrupt("window %d is %s, want %s", i, g, want[i])
		}
		if retention > config.MaxRetention {
			return nil, errors.NewCorrupt("window %s: retention %d out of range", g, retention)
		}

		open, err := d.bucket(layout)
		if err != nil {
			return nil, err
		}
		nhist := int(d.u32("history length"))
		if d.err != nil {
			return nil, d.err
		}
		if nhist > retention || !d.fits(nhist, bucketFixedSize+accFixedSize*st.DatasetCount) {
			return nil, errors.NewCorrupt("window %s: bad history length %d", g, nhist)
		}
		history := make([]aggregate.Bucket, nhist)
		for j := range history {
			if history[j], err = d.bucket(layout); err != nil {
				return nil, err
			}
		}

		w, err := aggregate.RestoreWindow(g, retention, layout, open, history)
		if err != nil {
			return nil, err
		}
		st.Windows = append(st.Windows, w)
	}

	if d.off != len(d.data) {
		return nil, errors.NewCorrupt("%d trailing bytes", len(d.data)-d.off)
	}
	return st, nil
}

// decoder reads little-endian fields. The first short read is kept in err
// and turns every later read into a no-op.
type decoder struct {
	data []byte
	off  int
	err  error
}

func (d *decoder) need(n int, what string) bool {
	if d.err != nil {
		return false
	}
	if n < 0 || d.off+n > len(d.data) {
		d.err = errors.NewCorrupt("data too short for %s", what)
		return false
	}
	return true
}

// fits reports whether n records of at least size bytes can remain.
func (d *decoder) fits(n, size int) bool {
	return n >= 0 && n <= (len(d.data)-d.off)/size
}

func (d *decoder) u8(what string) uint8 {
	if !d.need(1, what) {
		return 0
	}
	v := d.data[d.off]
	d.off++
	return v
}

func (d *decoder) u32(what string) uint32 {
	if !d.need(4, what) {
		return 0
	}
	v := binary.LittleEndian.Uint32(d.data[d.off:])
	d.off += 4
	return v
}

func (d *decoder) u64(what string) uint64 {
	if !d.need(8, what) {
		return 0
	}
	v := binary.LittleEndian.Uint64(d.data[d.off:])
	d.off += 8
	return v
}

func (d *decoder) i64(what string) int64 {
	return int64(d.u64(what))
}

func (d *decoder) f64(what string) float64 {
	return math.Float64frombits(d.u64(what))
}

func (d *decoder) bytes(what string) []byte {
	n := int(d.u32(what + " length"))
	if !d.need(n, what) {
		return nil
	}
	v := d.data[d.off : d.off+n]
	d.off += n
	return v
}

func (d *decoder) bucket(layout aggregate.Layout) (aggregate.Bucket, error) {
	b := aggregate.Bucket{
		Start:    d.i64("bucket start"),
		Arrivals: d.i64("bucket arrivals"),
		Datasets: make([]aggregate.Accumulator, layout.Datasets),
	}
	if d.err == nil && b.Arrivals < 0 {
		return b, errors.NewCorrupt("bucket %d: negative arrivals", b.Start)
	}

	for i := range b.Datasets {
		acc := &b.Datasets[i]
		acc.Count = d.i64("accumulator count")
		acc.Sum = d.f64("accumulator sum")
		acc.Min = d.f64("accumulator min")
		acc.Max = d.f64("accumulator max")
		hasSketch := d.u8("sketch flag")
		if d.err != nil {
			return b, d.err
		}
		if acc.Count < 0 || acc.Count > b.Arrivals {
			return b, errors.NewCorrupt("bucket %d dataset %d: count %d with %d arrivals",
				b.Start, i, acc.Count, b.Arrivals)
		}
		if hasSketch > 1 || (hasSketch == 1) != layout.TracksSketch(i) {
			return b, errors.NewCorrupt("bucket %d dataset %d: unexpected sketch flag %d", b.Start, i, hasSketch)
		}
		if hasSketch == 0 {
			continue
		}

		raw := d.bytes("sketch")
		if d.err != nil {
			return b, d.err
		}
		var pb sketchpb.DDSketch
		if err := proto.Unmarshal(raw, &pb); err != nil {
			return b, errors.NewCorrupt("bucket %d dataset %d: sketch: %v", b.Start, i, err)
		}
		sketch, err := ddsketch.FromProto(&pb)
		if err != nil {
			return b, errors.NewCorrupt("bucket %d dataset %d: sketch: %v", b.Start, i, err)
		}
		acc.SetSketch(sketch)
	}
	return b, d.err
}

func appendFloat(buf []byte, v float64) []byte {
	return binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
}

// appendString appends a length-prefixed string to the buffer.
func appendString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func appendBytes(buf []byte, b []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(b)))
	return append(buf, b...)
}
