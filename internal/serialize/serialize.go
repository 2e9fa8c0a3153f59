// Package serialize reads and writes matrices as a CBOR envelope holding
// zstd-compressed coordinate planes. The stored form is format-independent:
// pending work is assembled and the entries written as sorted tuples, so a
// reloaded matrix is rebuilt and then conformed by its own control settings.
package serialize

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/cjnolet/GraphBLAS/format"
	"github.com/cjnolet/GraphBLAS/internal/alloc"
	"github.com/cjnolet/GraphBLAS/internal/matrix"
)

const envelopeVersion = 1

// ErrBadEnvelope reports an unreadable or version-incompatible stream.
var ErrBadEnvelope = errors.New("serialize: bad envelope")

type envelope struct {
	Version      int     `cbor:"v"`
	Vlen         int64   `cbor:"vlen"`
	Vdim         int64   `cbor:"vdim"`
	Layout       uint8   `cbor:"layout"`
	Control      uint8   `cbor:"control"`
	BitmapSwitch float64 `cbor:"bswitch"`
	HyperSwitch  float64 `cbor:"hswitch"`
	NVals        int64   `cbor:"nvals"`

	// Each plane is a zstd-compressed CBOR array.
	Rows []byte `cbor:"rows"`
	Cols []byte `cbor:"cols"`
	Vals []byte `cbor:"vals"`
}

func compressPlane(v any) ([]byte, error) {
	raw, err := cbor.Marshal(v)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(raw, nil), nil
}

func expandPlane(buf []byte, v any) error {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return err
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(buf, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}
	if err := cbor.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}
	return nil
}

// Write serializes m to w. Pending work is assembled first, so the stream
// always holds the matrix's settled contents.
func Write[T any](w io.Writer, m *matrix.Matrix[T], a alloc.Allocator) error {
	rows, cols, vals, err := m.ExtractTuples(a)
	if err != nil {
		return err
	}

	env := envelope{
		Version:      envelopeVersion,
		Vlen:         m.Vlen(),
		Vdim:         m.Vdim(),
		Layout:       uint8(m.Layout()),
		Control:      uint8(m.Control()),
		BitmapSwitch: m.BitmapSwitch(),
		HyperSwitch:  m.HyperSwitch(),
		NVals:        int64(len(rows)),
	}
	if env.Rows, err = compressPlane(rows); err != nil {
		return err
	}
	if env.Cols, err = compressPlane(cols); err != nil {
		return err
	}
	if env.Vals, err = compressPlane(vals); err != nil {
		return err
	}
	return cbor.NewEncoder(w).Encode(env)
}

// Read deserializes a matrix from r. The result is left in sparse form with
// the stored control and switches; conforming it is the caller's choice.
func Read[T any](r io.Reader, a alloc.Allocator) (*matrix.Matrix[T], error) {
	var env envelope
	if err := cbor.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}
	if env.Version != envelopeVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadEnvelope, env.Version)
	}
	if env.Vlen < 0 || env.Vdim < 0 || env.NVals < 0 {
		return nil, fmt.Errorf("%w: negative dimensions", ErrBadEnvelope)
	}

	var rows, cols []int64
	var vals []T
	if err := expandPlane(env.Rows, &rows); err != nil {
		return nil, err
	}
	if err := expandPlane(env.Cols, &cols); err != nil {
		return nil, err
	}
	if err := expandPlane(env.Vals, &vals); err != nil {
		return nil, err
	}
	if int64(len(rows)) != env.NVals || int64(len(cols)) != env.NVals || int64(len(vals)) != env.NVals {
		return nil, fmt.Errorf("%w: plane length mismatch", ErrBadEnvelope)
	}
	for q := range rows {
		if rows[q] < 0 || rows[q] >= env.Vlen || cols[q] < 0 || cols[q] >= env.Vdim {
			return nil, fmt.Errorf("%w: entry %d at (%d, %d) outside %dx%d",
				ErrBadEnvelope, q, rows[q], cols[q], env.Vlen, env.Vdim)
		}
	}

	m := matrix.New[T](env.Vlen, env.Vdim)
	m.SetLayout(format.Layout(env.Layout))
	m.SetControl(format.Control(env.Control))
	m.SetBitmapSwitch(env.BitmapSwitch)
	m.SetHyperSwitch(env.HyperSwitch)
	if err := m.Build(a, rows, cols, vals, nil); err != nil {
		return nil, err
	}
	return m, nil
}
