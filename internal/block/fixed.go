package block

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
)

var order = binary.LittleEndian

// Marshal writes the binary image of a fixed-size value (struct or array of fixed-size
// fields).
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(binary.Size(v))
	if err := binary.Write(&buf, order, v); err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes data into the value pointed to by dst. The stored size must equal the
// fixed size of *dst; on any mismatch *dst is zeroed and false is returned. dst is never
// partially written.
func Unmarshal(data []byte, dst any) bool {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return false
	}
	want := binary.Size(dst)
	if want < 0 || len(data) != want {
		rv.Elem().SetZero()
		return false
	}
	tmp := reflect.New(rv.Elem().Type())
	if err := binary.Read(bytes.NewReader(data), order, tmp.Interface()); err != nil {
		rv.Elem().SetZero()
		return false
	}
	rv.Elem().Set(tmp.Elem())
	return true
}

// EncodeComplex stores response points as consecutive real/imaginary float64 pairs.
func EncodeComplex(points []complex128) []byte {
	if len(points) == 0 {
		return nil
	}
	out := make([]byte, 16*len(points))
	for i, p := range points {
		order.PutUint64(out[16*i:], math.Float64bits(real(p)))
		order.PutUint64(out[16*i+8:], math.Float64bits(imag(p)))
	}
	return out
}

// DecodeComplex is the inverse of EncodeComplex. Trailing bytes that do not form a whole
// point are ignored.
func DecodeComplex(data []byte) []complex128 {
	n := len(data) / 16
	if n == 0 {
		return nil
	}
	out := make([]complex128, n)
	for i := range out {
		re := math.Float64frombits(order.Uint64(data[16*i:]))
		im := math.Float64frombits(order.Uint64(data[16*i+8:]))
		out[i] = complex(re, im)
	}
	return out
}

// EncodeFloats stores stimulus points as consecutive float64 values.
func EncodeFloats(values []float64) []byte {
	if len(values) == 0 {
		return nil
	}
	out := make([]byte, 8*len(values))
	for i, v := range values {
		order.PutUint64(out[8*i:], math.Float64bits(v))
	}
	return out
}

// DecodeFloats is the inverse of EncodeFloats.
func DecodeFloats(data []byte) []float64 {
	n := len(data) / 8
	if n == 0 {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(order.Uint64(data[8*i:]))
	}
	return out
}
