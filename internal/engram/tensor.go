package engram

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// tensorMagic and tensorVersion identify the binary tensor wire format:
// magic (5 bytes) + version (uint32 LE) + rank (uint32 LE) + rank dims
// (uint32 LE each) + flat row-major data (float32 LE each).
var tensorMagic = [5]byte{'T', 'P', 'A', 'Y', 0}

const tensorVersion uint32 = 1

// TensorPayload is a dense, row-major float32 tensor of arbitrary rank,
// the wire format backing feature-vector and embedding engrams.
type TensorPayload struct {
	Dims []int
	Data []float32
}

// NewTensorPayload validates that len(data) matches the product of dims
// and returns a TensorPayload.
func NewTensorPayload(dims []int, data []float32) (*TensorPayload, error) {
	want := 1
	for _, d := range dims {
		want *= d
	}
	if want != len(data) {
		return nil, fmt.Errorf("%w: dims %v imply %d elements, got %d", ErrInvalidPayload, dims, want, len(data))
	}
	return &TensorPayload{Dims: dims, Data: data}, nil
}

// ToBytes encodes the tensor to its binary wire form.
func (t *TensorPayload) ToBytes() []byte {
	buf := &bytes.Buffer{}
	buf.Write(tensorMagic[:])
	binary.Write(buf, binary.LittleEndian, tensorVersion)
	binary.Write(buf, binary.LittleEndian, uint32(len(t.Dims)))
	for _, d := range t.Dims {
		binary.Write(buf, binary.LittleEndian, uint32(d))
	}
	for _, v := range t.Data {
		binary.Write(buf, binary.LittleEndian, v)
	}
	return buf.Bytes()
}

// TensorFromBytes decodes a TensorPayload from its binary wire form.
func TensorFromBytes(raw []byte) (*TensorPayload, error) {
	if len(raw) < 5+4+4 {
		return nil, fmt.Errorf("%w: tensor payload too short", ErrInvalidPayload)
	}
	if !bytes.Equal(raw[:5], tensorMagic[:]) {
		return nil, fmt.Errorf("%w: bad tensor magic", ErrInvalidPayload)
	}
	r := bytes.NewReader(raw[5:])

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if version != tensorVersion {
		return nil, fmt.Errorf("%w: unsupported tensor version %d", ErrInvalidPayload, version)
	}

	var rank uint32
	if err := binary.Read(r, binary.LittleEndian, &rank); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	dims := make([]int, rank)
	total := 1
	for i := range dims {
		var d uint32
		if err := binary.Read(r, binary.LittleEndian, &d); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		dims[i] = int(d)
		total *= int(d)
	}

	data := make([]float32, total)
	if err := binary.Read(r, binary.LittleEndian, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &TensorPayload{Dims: dims, Data: data}, nil
}
