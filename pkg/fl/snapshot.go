package fl

import (
	"fmt"
	"slices"
)

// Tensor is a dense float64 array in row-major order.
type Tensor struct {
	Shape []int     `json:"shape" cbor:"1,keyasint"`
	Data  []float64 `json:"data"  cbor:"2,keyasint"`
}

func NewTensor(data []float64, shape ...int) Tensor {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}

	return Tensor{
		Shape: slices.Clone(shape),
		Data:  slices.Clone(data),
	}
}

// Size is the number of elements the shape describes. An empty shape is a scalar.
func (t Tensor) Size() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}

	return n
}

func (t Tensor) Validate() error {
	for _, d := range t.Shape {
		if d < 0 {
			return fmt.Errorf("%w: negative dimension %d", ErrInvalidTensor, d)
		}
	}
	if t.Size() != len(t.Data) {
		return fmt.Errorf("%w: shape %v holds %d values, got %d", ErrInvalidTensor, t.Shape, t.Size(), len(t.Data))
	}

	return nil
}

func (t Tensor) Clone() Tensor {
	return Tensor{
		Shape: slices.Clone(t.Shape),
		Data:  slices.Clone(t.Data),
	}
}

// Snapshot is a named set of tensors. Snapshots are values: callers replace
// them rather than edit them, and every producer in this package returns a
// fresh copy.
type Snapshot map[string]Tensor

// Keys returns the tensor names in sorted order.
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	return keys
}

func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for k, t := range s {
		out[k] = t.Clone()
	}

	return out
}

func (s Snapshot) Validate() error {
	for _, k := range s.Keys() {
		if err := s[k].Validate(); err != nil {
			return fmt.Errorf("tensor %q: %w", k, err)
		}
	}

	return nil
}

// Conforms checks that s has exactly the tensor names and shapes of ref.
func (s Snapshot) Conforms(ref Snapshot) error {
	if len(s) != len(ref) {
		return fmt.Errorf("%w: expected %d tensors, got %d", ErrSchemaMismatch, len(ref), len(s))
	}
	for _, k := range ref.Keys() {
		t, ok := s[k]
		if !ok {
			return fmt.Errorf("%w: missing tensor %q", ErrSchemaMismatch, k)
		}
		if !slices.Equal(t.Shape, ref[k].Shape) {
			return fmt.Errorf("%w: tensor %q has shape %v, expected %v", ErrSchemaMismatch, k, t.Shape, ref[k].Shape)
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%w: tensor %q: %w", ErrSchemaMismatch, k, err)
		}
	}

	return nil
}

// Equal reports whether both snapshots hold the same tensors with identical values.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s) != len(other) {
		return false
	}
	for k, t := range s {
		o, ok := other[k]
		if !ok {
			return false
		}
		if !slices.Equal(t.Shape, o.Shape) || !slices.Equal(t.Data, o.Data) {
			return false
		}
	}

	return true
}
