package bloom

import (
	"fmt"

	"github.com/linkforge/clk/pkg/bitarray"
)

// Fold applies one XOR-fold step `times` times: each step splits the
// vector into two equal halves and outputs their XOR, halving the
// length. It is applied strictly after all fields have been inserted,
// never between fields.
func Fold(bv *bitarray.BitArray, times int) (*bitarray.BitArray, error) {
	if times < 0 {
		return nil, fmt.Errorf("bloom: fold count must be non-negative, got %d", times)
	}
	current := bv
	for i := 0; i < times; i++ {
		if current.Len()%2 != 0 {
			return nil, fmt.Errorf("bloom: cannot fold a vector of odd length %d", current.Len())
		}
		half := current.Len() / 2
		a, err := bitarray.New(half)
		if err != nil {
			return nil, err
		}
		b, err := bitarray.New(half)
		if err != nil {
			return nil, err
		}
		for i := 0; i < half; i++ {
			if current.Get(i) {
				a.Set(i)
			}
			if current.Get(i + half) {
				b.Set(i)
			}
		}
		folded, err := bitarray.Xor(a, b)
		if err != nil {
			return nil, err
		}
		current = folded
	}
	return current, nil
}
