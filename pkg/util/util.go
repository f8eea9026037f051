package util

import "fmt"

// Map applies a transformation function to each element of a slice and returns a new slice
// with the transformed values. This is a generic implementation of the map higher-order function.
//
// Type Parameters:
//   - A: The type of elements in the input slice
//   - B: The type of elements in the output slice
//
// Parameters:
//   - coll: The input slice to transform
//   - mapper: Function that transforms each element and receives the element's index
//
// Returns:
//   - []B: A new slice containing the transformed elements
func Map[A any, B any](coll []A, mapper func(i A, index uint64) B) []B {
	out := make([]B, len(coll))
	for i, item := range coll {
		out[i] = mapper(item, uint64(i))
	}
	return out
}

// MapErr is Map for mappers that can fail. The first error aborts the whole mapping
// and is returned together with the index of the offending element.
func MapErr[A any, B any](coll []A, mapper func(i A, index uint64) (B, error)) ([]B, error) {
	out := make([]B, len(coll))
	for i, item := range coll {
		mapped, err := mapper(item, uint64(i))
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = mapped
	}
	return out, nil
}

// Zip pairs two slices element by element. Unlike a naive zip it refuses slices of
// different length instead of truncating to the shorter one.
func Zip[A any, B any](left []A, right []B) ([]Pair[A, B], error) {
	if len(left) != len(right) {
		return nil, fmt.Errorf("length mismatch: %d != %d", len(left), len(right))
	}
	out := make([]Pair[A, B], len(left))
	for i := range left {
		out[i] = Pair[A, B]{First: left[i], Second: right[i]}
	}
	return out, nil
}

// Pair holds two values produced by Zip.
type Pair[A any, B any] struct {
	First  A
	Second B
}
