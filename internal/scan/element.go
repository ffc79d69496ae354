package scan

// Element is the set of numeric types a sequence may hold.
//
// Integer additions are exact; floating-point additions are only approximately
// associative, so a parallel scan of floats matches the sequential one within a
// tolerance, not bit for bit.
type Element interface {
	~float32 | ~float64 | ~int32 | ~int64 | ~uint32 | ~uint64
}
