package service

// Value dereferences an optional parameter bound by the generated wrapper, zero when it is absent.
func Value[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
