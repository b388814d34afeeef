package utils

func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}

// Copy returns a pointer to a copy of *v, or nil when v is nil. Records use it
// so clones never share nullable timestamps with the original.
func Copy[T any](v *T) *T {
	if v == nil {
		return nil
	}
	return Ptr(*v)
}
