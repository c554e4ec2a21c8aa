package validators

var TruePtr = Pointer(true)
var FalsePtr = Pointer(false)

// Pointer returns a pointer to a copy of v. Module parameters use pointers for "leave unchanged".
func Pointer[T any](v T) *T {
	return &v
}

// Deref returns the value pointed to by p, or the zero value if p is nil
func Deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
