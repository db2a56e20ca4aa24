package core

import "gaugecode-go/errcode"

// As[T] asserts a control payload to T. A non-nil *T is dereferenced.
// A nil payload is treated as the zero value of T.
func As[T any](v any) (T, errcode.Code) {
	var zero T
	switch x := v.(type) {
	case nil:
		return zero, ""
	case T:
		return x, ""
	case *T:
		if x == nil {
			return zero, errcode.InvalidPayload
		}
		return *x, ""
	default:
		return zero, errcode.InvalidPayload
	}
}
