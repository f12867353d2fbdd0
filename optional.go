package stepbox

// Optional is a value that may be absent. The zero value is empty.
type Optional[T comparable] struct {
	value  T
	exists bool
}

func Some[T comparable](value T) Optional[T] {
	return Optional[T]{value: value, exists: true}
}

func None[T comparable]() Optional[T] {
	return Optional[T]{}
}

func (o Optional[T]) Unpack() (T, bool) {
	return o.value, o.exists
}

// Value panics when the optional is empty; use Unpack when absence is a
// normal outcome.
func (o Optional[T]) Value() T {
	if !o.exists {
		panic("access value of empty Optional")
	}
	return o.value
}

func (o Optional[T]) Empty() bool {
	return !o.exists
}

func (o Optional[T]) Equals(value T) bool {
	return o.exists && o.value == value
}

func (o Optional[T]) Or(fallback T) T {
	if o.exists {
		return o.value
	}
	return fallback
}

// Empty optionals marshal as null so sparse pattern grids stay readable.
func (o Optional[T]) MarshalYAML() (any, error) {
	if !o.exists {
		return nil, nil
	}
	return o.value, nil
}

func (o *Optional[T]) UnmarshalYAML(unmarshal func(any) error) error {
	var v *T
	if err := unmarshal(&v); err != nil {
		return err
	}
	if v == nil {
		*o = Optional[T]{}
	} else {
		*o = Some(*v)
	}
	return nil
}
