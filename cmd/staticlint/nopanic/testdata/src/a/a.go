package a

import "errors"

func Parse(s string) (int, error) {
	if s == "" {
		panic("empty") // want "panic in library code"
	}
	return len(s), nil
}

func MustParse(s string) int {
	n, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return n
}

func deferred() {
	defer func() {
		panic(errors.New("late")) // want "panic in library code"
	}()
}

type panicker struct{}

func (panicker) panic(string) {}

func shadowed() {
	var p panicker
	p.panic("not the builtin")
}

func localShadow() {
	panic := func(string) {}
	panic("not the builtin either")
}
