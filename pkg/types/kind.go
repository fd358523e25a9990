package types

import "fmt"

// Kind is the runtime type of a datum value.
type Kind string

const (
	KindBool  Kind = "bool"
	KindInt   Kind = "int"
	KindFloat Kind = "float"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindBool, KindInt, KindFloat:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("cannot parse '%s' as a Kind", s)
	}
}

func (k Kind) String() string {
	return string(k)
}
