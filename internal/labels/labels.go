// Package labels maps model output indices to the street-facility names shown to users.
package labels

import (
	"errors"
	"fmt"
)

// ErrUnknownClass is returned for class ids outside the table.
var ErrUnknownClass = errors.New("unknown class id")

// Registry is an immutable id to label table. It is safe for concurrent use.
type Registry struct {
	labels []string
}

var defaultLabels = []string{
	"소화전",
	"교차로 모퉁이",
	"버스 정류소",
	"어린이 보호 구역",
	"흰색 실선",
	"황색 점선",
	"황색 복선",
	"황색 실선",
}

// Default returns the registry for the street-facility classifier.
func Default() *Registry {
	return New(defaultLabels)
}

// New builds a registry where the label for class i is labels[i].
func New(labels []string) *Registry {
	return &Registry{labels: append([]string(nil), labels...)}
}

func (r *Registry) Lookup(classID int) (string, error) {
	if classID < 0 || classID >= len(r.labels) {
		return "", fmt.Errorf("%w: %d", ErrUnknownClass, classID)
	}
	return r.labels[classID], nil
}

func (r *Registry) Len() int {
	return len(r.labels)
}
