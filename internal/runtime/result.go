package runtime

import (
	"github.com/google/uuid"

	"github.com/funvibe/cascade/internal/eval"
)

// Result is the output bundle of one call. An exported formula appears in
// Modules on success and in Errors (keyed "module.formula") on failure;
// skipped steps appear in neither. Err is set only when the whole call
// failed (timeout, argument mismatch).
type Result struct {
	ID      uuid.UUID
	Modules map[string]map[string]eval.Object
	Errors  map[string]*eval.Error
	Err     *eval.Error
}

func newResult() *Result {
	return &Result{
		ID:      uuid.New(),
		Modules: make(map[string]map[string]eval.Object),
		Errors:  make(map[string]*eval.Error),
	}
}

func (r *Result) setExport(module, formula string, value eval.Object) {
	m, ok := r.Modules[module]
	if !ok {
		m = make(map[string]eval.Object)
		r.Modules[module] = m
	}
	m[formula] = value
}

func (r *Result) setError(module, formula string, err *eval.Error) {
	r.Errors[module+"."+formula] = err
}
