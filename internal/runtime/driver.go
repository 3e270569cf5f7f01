package runtime

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/funvibe/cascade/internal/eval"
	"github.com/funvibe/cascade/internal/planner"
)

// Call executes the program with the given argument bindings, one value
// per declared argument in declaration order. The context bounds the whole
// call: on expiry the bundle carries Error{Timeout} and in-flight async
// steps are detached.
func (e *Executable) Call(ctx context.Context, args []eval.Object) *Result {
	result := newResult()

	if len(args) != len(e.argOrder) {
		result.Err = eval.NewError(eval.Internal,
			"argument count mismatch: program declares %d, call provides %d", len(e.argOrder), len(args))
		return result
	}

	st := &callState{
		slots: make([]eval.Object, e.slotCount),
		skip:  make([]bool, len(e.steps)),
	}
	for i := range st.skip {
		st.skip[i] = true
	}

	// Seed argument, constant and module-exports slots.
	for i, sym := range e.argOrder {
		st.slots[sym.Slot] = args[i]
	}
	for slot, value := range e.constants {
		st.slots[slot] = value
	}
	exports := make(map[int]*eval.Record)
	for _, ms := range e.Registry.ModuleScopes() {
		record := eval.NewRecord()
		st.slots[ms.Exports.Slot] = record
		exports[ms.Exports.Slot] = record
	}

	for _, group := range e.groups {
		if ctx.Err() != nil {
			result.Err = eval.NewError(eval.Timeout, "call timed out")
			return result
		}
		e.runGroup(ctx, group, st, exports, result)
	}

	if ctx.Err() != nil {
		result.Err = eval.NewError(eval.Timeout, "call timed out")
	}
	return result
}

// runGroup launches the group's async steps, runs its sync steps, then
// joins at the barrier. Post-actions all run on the driver goroutine: the
// errgroup wait is the happens-before edge between a group and its
// successor, so the skip list needs no locking.
func (e *Executable) runGroup(ctx context.Context, group []*compiledStep, st *callState, exports map[int]*eval.Record, result *Result) {
	type outcome struct {
		cs    *compiledStep
		value eval.Object
	}

	asyncResults := make([]outcome, 0, len(group))
	var eg errgroup.Group

	var launched []*compiledStep
	for _, cs := range group {
		if cs.step.Kind != planner.Async {
			continue
		}
		if e.shouldSkip(cs, st) {
			continue
		}
		launched = append(launched, cs)
	}
	resultsCh := make(chan outcome, len(launched))
	for _, cs := range launched {
		cs := cs
		eg.Go(func() error {
			v := cs.run(st)
			if p, ok := v.(*eval.Pending); ok {
				v = p.Await(ctx)
			}
			resultsCh <- outcome{cs: cs, value: v}
			return nil
		})
	}

	// Sync steps run in id order on the driver goroutine. A sync step may
	// still yield a Pending (a host function's deferred result); it joins
	// the barrier with the async steps.
	var syncPending []outcome
	for _, cs := range group {
		if cs.step.Kind != planner.Sync {
			continue
		}
		if e.shouldSkip(cs, st) {
			continue
		}
		v := cs.run(st)
		if p, ok := v.(*eval.Pending); ok {
			syncPending = append(syncPending, outcome{cs: cs, value: p})
			continue
		}
		e.applyStepResult(cs, v, st, exports, result)
	}

	_ = eg.Wait()
	close(resultsCh)
	for o := range resultsCh {
		asyncResults = append(asyncResults, o)
	}
	// Apply in step-id order for deterministic result assembly.
	for _, cs := range group {
		for _, o := range asyncResults {
			if o.cs == cs {
				e.applyStepResult(cs, o.value, st, exports, result)
			}
		}
		for _, o := range syncPending {
			if o.cs == cs {
				e.applyStepResult(cs, o.value.(*eval.Pending).Await(ctx), st, exports, result)
			}
		}
	}
}

// shouldSkip applies the dependency half of the step protocol: if any
// dependency is still skippable, this step skips and its entry stays true.
func (e *Executable) shouldSkip(cs *compiledStep, st *callState) bool {
	for _, dep := range cs.step.Dependencies {
		if st.skip[dep] {
			return true
		}
	}
	return false
}

// applyStepResult is the post-action half of the step protocol: write the
// slot; on success flip the skip entry (monotonic, true→false once) and
// assign exported formulas into their module's exports object; on failure
// leave the entry true so dependents skip.
func (e *Executable) applyStepResult(cs *compiledStep, value eval.Object, st *callState, exports map[int]*eval.Record, result *Result) {
	if value == nil {
		value = eval.NewError(eval.Internal, "step %s.%s produced no value", cs.module, cs.name)
	}
	st.slots[cs.slot] = value

	if err, failed := value.(*eval.Error); failed {
		if cs.exported {
			result.setError(cs.module, cs.name, err)
		}
		return
	}

	st.skip[cs.step.ID] = false
	if cs.exported {
		if record, ok := exports[cs.exportsSlot]; ok {
			record.Set(cs.name, value)
		}
		result.setExport(cs.module, cs.name, value)
	}
}
