// Package runnable composes units of work into pipelines.
//
// A Runnable maps one input to one output. Leaves wrap plain functions;
// composites are built from other runnables:
//
//	double := runnable.Map("double", func(x int) int { return x * 2 })
//	addTen := runnable.Map("add_ten", func(x int) int { return x + 10 })
//	seq := runnable.Then(double, addTen)          // 5 -> 20
//
//	par := runnable.MustParallel("fan_out",
//	    runnable.Key("doubled", double),
//	    runnable.Key("tripled", runnable.Map("triple", func(x int) int { return x * 3 })),
//	)                                              // 5 -> {doubled: 10, tripled: 15}
//
//	br, _ := runnable.NewBranch("by_length", long,
//	    runnable.When(func(s string) bool { return len(s) < 10 }, short),
//	)
//
// Sequences fail fast and are associative. Parallels run every branch
// concurrently and fail as a whole if any branch fails. Branches evaluate
// their predicates in order and run exactly one runnable.
//
// Every error raised by a composite wraps the failing runnable's error, so
// errors.Is and errors.As always reach the leaf.
//
// Runnables carry no mutable state after construction and may be invoked
// concurrently. Batch, InvokeAsync and Stream layer on top of Invoke.
package runnable
