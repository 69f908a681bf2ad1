package device

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// CommandGroup collects the bindings and the dispatch shape of one
// submission. Arguments are positional; the binding order is recorded
// so tests can assert it.
type CommandGroup struct {
	args    []BoundArg
	order   []int
	kernel  *Kernel
	dims    int
	global  [3]int
	local   [3]int
	grouped bool
}

// SetArg binds an argument to slot i.
func (cg *CommandGroup) SetArg(i int, a BoundArg) {
	for len(cg.args) <= i {
		cg.args = append(cg.args, BoundArg{})
	}
	cg.args[i] = a
	cg.order = append(cg.order, i)
}

// ArgOrder returns the slot indices in the order they were bound.
func (cg *CommandGroup) ArgOrder() []int { return cg.order }

// Args returns the bound arguments by slot.
func (cg *CommandGroup) Args() []BoundArg { return cg.args }

// ParallelFor schedules a flat execution over the global extents.
func (cg *CommandGroup) ParallelFor(k *Kernel, dims int, global [3]int) {
	cg.kernel = k
	cg.dims = dims
	cg.global = global
	cg.grouped = false
}

// ParallelForGrouped schedules a grouped (global, local) execution.
func (cg *CommandGroup) ParallelForGrouped(k *Kernel, dims int, global, local [3]int) {
	cg.kernel = k
	cg.dims = dims
	cg.global = global
	cg.local = local
	cg.grouped = true
}

// Grouped reports whether the submission carries a work-group shape.
func (cg *CommandGroup) Grouped() bool { return cg.grouped }

// Queue is an in-order asynchronous command queue. Submissions are
// built synchronously (that is where argument binding happens) and
// executed one at a time by a worker goroutine.
type Queue struct {
	tasks     chan *CommandGroup
	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    atomic.Bool
	submitted atomic.Uint64
}

func NewQueue() *Queue {
	q := &Queue{tasks: make(chan *CommandGroup, 64)}
	go q.worker()
	return q
}

func (q *Queue) worker() {
	for cg := range q.tasks {
		if cg.kernel != nil {
			runCommand(cg)
		}
		queueDepth.Dec()
		q.wg.Done()
	}
}

// Submit builds one command group and enqueues it. The build callback
// runs synchronously; any error it returns aborts the submission
// before the queue is touched. Once Submit returns nil the command
// executes asynchronously, in order with prior submissions.
func (q *Queue) Submit(build func(cg *CommandGroup) error) error {
	if q.closed.Load() {
		return ErrClosed
	}
	cg := &CommandGroup{}
	if err := build(cg); err != nil {
		return err
	}
	q.wg.Add(1)
	q.submitted.Add(1)
	queueSubmissions.Inc()
	queueDepth.Inc()
	q.tasks <- cg
	return nil
}

// Wait blocks until every submitted command has executed.
func (q *Queue) Wait() {
	q.wg.Wait()
}

// Submissions returns the number of command groups accepted so far.
func (q *Queue) Submissions() uint64 {
	return q.submitted.Load()
}

// Close drains the queue and stops the worker. Further submissions
// fail with ErrClosed.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		q.closed.Store(true)
		q.wg.Wait()
		close(q.tasks)
	})
}

func runCommand(cg *CommandGroup) {
	if cg.grouped {
		runGrouped(cg)
		return
	}
	runFlat(cg)
}

// runFlat executes the kernel once per point of the global range,
// spreading contiguous chunks of the linearized range across workers.
func runFlat(cg *CommandGroup) {
	total := extentProduct(cg.global, cg.dims)
	if total == 0 {
		return
	}
	n := workers
	if total < n {
		n = total
	}
	chunk := (total + n - 1) / n

	var g errgroup.Group
	g.SetLimit(n)
	for w := 0; w < n; w++ {
		start := w * chunk
		end := start + chunk
		if start >= total {
			break
		}
		if end > total {
			end = total
		}
		g.Go(func() error {
			for lin := start; lin < end; lin++ {
				it := Item{
					Global:      linearToPoint(lin, cg.global),
					GlobalRange: cg.global,
					Dims:        cg.dims,
				}
				cg.kernel.fn(it, cg.args)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// runGrouped executes work-groups in parallel; items within a group
// run sequentially on one worker.
func runGrouped(cg *CommandGroup) {
	var groups [3]int
	for d := 0; d < 3; d++ {
		groups[d] = 1
		if d < cg.dims {
			groups[d] = cg.global[d] / cg.local[d]
		}
	}
	totalGroups := extentProduct(groups, cg.dims)
	localSize := extentProduct(cg.local, cg.dims)
	if totalGroups == 0 || localSize == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for gl := 0; gl < totalGroups; gl++ {
		group := linearToPoint(gl, groups)
		g.Go(func() error {
			for ll := 0; ll < localSize; ll++ {
				local := linearToPoint(ll, cg.local)
				var global [3]int
				for d := 0; d < 3; d++ {
					global[d] = group[d]*cg.local[d] + local[d]
				}
				it := Item{
					Global:      global,
					Local:       local,
					Group:       group,
					GlobalRange: cg.global,
					LocalRange:  cg.local,
					Dims:        cg.dims,
					Grouped:     true,
				}
				cg.kernel.fn(it, cg.args)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func extentProduct(ext [3]int, dims int) int {
	total := 1
	for d := 0; d < dims; d++ {
		total *= ext[d]
	}
	return total
}

// linearToPoint converts a linear index to a point in the extent,
// dimension 0 innermost.
func linearToPoint(lin int, ext [3]int) [3]int {
	x := ext[0]
	if x == 0 {
		x = 1
	}
	y := ext[1]
	if y == 0 {
		y = 1
	}
	return [3]int{lin % x, (lin / x) % y, lin / (x * y)}
}
