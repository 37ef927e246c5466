// Package doit runs sequences of steps that complete synchronously or
// asynchronously.
//
// A Sequence runs its steps strictly in the order they were added. A step
// completes synchronously by returning, or asynchronously by requesting join
// callbacks with Join; the next step runs once all of them have been called.
// An error returned by a step, or reported with Error, skips every step up to
// the next catch step. An error still pending when the sequence is ended with
// End is reported as unhandled.
//
// A Sequence is not safe for concurrent use. Callbacks fired on other
// goroutines should be delivered to the goroutine driving the sequence, for
// example through a Loop.
package doit

import (
	"runtime/debug"
	"slices"

	"go.uber.org/zap"
	"src.zkit.sh/pkg/logutil"
)

var logger = logutil.GetLogger("doit")

// Step is the body of a step. It receives the results of the previous step.
// A non-nil return value becomes the sole argument of the next step, unless
// the step requested join callbacks.
type Step func(s *Sequence, args ...any) (any, error)

// Handler is the body of a catch step. Returning nil clears the error;
// returning an error faults the sequence again.
type Handler func(s *Sequence, err error) error

type task struct {
	level   int
	step    Step
	handler Handler
}

// A join slot; args are recorded once, when the join callback is first
// called.
type slot struct {
	args []any
	done bool
}

// Sequence is an ordered queue of steps.
type Sequence struct {
	tasks []task
	// Arguments for the next step, indexed by nesting level.
	results [][]any
	err     error

	// Nesting level of the step being run plus one; 0 outside any step.
	level int
	// Insertion point for steps added by the running step.
	counter int
	// Number of join callbacks not yet called.
	busy  int
	slots []slot
	// Incremented whenever outstanding join callbacks become stale.
	epoch uint64

	draining  bool
	running   bool
	recovered bool

	ignoreErrors     bool
	rethrowUnhandled bool
	logger           *zap.SugaredLogger
}

// New creates an empty sequence.
func New(opts ...Option) *Sequence {
	s := &Sequence{logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewWith creates a sequence and adds step to it, which starts running it.
func NewWith(step Step, opts ...Option) *Sequence {
	return New(opts...).Then(step)
}

// Then adds a step. A step added while another step of the same sequence is
// running is inserted right after the steps that step has already added, so
// nested steps run before the steps following their parent. If the sequence
// is idle, the step runs immediately.
func (s *Sequence) Then(step Step) *Sequence {
	return s.add(task{step: step})
}

// Catch adds a catch step. It runs only if the sequence is faulted when the
// step is reached, and is skipped otherwise, leaving the arguments for the
// next step untouched.
func (s *Sequence) Catch(h Handler) *Sequence {
	return s.add(task{handler: h})
}

func (s *Sequence) add(t task) *Sequence {
	t.level = s.level
	if s.level > 0 {
		s.tasks = slices.Insert(s.tasks, s.counter, t)
		s.counter++
		return s
	}
	s.tasks = append(s.tasks, t)
	s.schedule()
	return s
}

// Till adds a step that waits until all the steps added to other so far
// have run. An error of other is reported to s, and counts as handled for
// other. The arguments pending for the next step of s are kept, and so are
// those of other.
func (s *Sequence) Till(other *Sequence) *Sequence {
	return s.Then(func(s *Sequence, args ...any) (any, error) {
		jn := s.Join()
		other.Then(func(o *Sequence, res ...any) (any, error) {
			jn(args...)
			if len(res) > 0 {
				o.SetResults(res...)
			}
			return nil, nil
		}).Catch(func(_ *Sequence, err error) error {
			s.Error(err)
			return nil
		})
		return nil, nil
	})
}

// Error faults the sequence: the arguments for the next step are discarded,
// outstanding join callbacks become no-ops and all steps up to the next
// catch step are skipped. If the sequence is already faulted, err is only
// logged. A nil err is ignored.
func (s *Sequence) Error(err error) *Sequence {
	switch {
	case err == nil:
		return s
	case s.err != nil:
		s.logger.Warnw("error while sequence is faulted", "error", err, "pending", s.err)
	case s.ignoreErrors:
		s.logger.Warnw("ignored sequence error", "error", err)
	default:
		s.err = err
		s.results = nil
		s.busy, s.slots, s.counter = 0, nil, 0
		s.epoch++
	}
	s.schedule()
	return s
}

// Err returns the pending error.
func (s *Sequence) Err() error { return s.err }

// Recover resets a faulted sequence to an empty one, discarding the error,
// the queued steps and all pending results, and then calls h with the error.
// It does nothing if the sequence is not faulted.
//
// If h is nil, the error has never reached a catch step and is reported as
// unhandled: it is logged, or, in rethrow-on-unhandled mode, Recover panics
// with it after the reset.
func (s *Sequence) Recover(h func(error)) *Sequence {
	if s.err == nil {
		return s
	}
	err := s.err
	s.tasks, s.results, s.slots = nil, nil, nil
	s.level, s.counter, s.busy = 0, 0, 0
	s.err, s.recovered = nil, false
	s.epoch++
	if h != nil {
		h(err)
		return s
	}
	if s.rethrowUnhandled {
		panic(err)
	}
	s.logger.Warnw("unhandled sequence error", "error", err)
	return s
}

// End finishes the sequence: it is Recover(nil), so an error still pending
// is reported as unhandled.
func (s *Sequence) End() *Sequence { return s.Recover(nil) }

// Restart discards the pending error but keeps the queued steps, and resumes
// running them.
func (s *Sequence) Restart() *Sequence {
	s.err = nil
	s.schedule()
	return s
}

func (s *Sequence) schedule() {
	if s.draining {
		return
	}
	s.draining = true
	for len(s.tasks) > 0 && s.busy == 0 {
		t := s.tasks[0]
		s.tasks = s.tasks[1:]
		s.run(t)
	}
	s.level, s.counter = 0, 0
	s.draining = false
}

func (s *Sequence) run(t task) {
	s.busy, s.slots = 0, nil
	s.epoch++
	s.level, s.counter = t.level+1, 0
	if t.handler != nil {
		s.runCatch(t)
		return
	}
	if s.err != nil {
		return
	}
	args := s.resultsAt(t.level)
	s.setResultsAt(t.level, nil)
	s.setResultsAt(t.level+1, nil)
	s.recovered = false

	r, err := s.call(func() (any, error) { return t.step(s, args...) })
	if err != nil {
		s.Error(err)
		return
	}
	if s.err == nil && len(s.slots) == 0 && r != nil {
		s.setResultsAt(t.level, []any{r})
	}
}

func (s *Sequence) runCatch(t task) {
	if s.err == nil {
		return
	}
	err := s.err
	s.err, s.recovered = nil, true
	s.setResultsAt(t.level, nil)
	if _, herr := s.call(func() (any, error) { return nil, t.handler(s, err) }); herr != nil {
		s.Error(herr)
	}
}

// Calls f, turning a panic into a *PanicError.
func (s *Sequence) call(f func() (any, error)) (r any, err error) {
	running := s.running
	s.running = true
	defer func() {
		s.running = running
		if v := recover(); v != nil {
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	return f()
}

func (s *Sequence) resultsAt(level int) []any {
	if level < len(s.results) {
		return s.results[level]
	}
	return nil
}

func (s *Sequence) setResultsAt(level int, v []any) {
	for len(s.results) <= level {
		s.results = append(s.results, nil)
	}
	s.results[level] = v
}

// Level whose results a join or SetResults called now provides.
func (s *Sequence) resultLevel() int {
	if s.level == 0 {
		return 0
	}
	return s.level - 1
}
