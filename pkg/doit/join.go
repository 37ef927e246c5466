package doit

import "slices"

// Join requests a join callback. The step that requested it completes only
// after the callback has been called; when a step requests several, the next
// step receives the arguments of all of them, concatenated in the order the
// callbacks were requested rather than the order they were called.
//
// Calling a join callback again, or after the sequence has been faulted or
// recovered, has no effect.
//
// Join may also be called outside any step, in which case the queued steps
// wait for the callback before running.
func (s *Sequence) Join() func(args ...any) {
	if s.busy == 0 && !s.running {
		s.slots = nil
		s.epoch++
	}
	level, epoch, index := s.resultLevel(), s.epoch, len(s.slots)
	s.slots = append(s.slots, slot{})
	s.busy++

	return func(args ...any) {
		if s.epoch != epoch || s.slots[index].done {
			return
		}
		s.slots[index] = slot{args: slices.Clone(args), done: true}
		s.busy--
		if s.busy > 0 {
			return
		}
		var res []any
		for _, sl := range s.slots {
			res = append(res, sl.args...)
		}
		if len(res) > 0 {
			s.setResultsAt(level, res)
		}
		s.schedule()
	}
}

// SetResults sets the arguments of the next step immediately. Called from a
// step, it replaces what that step would otherwise pass on.
func (s *Sequence) SetResults(args ...any) *Sequence {
	s.setResultsAt(s.resultLevel(), slices.Clone(args))
	return s
}
