// Package sequence assigns a total order to concurrent edits of the same
// document element.
//
// Each (channel, element) pair carries a monotonically increasing sequence
// counter. Submission never rejects: the conflict policy is
// last-submission-wins at element granularity, so whichever update the
// sequencer accepts last overwrites earlier content. Updates for one element
// are strictly ordered; elements of the same channel sequence independently
// and concurrently.
package sequence
