// Package score computes the composite progress score.
//
// The composite is the product of the primary performance metric and the
// completion fraction. Neither dimension alone is a trustworthy signal: a
// high metric with zero completed tasks scores zero, and a full task list
// with a near-zero metric scores near zero.
package score

import "fmt"

// Composite returns metric x (tasksCompleted / totalTasks).
//
// totalTasks is a fixed course configuration constant and must be positive;
// a zero or negative value fails with ErrInvalidConfiguration rather than
// dividing by zero. tasksCompleted must lie in [0, totalTasks]. The result
// is bounded by [0, metric] since the completion fraction lies in [0,1].
func Composite(metric float64, tasksCompleted, totalTasks int) (float64, error) {
	if totalTasks <= 0 {
		return 0, fmt.Errorf("%w: totalTasks=%d", ErrInvalidConfiguration, totalTasks)
	}
	if tasksCompleted < 0 || tasksCompleted > totalTasks {
		return 0, fmt.Errorf("%w: tasksCompleted=%d totalTasks=%d", ErrInvalidProgress, tasksCompleted, totalTasks)
	}
	return metric * (float64(tasksCompleted) / float64(totalTasks)), nil
}
