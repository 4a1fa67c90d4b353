package view

import (
	"math/rand/v2"
	"time"

	"github.com/mozilla-frontend-infra/codetribute/internal/core/task"
)

const (
	staleUnassignedDays = 90
	staleAssignedDays   = 30
)

// HelperText suggests how to approach t, based on its owner and on the
// calendar days since it last changed.
func HelperText(t task.Task, now time.Time) string {
	days := calendarDays(t.LastUpdated, now)

	switch {
	case !t.IsAssigned() && days < staleUnassignedDays:
		return "The task is assigned to nobody. Ask in the comments to have it assigned to you."
	case !t.IsAssigned():
		return "The task is assigned to nobody but a few months have passed. Ask in the comments if this task is still relevant to tackle and whether you could have it assigned to you."
	case days > staleAssignedDays:
		return "The task is assigned but has not been touched for over a month. Ask in the comments if you can have it assigned to you."
	default:
		return "This was recently assigned to " + t.Assignee + "."
	}
}

func calendarDays(from, to time.Time) int {
	y1, m1, d1 := from.In(to.Location()).Date()
	y2, m2, d2 := to.Date()
	a := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	b := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / (24 * time.Hour))
}

// PickRandom picks a task for someone feeling adventurous. Unassigned tasks
// are preferred; assigned ones are only picked when nothing else is left.
// intn defaults to rand.IntN.
func PickRandom(tasks []task.Task, intn func(n int) int) (task.Task, bool) {
	if len(tasks) == 0 {
		return task.Task{}, false
	}
	if intn == nil {
		intn = rand.IntN
	}

	var open []task.Task
	for _, t := range tasks {
		if !t.IsAssigned() {
			open = append(open, t)
		}
	}
	if len(open) > 0 {
		return open[intn(len(open))], true
	}
	return tasks[intn(len(tasks))], true
}
