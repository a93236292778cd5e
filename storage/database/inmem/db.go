package inmemdb

import (
	"sync"

	"github.com/ironladytech/onboarding/core/activity"
	"github.com/ironladytech/onboarding/core/candidate"
	"github.com/ironladytech/onboarding/core/email"
	"github.com/ironladytech/onboarding/core/event"
	"github.com/ironladytech/onboarding/core/settings"
	"github.com/ironladytech/onboarding/core/step"
	"github.com/ironladytech/onboarding/core/task"
	"github.com/ironladytech/onboarding/core/template"
	"github.com/ironladytech/onboarding/core/user"
)

type (
	// DB keeps every table in memory. Each table has its own lock.
	DB struct {
		user      *table[user.User]
		candidate *table[candidate.Candidate]
		template  *table[template.EmailTemplate]
		step      *table[step.Step]
		event     *table[event.ScheduledEvent]
		email     *table[email.Email]
		task      *table[task.Task]
		activity  *table[activity.Log]
		settings  *settingsTable
	}

	table[T any] struct {
		sync.RWMutex
		rows map[string]*T
	}

	settingsTable struct {
		sync.RWMutex
		row *settings.Settings
	}
)

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]*T)}
}

// all returns copies of every row.
func (t *table[T]) all() []T {
	rows := make([]T, 0, len(t.rows))
	for _, r := range t.rows {
		rows = append(rows, *r)
	}
	return rows
}

func Open() *DB {
	return &DB{
		user:      newTable[user.User](),
		candidate: newTable[candidate.Candidate](),
		template:  newTable[template.EmailTemplate](),
		step:      newTable[step.Step](),
		event:     newTable[event.ScheduledEvent](),
		email:     newTable[email.Email](),
		task:      newTable[task.Task](),
		activity:  newTable[activity.Log](),
		settings:  &settingsTable{},
	}
}
