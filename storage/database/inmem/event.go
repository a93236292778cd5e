package inmemdb

import (
	"context"
	"sort"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/email"
	"github.com/ironladytech/onboarding/core/event"
	"github.com/ironladytech/onboarding/core/task"
)

type eventRepository struct {
	db *table[event.ScheduledEvent]
}

var _ event.Repository = (*eventRepository)(nil)

func NewEventRepository(db *DB) *eventRepository {
	return &eventRepository{db: db.event}
}

func copyEvent(e event.ScheduledEvent) event.ScheduledEvent {
	e.Attachments = append([]core.FileRef{}, e.Attachments...)
	return e
}

func (repo *eventRepository) CreateEvent(_ context.Context, e event.ScheduledEvent) (event.ScheduledEvent, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	row := copyEvent(e)
	repo.db.rows[e.ID] = &row
	return e, nil
}

func (repo *eventRepository) GetEvent(_ context.Context, id string) (event.ScheduledEvent, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if e, ok := repo.db.rows[id]; ok {
		return copyEvent(*e), nil
	}
	return event.ScheduledEvent{}, event.ErrNotFound
}

func (repo *eventRepository) QueryEvents(_ context.Context, filter event.QueryFilter, ordering []core.DBOrdering) ([]event.ScheduledEvent, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	events := make([]event.ScheduledEvent, 0)
	for _, e := range repo.db.rows {
		if filter.Match(*e) {
			events = append(events, copyEvent(*e))
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		for _, ord := range ordering {
			var cmp int
			switch ord.Field {
			case "start_time":
				cmp = a.StartTime.Compare(b.StartTime)
			case "created_at":
				cmp = a.CreatedAt.Compare(b.CreatedAt)
			case "step_number":
				cmp = a.StepNumber - b.StepNumber
			}
			if cmp != 0 {
				return (cmp < 0) == ord.Ascending
			}
		}
		return a.ID < b.ID
	})
	return events, nil
}

func (repo *eventRepository) UpdateEvent(_ context.Context, e event.ScheduledEvent) (event.ScheduledEvent, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[e.ID]; !ok {
		return event.ScheduledEvent{}, event.ErrNotFound
	}
	row := copyEvent(e)
	repo.db.rows[e.ID] = &row
	return e, nil
}

type emailRepository struct {
	db *table[email.Email]
}

var _ email.Repository = (*emailRepository)(nil)

func NewEmailRepository(db *DB) *emailRepository {
	return &emailRepository{db: db.email}
}

func (repo *emailRepository) CreateEmail(_ context.Context, e email.Email) (email.Email, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.rows[e.ID] = &e
	return e, nil
}

func (repo *emailRepository) UpdateEmail(_ context.Context, e email.Email) (email.Email, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[e.ID]; !ok {
		return email.Email{}, email.ErrNotFound
	}
	repo.db.rows[e.ID] = &e
	return e, nil
}

func (repo *emailRepository) GetEmailByTrackingID(_ context.Context, trackingID string) (email.Email, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, e := range repo.db.rows {
		if e.TrackingID != nil && *e.TrackingID == trackingID {
			return *e, nil
		}
	}
	return email.Email{}, email.ErrNotFound
}

func (repo *emailRepository) QueryEmails(_ context.Context, candidateID string) ([]email.Email, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	emails := make([]email.Email, 0)
	for _, e := range repo.db.rows {
		if e.CandidateID == candidateID {
			emails = append(emails, *e)
		}
	}
	sort.SliceStable(emails, func(i, j int) bool { return emails[i].CreatedAt.After(emails[j].CreatedAt) })
	return emails, nil
}

type taskRepository struct {
	db *table[task.Task]
}

var _ task.Repository = (*taskRepository)(nil)

func NewTaskRepository(db *DB) *taskRepository {
	return &taskRepository{db: db.task}
}

func (repo *taskRepository) CreateTask(_ context.Context, t task.Task) (task.Task, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.rows[t.ID] = &t
	return t, nil
}

func (repo *taskRepository) GetTask(_ context.Context, id string) (task.Task, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.rows[id]; ok {
		return *t, nil
	}
	return task.Task{}, task.ErrNotFound
}

func (repo *taskRepository) QueryTasks(_ context.Context, filter task.QueryFilter) ([]task.Task, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	tasks := make([]task.Task, 0)
	for _, t := range repo.db.rows {
		if filter.Match(*t) {
			tasks = append(tasks, *t)
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].DueTime().Before(tasks[j].DueTime()) })
	return tasks, nil
}

func (repo *taskRepository) UpdateTask(_ context.Context, t task.Task) (task.Task, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[t.ID]; !ok {
		return task.Task{}, task.ErrNotFound
	}
	repo.db.rows[t.ID] = &t
	return t, nil
}

func (repo *taskRepository) DeleteTask(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.rows, id)
	return nil
}
