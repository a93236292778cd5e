package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/candidate"
	"github.com/ironladytech/onboarding/core/email"
	"github.com/ironladytech/onboarding/core/event"
	"github.com/ironladytech/onboarding/core/step"
	"github.com/ironladytech/onboarding/core/task"
	"github.com/ironladytech/onboarding/core/template"
	sqlxrepos "github.com/ironladytech/onboarding/storage/database/sqlx"
	"github.com/ironladytech/onboarding/tests"
)

var now = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func createCandidate(t *testing.T, db *sqlx.DB, name, department string, joining *core.Date) candidate.Candidate {
	t.Helper()
	c := candidate.Candidate{
		ID:                  uuid.NewString(),
		Name:                name,
		Department:          department,
		ExpectedJoiningDate: joining,
		Status:              candidate.StatusOfferPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	c, err := sqlxrepos.NewCandidateRepository(db).CreateCandidate(context.Background(), c)
	require.NoError(t, err)
	return c
}

func createTemplate(t *testing.T, db *sqlx.DB, typ template.Type) template.EmailTemplate {
	t.Helper()
	tmpl := template.EmailTemplate{
		ID:        uuid.NewString(),
		Name:      string(typ),
		Type:      typ,
		Subject:   "Hello {{candidateName}}",
		Body:      "Welcome",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	tmpl, err := sqlxrepos.NewTemplateRepository(db).CreateTemplate(context.Background(), tmpl)
	require.NoError(t, err)
	return tmpl
}

func newStep(department string, tmpl template.EmailTemplate) step.Step {
	return step.Step{
		ID:              uuid.NewString(),
		Department:      department,
		Type:            tmpl.Type,
		Title:           string(tmpl.Type),
		IsAuto:          true,
		EmailTemplateID: tmpl.ID,
		Priority:        step.PriorityMedium,
		DurationMinutes: 60,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestCandidateRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	repo := sqlxrepos.NewCandidateRepository(db)

	asha := createCandidate(t, db, "Asha Rao", "Engineering", testutil.DatePtr(2024, 6, 10))
	createCandidate(t, db, "Brian Otieno", "Sales", testutil.DatePtr(2024, 6, 20))
	createCandidate(t, db, "Chen Li", "Engineering", nil)

	t.Run("get", func(t *testing.T) {
		got, err := repo.GetCandidate(ctx, asha.ID)
		require.NoError(t, err)
		assert.Equal(t, "Asha Rao", got.Name)
		require.NotNil(t, got.ExpectedJoiningDate)
		assert.Equal(t, "2024-06-10", got.ExpectedJoiningDate.String())

		_, err = repo.GetCandidate(ctx, "not-a-uuid")
		assert.True(t, core.IsNotFound(err))
		_, err = repo.GetCandidate(ctx, uuid.NewString())
		assert.True(t, core.IsNotFound(err))
	})

	t.Run("query", func(t *testing.T) {
		page := core.Pagination{Page: 1, PageSize: 2}
		order := []core.DBOrdering{{Field: "name", Ascending: true}}

		got, total, err := repo.QueryCandidates(ctx, candidate.QueryFilter{}, order, page)
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, got, 2)
		assert.Equal(t, "Asha Rao", got[0].Name)
		assert.Equal(t, "Brian Otieno", got[1].Name)

		got, total, err = repo.QueryCandidates(ctx, candidate.QueryFilter{Department: "Engineering", Search: "chen"}, order, page)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, got, 1)
		assert.Equal(t, "Chen Li", got[0].Name)

		filter := candidate.QueryFilter{JoiningFrom: testutil.DatePtr(2024, 6, 15), JoiningTo: testutil.DatePtr(2024, 6, 30)}
		got, total, err = repo.QueryCandidates(ctx, filter, order, page)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, "Brian Otieno", got[0].Name)
	})

	t.Run("update and count", func(t *testing.T) {
		c := asha
		c.Status = candidate.StatusOfferSent
		_, err := repo.UpdateCandidate(ctx, c)
		require.NoError(t, err)

		counts, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []candidate.StatusCount{
			{Status: candidate.StatusOfferPending, Count: 2},
			{Status: candidate.StatusOfferSent, Count: 1},
		}, counts)

		c.ID = uuid.NewString()
		_, err = repo.UpdateCandidate(ctx, c)
		assert.True(t, core.IsNotFound(err))
	})
}

func TestStepRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	repo := sqlxrepos.NewStepRepository(db)
	tmplRepo := sqlxrepos.NewTemplateRepository(db)

	welcome := createTemplate(t, db, template.TypeWelcomeEmail)
	hr := createTemplate(t, db, template.TypeHRInduction)

	steps, err := repo.CreateSteps(ctx,
		newStep("Sales", welcome), newStep("Sales", hr), newStep("Sales", welcome), newStep("Finance", hr))
	require.NoError(t, err)
	require.Len(t, steps, 4)
	assert.Equal(t, []int{1, 2, 3, 1}, []int{steps[0].StepNumber, steps[1].StepNumber, steps[2].StepNumber, steps[3].StepNumber})

	n, err := tmplRepo.CountStepReferences(ctx, welcome.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	deps, err := repo.Departments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Finance", "Sales"}, deps)

	t.Run("swap", func(t *testing.T) {
		err := repo.SwapSteps(ctx, steps[0].ID, steps[2].ID)
		assert.Equal(t, step.ErrNotAdjacent, err)
		err = repo.SwapSteps(ctx, steps[0].ID, steps[3].ID)
		assert.Equal(t, step.ErrNotAdjacent, err)

		require.NoError(t, repo.SwapSteps(ctx, steps[0].ID, steps[1].ID))
		list, err := repo.ListSteps(ctx, "Sales")
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, steps[1].ID, list[0].ID)
		assert.Equal(t, steps[0].ID, list[1].ID)
	})

	t.Run("delete renumbers", func(t *testing.T) {
		require.NoError(t, repo.DeleteStep(ctx, steps[1].ID))
		list, err := repo.ListSteps(ctx, "Sales")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, steps[0].ID, list[0].ID)
		assert.Equal(t, 1, list[0].StepNumber)
		assert.Equal(t, 2, list[1].StepNumber)

		err = repo.DeleteStep(ctx, steps[1].ID)
		assert.True(t, core.IsNotFound(err))
	})

	t.Run("referenced template cannot be deleted", func(t *testing.T) {
		err := tmplRepo.DeleteTemplate(ctx, welcome.ID)
		assert.Error(t, err)
	})

	t.Run("init only empty departments", func(t *testing.T) {
		_, err := repo.InitSteps(ctx, "Finance", newStep("Finance", welcome))
		assert.True(t, core.IsConflict(err))

		created, err := repo.InitSteps(ctx, "Legal", newStep("Legal", welcome), newStep("Legal", hr))
		require.NoError(t, err)
		require.Len(t, created, 2)
		assert.Equal(t, 1, created[0].StepNumber)
		assert.Equal(t, 2, created[1].StepNumber)
	})
}

func TestEventAndEmailRepositories(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	events := sqlxrepos.NewEventRepository(db)
	emails := sqlxrepos.NewEmailRepository(db)

	c := createCandidate(t, db, "Asha Rao", "Engineering", nil)
	start := now.Add(48 * time.Hour)
	ev, err := events.CreateEvent(ctx, event.ScheduledEvent{
		ID:          uuid.NewString(),
		CandidateID: c.ID,
		Type:        template.TypeHRInduction,
		Title:       "HR induction",
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		Status:      event.StatusScheduled,
		Attachments: []core.FileRef{{Name: "handbook.pdf", URL: "https://files.test/handbook.pdf"}},
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	require.NoError(t, err)

	got, err := events.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.Attachments, got.Attachments)
	assert.True(t, got.StartTime.Equal(start))
	assert.Nil(t, got.StepID)

	found, err := events.QueryEvents(ctx, event.QueryFilter{
		CandidateID: c.ID,
		Statuses:    []event.Status{event.StatusScheduled, event.StatusRescheduled},
	}, nil)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	to := now.Add(24 * time.Hour)
	found, err = events.QueryEvents(ctx, event.QueryFilter{To: &to}, nil)
	require.NoError(t, err)
	assert.Empty(t, found)

	got.Status = event.StatusCancelled
	_, err = events.UpdateEvent(ctx, got)
	require.NoError(t, err)
	found, err = events.QueryEvents(ctx, event.QueryFilter{Statuses: []event.Status{event.StatusScheduled}}, nil)
	require.NoError(t, err)
	assert.Empty(t, found)

	tracking := "msg-123"
	em, err := emails.CreateEmail(ctx, email.Email{
		ID:          uuid.NewString(),
		CandidateID: c.ID,
		EventID:     &ev.ID,
		To:          "asha@example.com",
		Subject:     "Welcome",
		Body:        "Hello",
		Status:      email.StatusSent,
		TrackingID:  &tracking,
		SentAt:      &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	require.NoError(t, err)

	byTracking, err := emails.GetEmailByTrackingID(ctx, tracking)
	require.NoError(t, err)
	assert.Equal(t, em.ID, byTracking.ID)
	_, err = emails.GetEmailByTrackingID(ctx, "unknown")
	assert.True(t, core.IsNotFound(err))

	byTracking.Status = email.StatusDelivered
	_, err = emails.UpdateEmail(ctx, byTracking)
	require.NoError(t, err)
	list, err := emails.QueryEmails(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, email.StatusDelivered, list[0].Status)
}

func TestTaskRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	repo := sqlxrepos.NewTaskRepository(db)

	newTask := func(title string, due time.Time) task.Task {
		tk, err := repo.CreateTask(ctx, task.Task{
			ID:        uuid.NewString(),
			Title:     title,
			DueAt:     due,
			Status:    task.StatusOpen,
			CreatedAt: now,
			UpdatedAt: now,
		})
		require.NoError(t, err)
		return tk
	}
	first := newTask("Collect documents", now.Add(time.Hour))
	second := newTask("Book laptop", now.Add(2*time.Hour))

	// snoozing moves the first task behind the second
	until := now.Add(72 * time.Hour)
	first.SnoozedUntil = &until
	_, err := repo.UpdateTask(ctx, first)
	require.NoError(t, err)

	list, err := repo.QueryTasks(ctx, task.QueryFilter{Status: task.StatusOpen})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	before := now.Add(24 * time.Hour)
	list, err = repo.QueryTasks(ctx, task.QueryFilter{DueBefore: &before})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)

	list, err = repo.QueryTasks(ctx, task.QueryFilter{CandidateID: "bogus"})
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, repo.DeleteTask(ctx, second.ID))
	_, err = repo.GetTask(ctx, second.ID)
	assert.True(t, core.IsNotFound(err))
	assert.True(t, core.IsNotFound(repo.DeleteTask(ctx, second.ID)))
}
