package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/step"
	"github.com/ironladytech/onboarding/core/template"
)

type templateRepository struct {
	db    *table[template.EmailTemplate]
	steps *table[step.Step]
}

var _ template.Repository = (*templateRepository)(nil)

func NewTemplateRepository(db *DB) *templateRepository {
	return &templateRepository{db: db.template, steps: db.step}
}

func (repo *templateRepository) CreateTemplate(_ context.Context, t template.EmailTemplate) (template.EmailTemplate, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.rows[t.ID] = &t
	return t, nil
}

func (repo *templateRepository) GetTemplate(_ context.Context, id string) (template.EmailTemplate, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.rows[id]; ok {
		return *t, nil
	}
	return template.EmailTemplate{}, template.ErrNotFound
}

func (repo *templateRepository) QueryTemplates(_ context.Context, filter template.QueryFilter, ordering []core.DBOrdering) ([]template.EmailTemplate, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	tmpls := make([]template.EmailTemplate, 0)
	for _, t := range repo.db.all() {
		if filter.Match(t) {
			tmpls = append(tmpls, t)
		}
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	sort.SliceStable(tmpls, func(i, j int) bool {
		a, b := tmpls[i], tmpls[j]
		for _, ord := range ordering {
			var cmp int
			switch ord.Field {
			case "name":
				cmp = strings.Compare(a.Name, b.Name)
			case "type":
				cmp = strings.Compare(string(a.Type), string(b.Type))
			case "created_at":
				cmp = a.CreatedAt.Compare(b.CreatedAt)
			case "updated_at":
				cmp = a.UpdatedAt.Compare(b.UpdatedAt)
			}
			if cmp != 0 {
				return (cmp < 0) == ord.Ascending
			}
		}
		return a.ID < b.ID
	})
	return tmpls, nil
}

func (repo *templateRepository) UpdateTemplate(_ context.Context, t template.EmailTemplate) (template.EmailTemplate, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[t.ID]; !ok {
		return template.EmailTemplate{}, template.ErrNotFound
	}
	repo.db.rows[t.ID] = &t
	return t, nil
}

func (repo *templateRepository) DeleteTemplate(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.rows, id)
	return nil
}

func (repo *templateRepository) CountStepReferences(_ context.Context, id string) (int, error) {
	repo.steps.RLock()
	defer repo.steps.RUnlock()

	var n int
	for _, s := range repo.steps.rows {
		if s.EmailTemplateID == id {
			n++
		}
	}
	return n, nil
}

type stepRepository struct {
	db *table[step.Step]
}

var _ step.Repository = (*stepRepository)(nil)

func NewStepRepository(db *DB) *stepRepository {
	return &stepRepository{db: db.step}
}

// department returns the steps of dep ordered by step number. Callers hold the lock.
func (repo *stepRepository) department(dep string) []*step.Step {
	steps := make([]*step.Step, 0)
	for _, s := range repo.db.rows {
		if s.Department == dep {
			steps = append(steps, s)
		}
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].StepNumber < steps[j].StepNumber })
	return steps
}

func (repo *stepRepository) CreateSteps(_ context.Context, steps ...step.Step) ([]step.Step, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	return repo.create(steps), nil
}

func (repo *stepRepository) InitSteps(_ context.Context, department string, steps ...step.Step) ([]step.Step, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if len(repo.department(department)) > 0 {
		return nil, step.ErrAlreadyInit
	}
	return repo.create(steps), nil
}

// create appends steps to their departments; the caller holds the write lock.
func (repo *stepRepository) create(steps []step.Step) []step.Step {
	next := make(map[string]int)
	created := make([]step.Step, 0, len(steps))
	for _, s := range steps {
		if _, ok := next[s.Department]; !ok {
			next[s.Department] = len(repo.department(s.Department)) + 1
		}
		s.StepNumber = next[s.Department]
		next[s.Department]++

		row := s
		repo.db.rows[s.ID] = &row
		created = append(created, s)
	}
	return created
}

func (repo *stepRepository) GetStep(_ context.Context, id string) (step.Step, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.rows[id]; ok {
		return *s, nil
	}
	return step.Step{}, step.ErrNotFound
}

func (repo *stepRepository) ListSteps(_ context.Context, department string) ([]step.Step, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rows := repo.department(department)
	steps := make([]step.Step, 0, len(rows))
	for _, s := range rows {
		steps = append(steps, *s)
	}
	return steps, nil
}

func (repo *stepRepository) UpdateStep(_ context.Context, s step.Step) (step.Step, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.rows[s.ID]
	if !ok {
		return step.Step{}, step.ErrNotFound
	}
	// position only changes through SwapSteps and DeleteStep
	s.Department, s.StepNumber, s.CreatedAt = orig.Department, orig.StepNumber, orig.CreatedAt
	repo.db.rows[s.ID] = &s
	return s, nil
}

func (repo *stepRepository) DeleteStep(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	s, ok := repo.db.rows[id]
	if !ok {
		return step.ErrNotFound
	}
	delete(repo.db.rows, id)
	for _, other := range repo.department(s.Department) {
		if other.StepNumber > s.StepNumber {
			other.StepNumber--
		}
	}
	return nil
}

func (repo *stepRepository) SwapSteps(_ context.Context, aID, bID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	a, ok := repo.db.rows[aID]
	if !ok {
		return step.ErrNotFound
	}
	b, ok := repo.db.rows[bID]
	if !ok {
		return step.ErrNotFound
	}
	diff := a.StepNumber - b.StepNumber
	if a.Department != b.Department || (diff != 1 && diff != -1) {
		return step.ErrNotAdjacent
	}
	now := core.NowFunc().UTC()
	a.StepNumber, b.StepNumber = b.StepNumber, a.StepNumber
	a.UpdatedAt, b.UpdatedAt = now, now
	return nil
}

func (repo *stepRepository) Departments(_ context.Context) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	seen := make(map[string]struct{})
	deps := make([]string, 0)
	for _, s := range repo.db.rows {
		if _, ok := seen[s.Department]; !ok {
			seen[s.Department] = struct{}{}
			deps = append(deps, s.Department)
		}
	}
	sort.Strings(deps)
	return deps, nil
}
