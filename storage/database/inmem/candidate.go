package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/activity"
	"github.com/ironladytech/onboarding/core/candidate"
	"github.com/ironladytech/onboarding/core/settings"
)

type candidateRepository struct {
	db *table[candidate.Candidate]
}

var _ candidate.Repository = (*candidateRepository)(nil)

func NewCandidateRepository(db *DB) *candidateRepository {
	return &candidateRepository{db: db.candidate}
}

func (repo *candidateRepository) CreateCandidate(_ context.Context, c candidate.Candidate) (candidate.Candidate, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.rows[c.ID] = &c
	return c, nil
}

func (repo *candidateRepository) GetCandidate(_ context.Context, id string) (candidate.Candidate, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.rows[id]; ok {
		return *c, nil
	}
	return candidate.Candidate{}, candidate.ErrNotFound
}

func (repo *candidateRepository) QueryCandidates(
	_ context.Context,
	filter candidate.QueryFilter,
	ordering []core.DBOrdering,
	page core.Pagination,
) ([]candidate.Candidate, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	matched := make([]candidate.Candidate, 0)
	for _, c := range repo.db.all() {
		if filter.Match(c) {
			matched = append(matched, c)
		}
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		for _, ord := range ordering {
			var cmp int
			switch ord.Field {
			case "name":
				cmp = strings.Compare(a.Name, b.Name)
			case "department":
				cmp = strings.Compare(a.Department, b.Department)
			case "status":
				cmp = strings.Compare(string(a.Status), string(b.Status))
			case "expected_joining_date":
				cmp = compareDatePtr(a.ExpectedJoiningDate, b.ExpectedJoiningDate)
			case "created_at":
				cmp = a.CreatedAt.Compare(b.CreatedAt)
			}
			if cmp != 0 {
				return (cmp < 0) == ord.Ascending
			}
		}
		return a.ID < b.ID
	})

	start, end := page.Window(len(matched))
	return matched[start:end], len(matched), nil
}

func (repo *candidateRepository) UpdateCandidate(_ context.Context, c candidate.Candidate) (candidate.Candidate, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[c.ID]; !ok {
		return candidate.Candidate{}, candidate.ErrNotFound
	}
	repo.db.rows[c.ID] = &c
	return c, nil
}

func (repo *candidateRepository) CountByStatus(_ context.Context) ([]candidate.StatusCount, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	counts := make(map[candidate.Status]int)
	for _, c := range repo.db.rows {
		counts[c.Status]++
	}
	out := make([]candidate.StatusCount, 0, len(counts))
	for s, n := range counts {
		out = append(out, candidate.StatusCount{Status: s, Count: n})
	}
	return out, nil
}

// nil dates sort last
func compareDatePtr(a, b *core.Date) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return a.Compare(b.Time)
}

type activityRepository struct {
	db *table[activity.Log]
}

var _ activity.Repository = (*activityRepository)(nil)

func NewActivityRepository(db *DB) *activityRepository {
	return &activityRepository{db: db.activity}
}

func (repo *activityRepository) CreateLog(_ context.Context, l activity.Log) (activity.Log, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.rows[l.ID] = &l
	return l, nil
}

func (repo *activityRepository) QueryLogs(_ context.Context, candidateID string, limit int) ([]activity.Log, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	logs := make([]activity.Log, 0)
	for _, l := range repo.db.all() {
		if candidateID == "" || l.CandidateID == candidateID {
			logs = append(logs, l)
		}
	}
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].CreatedAt.After(logs[j].CreatedAt) })
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

type settingsRepository struct {
	db *settingsTable
}

var _ settings.Repository = (*settingsRepository)(nil)

func NewSettingsRepository(db *DB) *settingsRepository {
	return &settingsRepository{db: db.settings}
}

func (repo *settingsRepository) GetSettings(_ context.Context) (settings.Settings, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if repo.db.row == nil {
		return settings.Settings{}, settings.ErrNotFound
	}
	return copySettings(*repo.db.row), nil
}

func (repo *settingsRepository) SaveSettings(_ context.Context, s settings.Settings) (settings.Settings, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	saved := copySettings(s)
	repo.db.row = &saved
	return s, nil
}

func copySettings(s settings.Settings) settings.Settings {
	custom := make(map[string]string, len(s.CustomPlaceholders))
	for k, v := range s.CustomPlaceholders {
		custom[k] = v
	}
	s.CustomPlaceholders = custom
	return s
}
