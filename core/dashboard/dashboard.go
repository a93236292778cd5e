// Package dashboard aggregates the home screen of the admin console.
package dashboard

import (
	"context"
	"time"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/activity"
	"github.com/ironladytech/onboarding/core/candidate"
	"github.com/ironladytech/onboarding/core/event"
	"github.com/ironladytech/onboarding/core/task"
)

const (
	upcomingWindow = 7 * 24 * time.Hour
	recentActivity = 20
)

type Summary struct {
	TotalCandidates    int                     `json:"total_candidates"`
	CandidatesByStatus []candidate.StatusCount `json:"candidates_by_status"`
	UpcomingEvents     []event.ScheduledEvent  `json:"upcoming_events"`
	DueTasks           []task.Task             `json:"due_tasks"`
	RecentActivity     []activity.Log          `json:"recent_activity"`
}

type Service struct {
	candidates *candidate.Service
	events     *event.Service
	tasks      *task.Service
	activity   *activity.Service
}

func NewService(candidates *candidate.Service, events *event.Service, tasks *task.Service, activitySvc *activity.Service) *Service {
	return &Service{candidates: candidates, events: events, tasks: tasks, activity: activitySvc}
}

// Summary covers events of the next 7 days and open tasks due by the end of today.
func (svc *Service) Summary(ctx context.Context) (Summary, error) {
	var (
		s   Summary
		err error
	)
	if s.CandidatesByStatus, err = svc.candidates.CountByStatus(ctx); err != nil {
		return Summary{}, err
	}
	for _, sc := range s.CandidatesByStatus {
		s.TotalCandidates += sc.Count
	}
	if s.UpcomingEvents, err = svc.events.Upcoming(ctx, upcomingWindow); err != nil {
		return Summary{}, err
	}

	endOfDay := core.DateOf(core.NowFunc().UTC()).AddDays(1).Time
	if s.DueTasks, err = svc.tasks.Due(ctx, endOfDay); err != nil {
		return Summary{}, err
	}
	if s.RecentActivity, err = svc.activity.Recent(ctx, recentActivity); err != nil {
		return Summary{}, err
	}
	return s, nil
}
