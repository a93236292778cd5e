package echoapi

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironladytech/onboarding/core/event"
	"github.com/ironladytech/onboarding/core/schedule"
	"github.com/ironladytech/onboarding/core/template"
	"github.com/ironladytech/onboarding/tests"
)

func Test_scheduleApi_batch(t *testing.T) {
	now := time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC)
	testutil.FreezeTime(t, now)
	app := setup(t)
	token := app.staffToken(t)

	s := testutil.CreateStep(t, app.Env, "Sales", template.TypeHRInduction, 0)
	asha := testutil.CreateCandidate(t, app.Candidates, "Asha Rao", "asha@example.com", "Sales", testutil.DatePtr(2024, time.June, 10))
	ravi := testutil.CreateCandidate(t, app.Candidates, "Ravi Kumar", "", "Sales", testutil.DatePtr(2024, time.June, 10))

	runHTTPTests(t, app, []httpTest{
		{
			name: "no candidates", method: http.MethodPost, path: "/api/v1/schedule/batch", token: token,
			body: marshalObj(t, schedule.BatchRequest{StepID: s.ID, Mode: schedule.ModeComputed}), wantCode: http.StatusBadRequest,
		},
		{
			name: "exact without date", method: http.MethodPost, path: "/api/v1/schedule/batch", token: token,
			body:     marshalObj(t, schedule.BatchRequest{CandidateIDs: []string{asha.ID}, StepID: s.ID, Mode: schedule.ModeExact}),
			wantCode: http.StatusBadRequest,
		},
	})

	body := marshalObj(t, schedule.BatchRequest{
		CandidateIDs: []string{asha.ID, ravi.ID},
		Department:   "Sales",
		StepNumber:   1,
		Mode:         schedule.ModeComputed,
	})
	rec := app.do(http.MethodPost, "/api/v1/schedule/batch", token, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp BatchResponse
	decode(t, rec, &resp)
	assert.Equal(t, BatchSummary{Total: 2, Succeeded: 1, Failed: 1}, resp.Summary)
	require.Len(t, resp.Results, 2)
	byCandidate := make(map[string]schedule.Result, 2)
	for _, r := range resp.Results {
		byCandidate[r.CandidateID] = r
	}
	assert.True(t, byCandidate[asha.ID].Success)
	assert.False(t, byCandidate[ravi.ID].Success)
	assert.Equal(t, "candidate has no email address", byCandidate[ravi.ID].Error)
	eventID := byCandidate[asha.ID].EventID

	t.Run("events", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/v1/events?status=SCHEDULED,RESCHEDULED&candidate_id="+asha.ID, token)
		require.Equal(t, http.StatusOK, rec.Code)
		var evs []event.ScheduledEvent
		decode(t, rec, &evs)
		require.Len(t, evs, 1)
		assert.Equal(t, eventID, evs[0].ID)

		rec = app.do(http.MethodGet, "/api/v1/events?from=tomorrow", token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = app.do(http.MethodPost, fmt.Sprintf("/api/v1/events/%s/attachments", eventID), token,
			[]byte(`{"attachments": [{"name": "agenda.pdf", "url": "https://files.example.com/agenda.pdf"}]}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var e event.ScheduledEvent
		decode(t, rec, &e)
		require.Len(t, e.Attachments, 1)

		start := now.Add(96 * time.Hour)
		rec = app.do(http.MethodPost, fmt.Sprintf("/api/v1/events/%s/reschedule", eventID), token,
			marshalObj(t, event.RescheduleRequest{StartTime: start}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, rec, &e)
		assert.True(t, start.Equal(e.StartTime))
		assert.False(t, e.Computed)

		rec = app.do(http.MethodPost, fmt.Sprintf("/api/v1/events/%s/complete", eventID), token)
		require.Equal(t, http.StatusOK, rec.Code)
		rec = app.do(http.MethodPost, fmt.Sprintf("/api/v1/events/%s/cancel", eventID), token)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func Test_summarize(t *testing.T) {
	assert.Equal(t, BatchSummary{}, summarize(nil))
	assert.Equal(t, BatchSummary{Total: 3, Succeeded: 2, Failed: 1}, summarize([]schedule.Result{
		{Success: true}, {Success: false}, {Success: true},
	}))
}
