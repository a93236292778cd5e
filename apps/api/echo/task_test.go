package echoapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironladytech/onboarding/core/task"
	"github.com/ironladytech/onboarding/tests"
)

func Test_taskApi(t *testing.T) {
	now := time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC)
	testutil.FreezeTime(t, now)
	app := setup(t)
	token := app.staffToken(t)

	rec := app.do(http.MethodPost, "/api/v1/tasks", token, marshalObj(t, task.NewTask{Title: "Call Asha", DueAt: now.Add(time.Hour)}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tk task.Task
	decode(t, rec, &tk)
	detail := "/api/v1/tasks/" + tk.ID

	runHTTPTests(t, app, []httpTest{
		{
			name: "snooze into the past", method: http.MethodPost, path: detail + "/snooze", token: token,
			body:     marshalObj(t, task.SnoozeRequest{Until: now.Add(-time.Hour)}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"until": "until must be in the future"}),
		},
		{name: "empty list", path: "/api/v1/tasks?status=DONE", token: token, wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{name: "bad due_before", path: "/api/v1/tasks?due_before=soon", token: token, wantCode: http.StatusBadRequest},
	})

	rec = app.do(http.MethodPost, detail+"/snooze", token, marshalObj(t, task.SnoozeRequest{Until: now.Add(48 * time.Hour)}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(http.MethodGet, "/api/v1/tasks?due_before="+now.Add(24*time.Hour).Format(time.RFC3339), token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = app.do(http.MethodPost, detail+"/complete", token)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &tk)
	assert.Equal(t, task.StatusDone, tk.Status)

	rec = app.do(http.MethodPost, detail+"/snooze", token, marshalObj(t, task.SnoozeRequest{Until: now.Add(48 * time.Hour)}))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = app.do(http.MethodDelete, detail, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = app.do(http.MethodGet, detail, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
