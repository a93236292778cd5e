package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ironladytech/onboarding/core/user"
	"github.com/ironladytech/onboarding/tests"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

type testApp struct {
	*testutil.Env
	srv *Server
}

func setup(t *testing.T) *testApp {
	t.Helper()
	env := testutil.NewEnv(t)
	srv := NewServer(ServerDeps{
		Conf:         env.Conf,
		Logger:       env.Logger,
		Validate:     env.Validate,
		Translator:   env.Translator,
		UserSvc:      env.Users,
		CandidateSvc: env.Candidates,
		TemplateSvc:  env.Templates,
		StepSvc:      env.Steps,
		ScheduleSvc:  env.Schedule,
		EventSvc:     env.Events,
		EmailSvc:     env.Emails,
		TaskSvc:      env.Tasks,
		ActivitySvc:  env.Activity,
		SettingsSvc:  env.Settings,
		DashboardSvc: env.Dashboard,
	})
	t.Cleanup(func() { _ = srv.Close() })
	return &testApp{Env: env, srv: srv}
}

// do serves a JSON request and returns the recorder.
func (app *testApp) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	app.srv.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) token(t *testing.T, usr user.User) string {
	t.Helper()
	auth := newAuthenticator(app.Conf, app.Users)
	token, err := auth.GenerateToken(auth.UserClaims(usr))
	require.NoError(t, err)
	return token
}

// staffToken returns the token of a fresh HR user.
func (app *testApp) staffToken(t *testing.T) string {
	t.Helper()
	return app.token(t, testutil.CreateUser(t, app.Users, "hruser", "hr@example.com", []string{user.RoleHR}))
}

func (app *testApp) adminToken(t *testing.T) string {
	t.Helper()
	return app.token(t, testutil.CreateUser(t, app.Users, "boss", "boss@example.com", []string{user.RoleAdmin}))
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			checkCodeAndData(t, tt, app.do(method, tt.path, tt.token, tt.body))
		})
	}
}
