package echoapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/email"
	"github.com/ironladytech/onboarding/core/settings"
	"github.com/ironladytech/onboarding/tests"
)

func Test_settingsApi(t *testing.T) {
	app := setup(t)
	staff := app.staffToken(t)
	admin := app.adminToken(t)

	runHTTPTests(t, app, []httpTest{
		{name: "read requires auth", path: "/api/v1/settings", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "update requires admin", method: http.MethodPut, path: "/api/v1/settings", token: staff,
			body: []byte(`{"company_name": "Acme"}`), wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{
			name: "bad color", method: http.MethodPut, path: "/api/v1/settings", token: admin,
			body: []byte(`{"primary_color": "blue"}`), wantCode: http.StatusBadRequest,
		},
		{name: "dashboard", path: "/api/v1/dashboard", token: staff, wantCode: http.StatusOK},
	})

	rec := app.do(http.MethodPut, "/api/v1/settings", admin, []byte(`{"company_name": "Acme", "custom_placeholders": {"floor": "3"}}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(http.MethodGet, "/api/v1/settings", staff)
	require.Equal(t, http.StatusOK, rec.Code)
	var s settings.Settings
	decode(t, rec, &s)
	assert.Equal(t, "Acme", s.CompanyName)
	assert.Equal(t, map[string]string{"floor": "3"}, s.CustomPlaceholders)
}

func Test_webhookApi(t *testing.T) {
	app := setup(t)

	sent, err := app.Emails.Deliver(context.Background(),
		email.Email{CandidateID: "c1", To: "asha@example.com", Subject: "Hi", Body: "Hello"}, &core.EmailMessage{}, testutil.Actor)
	require.NoError(t, err)
	events := marshalObj(t, []email.ProviderEvent{{MessageID: *sent.TrackingID + ".filter", Event: "delivered"}})

	send := func(secret string, body []byte) (int, string) {
		req, rec := newAuthRequest(http.MethodPost, "/api/v1/webhooks/email", "", body)
		if secret != "" {
			req.Header.Set(headerWebhookSecret, secret)
		}
		app.srv.ServeHTTP(rec, req)
		return rec.Code, rec.Body.String()
	}

	code, _ := send("", events)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = send("wrong", events)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = send(app.Conf.WebhookSecret, []byte(`[]`))
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := send(app.Conf.WebhookSecret, events)
	require.Equal(t, http.StatusOK, code, body)
	assert.JSONEq(t, `{"updated": 1}`, body)
}
