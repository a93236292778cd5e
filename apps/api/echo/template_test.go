package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironladytech/onboarding/core/template"
	"github.com/ironladytech/onboarding/tests"
)

func Test_templateApi(t *testing.T) {
	app := setup(t)
	token := app.staffToken(t)

	rec := app.do(http.MethodPost, "/api/v1/templates", token, marshalObj(t, template.NewTemplate{
		Name:    "Welcome",
		Type:    template.TypeWelcomeEmail,
		Subject: "Welcome {{firstName}}",
		Body:    "See you at {{companyName}}, bring {{laptop}}",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tmpl template.EmailTemplate
	decode(t, rec, &tmpl)
	detail := "/api/v1/templates/" + tmpl.ID

	runHTTPTests(t, app, []httpTest{
		{name: "no token", path: "/api/v1/templates", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "custom without label", method: http.MethodPost, path: "/api/v1/templates", token: token,
			body:     marshalObj(t, template.NewTemplate{Name: "Parking", Type: template.TypeCustom, Subject: "s", Body: "b"}),
			wantCode: http.StatusBadRequest,
		},
		{name: "not found", path: "/api/v1/templates/3b7c2f4e-1111-4a2b-9c3d-000000000000", token: token, wantCode: http.StatusNotFound},
		{name: "bad is_active", path: "/api/v1/templates?is_active=maybe", token: token, wantCode: http.StatusBadRequest},
		{name: "filter by type", path: "/api/v1/templates?type=CUSTOM", token: token, wantCode: http.StatusOK, wantData: []byte(`[]`)},
	})

	t.Run("preview", func(t *testing.T) {
		rec := app.do(http.MethodPost, detail+"/preview", token, marshalObj(t, template.PreviewRequest{
			Overrides: map[string]string{"laptop": "a laptop"},
		}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var r template.Rendered
		decode(t, rec, &r)
		assert.Equal(t, "Welcome Jane", r.Subject)
		assert.Contains(t, r.Body, "bring a laptop")
		assert.Empty(t, r.Unresolved)
	})

	t.Run("referenced template cannot be deleted", func(t *testing.T) {
		s := testutil.CreateStep(t, app.Env, "Sales", template.TypeHRInduction, 0)
		rec := app.do(http.MethodDelete, "/api/v1/templates/"+s.EmailTemplateID, token)
		assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	})

	t.Run("update then delete", func(t *testing.T) {
		subject := "Hi {{firstName}}"
		rec := app.do(http.MethodPut, detail, token, marshalObj(t, template.UpdateTemplate{Subject: &subject}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, rec, &tmpl)
		assert.Equal(t, subject, tmpl.Subject)

		rec = app.do(http.MethodDelete, detail, token)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = app.do(http.MethodGet, detail, token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
