package template_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/settings"
	"github.com/ironladytech/onboarding/core/template"
	"github.com/ironladytech/onboarding/tests"
)

func TestService_Create(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	label := "Parking pass"

	tests := []struct {
		name    string
		nt      template.NewTemplate
		wantErr bool
	}{
		{"standard type", template.NewTemplate{Name: "Welcome", Type: template.TypeWelcomeEmail, Subject: "Hi", Body: "Body"}, false},
		{"custom with label", template.NewTemplate{Name: "Parking", Type: template.TypeCustom, CustomEmailType: &label, Subject: "Hi", Body: "Body"}, false},
		{"custom without label", template.NewTemplate{Name: "Parking", Type: template.TypeCustom, Subject: "Hi", Body: "Body"}, true},
		{"label on standard type", template.NewTemplate{Name: "Welcome", Type: template.TypeWelcomeEmail, CustomEmailType: &label, Subject: "Hi", Body: "Body"}, true},
		{"unknown type", template.NewTemplate{Name: "Welcome", Type: "NEWSLETTER", Subject: "Hi", Body: "Body"}, true},
		{"missing body", template.NewTemplate{Name: "Welcome", Type: template.TypeWelcomeEmail, Subject: "Hi"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := env.Templates.Create(ctx, tc.nt)
			if tc.wantErr {
				var vErrs validator.ValidationErrors
				assert.ErrorAs(t, err, &vErrs)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.IsActive)
			assert.NotEmpty(t, got.ID)
		})
	}
}

func TestService_Update(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	tmpl := testutil.CreateTemplate(t, env.Templates, "Welcome", template.TypeWelcomeEmail, "Hi", "Body")

	custom := template.TypeCustom
	_, err := env.Templates.Update(ctx, tmpl.ID, template.UpdateTemplate{Type: &custom})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "custom_email_type", vErr.Fields[0].Field)

	label := "Swag kit"
	got, err := env.Templates.Update(ctx, tmpl.ID, template.UpdateTemplate{Type: &custom, CustomEmailType: &label})
	require.NoError(t, err)
	assert.Equal(t, label, *got.CustomEmailType)

	welcome := template.TypeWelcomeEmail
	got, err = env.Templates.Update(ctx, tmpl.ID, template.UpdateTemplate{Type: &welcome})
	require.NoError(t, err)
	assert.Nil(t, got.CustomEmailType, "switching away from CUSTOM drops the label")
}

func TestService_referencedTemplate(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	s := testutil.CreateStep(t, env, "Sales", template.TypeWelcomeEmail, 0)

	err := env.Templates.Delete(ctx, s.EmailTemplateID)
	assert.True(t, core.IsConflict(err))

	inactive := false
	_, err = env.Templates.Update(ctx, s.EmailTemplateID, template.UpdateTemplate{IsActive: &inactive})
	assert.True(t, core.IsConflict(err))

	require.NoError(t, env.Steps.Delete(ctx, s.ID))
	require.NoError(t, env.Templates.Delete(ctx, s.EmailTemplateID))
	_, err = env.Templates.GetByID(ctx, s.EmailTemplateID)
	assert.True(t, core.IsNotFound(err))
}

func TestService_FindActiveByType(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	_, err := env.Templates.FindActiveByType(ctx, template.TypeOfferLetter)
	assert.True(t, core.IsNotFound(err))

	inactive := false
	_, err = env.Templates.Create(ctx, template.NewTemplate{Name: "Old offer", Type: template.TypeOfferLetter, Subject: "Hi", Body: "Body", IsActive: &inactive})
	require.NoError(t, err)
	active := testutil.CreateTemplate(t, env.Templates, "Offer", template.TypeOfferLetter, "Hi", "Body")

	got, err := env.Templates.FindActiveByType(ctx, template.TypeOfferLetter)
	require.NoError(t, err)
	assert.Equal(t, active.ID, got.ID)
}

func TestService_Preview(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	name := "Acme Corp"
	_, err := env.Settings.Update(ctx, settings.UpdateSettings{
		CompanyName:        &name,
		CustomPlaceholders: map[string]string{"parkingLevel": "B2"},
	})
	require.NoError(t, err)
	tmpl := testutil.CreateTemplate(t, env.Templates, "Welcome", template.TypeWelcomeEmail,
		"Welcome {{firstName}}", "Join {{companyName}} as {{position}}. Park on {{parkingLevel}}. Bring {{laptop}}.")

	t.Run("sample candidate", func(t *testing.T) {
		r, err := env.Templates.Preview(ctx, tmpl.ID, template.PreviewRequest{})
		require.NoError(t, err)
		assert.Equal(t, "Welcome Jane", r.Subject)
		assert.Equal(t, "Join Acme Corp as Software Engineer. Park on B2. Bring {{laptop}}.", r.Body)
		assert.Equal(t, []string{"laptop"}, r.Unresolved)
		assert.Contains(t, r.HTML, "Acme Corp")
	})

	t.Run("real candidate with overrides", func(t *testing.T) {
		c := testutil.CreateCandidate(t, env.Candidates, "Asha Rao", "asha@example.com", "Sales", nil)
		r, err := env.Templates.Preview(ctx, tmpl.ID, template.PreviewRequest{
			CandidateID: c.ID,
			Overrides:   map[string]string{"laptop": "your ID card", "parkingLevel": "P1"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Welcome Asha", r.Subject)
		assert.Equal(t, "Join Acme Corp as Engineer. Park on P1. Bring your ID card.", r.Body)
		assert.Empty(t, r.Unresolved)
	})

	t.Run("unknown candidate", func(t *testing.T) {
		_, err := env.Templates.Preview(ctx, tmpl.ID, template.PreviewRequest{CandidateID: "3b7c2f4e-1111-4a2b-9c3d-000000000000"})
		assert.True(t, core.IsNotFound(err))
	})
}
