// Package settings holds the company-wide values used when rendering candidate emails.
package settings

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/ironladytech/onboarding/core"
)

var ErrNotFound = core.NewNotFoundError("settings")

type Settings struct {
	CompanyName        string            `json:"company_name"`
	HRName             string            `json:"hr_name"`
	HREmail            string            `json:"hr_email"`
	HRPhone            string            `json:"hr_phone"`
	OfficeAddress      string            `json:"office_address"`
	PrimaryColor       string            `json:"primary_color"`
	CustomPlaceholders map[string]string `json:"custom_placeholders"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// Placeholders returns the template values contributed by the settings.
// Custom placeholders never shadow the built-in keys.
func (s Settings) Placeholders() map[string]string {
	p := make(map[string]string, len(s.CustomPlaceholders)+5)
	for k, v := range s.CustomPlaceholders {
		p[k] = v
	}
	p["companyName"] = s.CompanyName
	p["hrName"] = s.HRName
	p["hrEmail"] = s.HREmail
	p["hrPhone"] = s.HRPhone
	p["officeAddress"] = s.OfficeAddress
	return p
}

func (s Settings) Branding(siteURL string) core.Branding {
	return core.Branding{CompanyName: s.CompanyName, PrimaryColor: s.PrimaryColor, SiteURL: siteURL}
}

type UpdateSettings struct {
	CompanyName        *string           `json:"company_name" validate:"omitempty,min=1,max=200"`
	HRName             *string           `json:"hr_name" validate:"omitempty,max=200"`
	HREmail            *string           `json:"hr_email" validate:"omitempty,email"`
	HRPhone            *string           `json:"hr_phone" validate:"omitempty,max=50"`
	OfficeAddress      *string           `json:"office_address" validate:"omitempty,max=500"`
	PrimaryColor       *string           `json:"primary_color" validate:"omitempty,hexcolor"`
	CustomPlaceholders map[string]string `json:"custom_placeholders" validate:"omitempty,dive,keys,placeholderkey,endkeys"`
}

type Repository interface {
	// GetSettings returns ErrNotFound until settings are saved once.
	GetSettings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) (Settings, error)
}

type Service struct {
	repo     Repository
	validate *validator.Validate
	conf     *core.Config
}

func NewService(repo Repository, validate *validator.Validate, conf *core.Config) *Service {
	return &Service{repo: repo, validate: validate, conf: conf}
}

func (svc *Service) defaults() Settings {
	from := svc.conf.DefaultFromEmail()
	return Settings{
		CompanyName:        svc.conf.AppName,
		HRName:             from.Name,
		HREmail:            from.Address,
		CustomPlaceholders: map[string]string{},
	}
}

// Get loads the current settings, falling back to configuration defaults.
func (svc *Service) Get(ctx context.Context) (Settings, error) {
	s, err := svc.repo.GetSettings(ctx)
	if err != nil {
		if core.IsNotFound(err) {
			return svc.defaults(), nil
		}
		return Settings{}, errors.Wrap(err, "getting settings")
	}
	if s.CustomPlaceholders == nil {
		s.CustomPlaceholders = map[string]string{}
	}
	return s, nil
}

func (svc *Service) Update(ctx context.Context, us UpdateSettings) (Settings, error) {
	us.CompanyName = core.CleanStringPtr(us.CompanyName)
	us.HREmail = core.CleanStringPtr(us.HREmail, true /* lower */)
	if err := svc.validate.Struct(us); err != nil {
		return Settings{}, err
	}

	s, err := svc.Get(ctx)
	if err != nil {
		return Settings{}, err
	}
	if us.CompanyName != nil {
		s.CompanyName = *us.CompanyName
	}
	if us.HRName != nil {
		s.HRName = core.CleanString(*us.HRName)
	}
	if us.HREmail != nil {
		s.HREmail = *us.HREmail
	}
	if us.HRPhone != nil {
		s.HRPhone = core.CleanString(*us.HRPhone)
	}
	if us.OfficeAddress != nil {
		s.OfficeAddress = core.CleanString(*us.OfficeAddress)
	}
	if us.PrimaryColor != nil {
		s.PrimaryColor = *us.PrimaryColor
	}
	if us.CustomPlaceholders != nil {
		s.CustomPlaceholders = us.CustomPlaceholders
	}
	s.UpdatedAt = core.NowFunc().UTC()

	s, err = svc.repo.SaveSettings(ctx, s)
	return s, errors.Wrap(err, "saving settings")
}
