package echoapi

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/dashboard"
	"github.com/ironladytech/onboarding/core/email"
	"github.com/ironladytech/onboarding/core/settings"
)

const headerWebhookSecret = "X-Webhook-Secret"

type settingsApi struct {
	svc       *settings.Service
	dashboard *dashboard.Service
}

func registerSettingsAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := settingsApi{svc: deps.SettingsSvc, dashboard: deps.DashboardSvc}

	g.GET("/settings", api.retrieve, jwt, staffMiddleware())
	g.PUT("/settings", api.update, jwt, adminMiddleware())
	g.GET("/dashboard", api.summary, jwt, staffMiddleware())
}

func (api *settingsApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.Get(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "fetching settings")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *settingsApi) update(ctx echo.Context) error {
	var data settings.UpdateSettings
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSettings")
	}
	s, err := api.svc.Update(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "updating settings")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *settingsApi) summary(ctx echo.Context) error {
	sum, err := api.dashboard.Summary(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing dashboard summary")
	}
	return ctx.JSON(http.StatusOK, sum)
}

type webhookApi struct {
	secret string
	emails *email.Service
}

// registerWebhookAPI mounts provider callbacks. They are authenticated by a shared secret, not a JWT.
func registerWebhookAPI(g *echo.Group, deps ServerDeps) {
	api := webhookApi{secret: deps.Conf.WebhookSecret, emails: deps.EmailSvc}

	g.POST("/webhooks/email", api.emailEvents, api.checkSecret)
}

func (api *webhookApi) checkSecret(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		got := ctx.Request().Header.Get(headerWebhookSecret)
		// an unset secret disables the endpoint
		if api.secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(api.secret)) != 1 {
			return errBadWebhookSecret
		}
		return next(ctx)
	}
}

func (api *webhookApi) emailEvents(ctx echo.Context) error {
	var events []email.ProviderEvent
	if err := ctx.Bind(&events); err != nil {
		return errors.Wrap(err, "binding to []ProviderEvent")
	}
	if len(events) == 0 {
		return core.NewValidationError(errors.New("no events"))
	}
	n, err := api.emails.ApplyProviderEvents(ctx.Request().Context(), events)
	if err != nil {
		return errors.Wrap(err, "applying delivery events")
	}
	return ctx.JSON(http.StatusOK, WebhookResponse{Updated: n})
}

type WebhookResponse struct {
	Updated int `json:"updated"`
}
