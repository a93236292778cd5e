package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ironladytech/onboarding/core/template"
)

type templateApi struct {
	svc *template.Service
}

func registerTemplateAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := templateApi{svc: deps.TemplateSvc}

	tg := g.Group("/templates", jwt, staffMiddleware())
	tg.GET("", api.query)
	tg.POST("", api.create)
	tg.GET("/:id", api.retrieve)
	tg.PUT("/:id", api.update)
	tg.DELETE("/:id", api.destroy)
	tg.POST("/:id/preview", api.preview)
}

func (api *templateApi) query(ctx echo.Context) error {
	isActive, err := queryBool(ctx, "is_active")
	if err != nil {
		return err
	}
	filter := template.QueryFilter{
		Search:   ctx.QueryParam("search"),
		Type:     template.Type(ctx.QueryParam("type")),
		IsActive: isActive,
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	tmpls, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying email templates")
	}
	if tmpls == nil {
		tmpls = []template.EmailTemplate{}
	}
	return ctx.JSON(http.StatusOK, tmpls)
}

func (api *templateApi) create(ctx echo.Context) error {
	var data template.NewTemplate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTemplate")
	}
	t, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating email template")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *templateApi) retrieve(ctx echo.Context) error {
	t, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding email template")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *templateApi) update(ctx echo.Context) error {
	var data template.UpdateTemplate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTemplate")
	}
	t, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating email template")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *templateApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting email template")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *templateApi) preview(ctx echo.Context) error {
	var data template.PreviewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PreviewRequest")
	}
	r, err := api.svc.Preview(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "previewing email template")
	}
	return ctx.JSON(http.StatusOK, r)
}
