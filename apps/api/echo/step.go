package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/schedule"
	"github.com/ironladytech/onboarding/core/step"
)

type stepApi struct {
	svc      *step.Service
	schedule *schedule.Service
}

func registerStepAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := stepApi{svc: deps.StepSvc, schedule: deps.ScheduleSvc}

	dg := g.Group("/departments", jwt, staffMiddleware())
	dg.GET("", api.departments)
	dg.GET("/:department/steps", api.list)
	dg.POST("/:department/steps", api.create)
	dg.POST("/:department/steps/initialize", api.initialize)

	sg := g.Group("/steps", jwt, staffMiddleware())
	sg.POST("/reorder", api.reorder)
	sg.PUT("/:id", api.update)
	sg.DELETE("/:id", api.destroy)
	sg.POST("/:id/move", api.move)
	sg.GET("/:id/resolve", api.resolve)
}

func (api *stepApi) departments(ctx echo.Context) error {
	deps, err := api.svc.Departments(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing departments")
	}
	return ctx.JSON(http.StatusOK, deps)
}

func (api *stepApi) list(ctx echo.Context) error {
	steps, err := api.svc.List(ctx.Request().Context(), ctx.Param("department"))
	if err != nil {
		return errors.Wrap(err, "listing department steps")
	}
	return ctx.JSON(http.StatusOK, steps)
}

func (api *stepApi) create(ctx echo.Context) error {
	var data step.NewStep
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStep")
	}
	s, err := api.svc.Create(ctx.Request().Context(), ctx.Param("department"), data)
	if err != nil {
		return errors.Wrap(err, "creating department step")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *stepApi) initialize(ctx echo.Context) error {
	steps, err := api.svc.InitializeDefaults(ctx.Request().Context(), ctx.Param("department"))
	if err != nil {
		return errors.Wrap(err, "initializing department steps")
	}
	return ctx.JSON(http.StatusCreated, steps)
}

func (api *stepApi) update(ctx echo.Context) error {
	var data step.UpdateStep
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStep")
	}
	s, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating department step")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *stepApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting department step")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *stepApi) reorder(ctx echo.Context) error {
	var data step.ReorderRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReorderRequest")
	}
	steps, err := api.svc.Swap(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "reordering department steps")
	}
	return ctx.JSON(http.StatusOK, steps)
}

func (api *stepApi) move(ctx echo.Context) error {
	var data step.MoveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MoveRequest")
	}
	steps, err := api.svc.Move(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "moving department step")
	}
	return ctx.JSON(http.StatusOK, steps)
}

// resolve previews the date-time the step would get for a candidate.
func (api *stepApi) resolve(ctx echo.Context) error {
	candidateID := ctx.QueryParam("candidate_id")
	if candidateID == "" {
		return core.NewFieldError("candidate_id", "this field is required")
	}
	res, err := api.schedule.ResolveFor(ctx.Request().Context(), ctx.Param("id"), candidateID)
	if err != nil {
		return errors.Wrap(err, "resolving step date")
	}
	return ctx.JSON(http.StatusOK, res)
}
