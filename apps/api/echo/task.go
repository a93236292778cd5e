package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ironladytech/onboarding/core/task"
)

type taskApi struct {
	svc *task.Service
}

func registerTaskAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := taskApi{svc: deps.TaskSvc}

	tg := g.Group("/tasks", jwt, staffMiddleware())
	tg.GET("", api.query)
	tg.POST("", api.create)
	tg.GET("/:id", api.retrieve)
	tg.DELETE("/:id", api.destroy)
	tg.POST("/:id/complete", api.complete)
	tg.POST("/:id/snooze", api.snooze)
}

func (api *taskApi) query(ctx echo.Context) error {
	dueBefore, err := queryTime(ctx, "due_before")
	if err != nil {
		return err
	}
	filter := task.QueryFilter{
		CandidateID: ctx.QueryParam("candidate_id"),
		Status:      task.Status(ctx.QueryParam("status")),
		DueBefore:   dueBefore,
	}
	tasks, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying tasks")
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *taskApi) create(ctx echo.Context) error {
	var data task.NewTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTask")
	}
	t, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating task")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *taskApi) retrieve(ctx echo.Context) error {
	t, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding task")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *taskApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting task")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *taskApi) complete(ctx echo.Context) error {
	t, err := api.svc.Complete(ctx.Request().Context(), ctx.Param("id"), actor(ctx))
	if err != nil {
		return errors.Wrap(err, "completing task")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *taskApi) snooze(ctx echo.Context) error {
	var data task.SnoozeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SnoozeRequest")
	}
	t, err := api.svc.Snooze(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "snoozing task")
	}
	return ctx.JSON(http.StatusOK, t)
}
