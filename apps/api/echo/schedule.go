package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ironladytech/onboarding/core/event"
	"github.com/ironladytech/onboarding/core/schedule"
	"github.com/ironladytech/onboarding/core/template"
)

type scheduleApi struct {
	svc    *schedule.Service
	events *event.Service
}

func registerScheduleAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := scheduleApi{svc: deps.ScheduleSvc, events: deps.EventSvc}

	g.POST("/schedule/batch", api.batch, jwt, staffMiddleware())

	eg := g.Group("/events", jwt, staffMiddleware())
	eg.GET("", api.queryEvents)
	eg.GET("/:id", api.retrieveEvent)
	eg.POST("/:id/cancel", api.cancelEvent)
	eg.POST("/:id/complete", api.completeEvent)
	eg.POST("/:id/reschedule", api.rescheduleEvent)
	eg.POST("/:id/attachments", api.addAttachments)
}

// batch always answers 200 once the request itself is valid; per-candidate failures
// are reported in the results.
func (api *scheduleApi) batch(ctx echo.Context) error {
	var data schedule.BatchRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BatchRequest")
	}
	results, err := api.svc.BatchSchedule(ctx.Request().Context(), data, actor(ctx))
	if err != nil {
		return errors.Wrap(err, "scheduling batch")
	}
	return ctx.JSON(http.StatusOK, BatchResponse{Results: results, Summary: summarize(results)})
}

func (api *scheduleApi) queryEvents(ctx echo.Context) error {
	from, err := queryTime(ctx, "from")
	if err != nil {
		return err
	}
	to, err := queryTime(ctx, "to")
	if err != nil {
		return err
	}
	filter := event.QueryFilter{
		CandidateID: ctx.QueryParam("candidate_id"),
		StepID:      ctx.QueryParam("step_id"),
		Type:        template.Type(ctx.QueryParam("type")),
		From:        from,
		To:          to,
	}
	for _, s := range queryList(ctx, "status") {
		filter.Statuses = append(filter.Statuses, event.Status(s))
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	evs, err := api.events.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	return ctx.JSON(http.StatusOK, evs)
}

func (api *scheduleApi) retrieveEvent(ctx echo.Context) error {
	e, err := api.events.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding event")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *scheduleApi) cancelEvent(ctx echo.Context) error {
	e, err := api.events.Cancel(ctx.Request().Context(), ctx.Param("id"), actor(ctx))
	if err != nil {
		return errors.Wrap(err, "cancelling event")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *scheduleApi) completeEvent(ctx echo.Context) error {
	e, err := api.events.Complete(ctx.Request().Context(), ctx.Param("id"), actor(ctx))
	if err != nil {
		return errors.Wrap(err, "completing event")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *scheduleApi) rescheduleEvent(ctx echo.Context) error {
	var data event.RescheduleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RescheduleRequest")
	}
	e, err := api.events.Reschedule(ctx.Request().Context(), ctx.Param("id"), data, actor(ctx))
	if err != nil {
		return errors.Wrap(err, "rescheduling event")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *scheduleApi) addAttachments(ctx echo.Context) error {
	var data event.AttachmentsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AttachmentsRequest")
	}
	e, err := api.events.AddAttachments(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding event attachments")
	}
	return ctx.JSON(http.StatusOK, e)
}

type (
	BatchSummary struct {
		Total     int `json:"total"`
		Succeeded int `json:"succeeded"`
		Failed    int `json:"failed"`
	}

	BatchResponse struct {
		Results []schedule.Result `json:"results"`
		Summary BatchSummary      `json:"summary"`
	}
)

func summarize(results []schedule.Result) BatchSummary {
	s := BatchSummary{Total: len(results)}
	for _, r := range results {
		if r.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}
