package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/activity"
	"github.com/ironladytech/onboarding/core/candidate"
	"github.com/ironladytech/onboarding/core/email"
	"github.com/ironladytech/onboarding/core/event"
	"github.com/ironladytech/onboarding/core/schedule"
)

const defaultActivityLimit = 50

type candidateApi struct {
	svc      *candidate.Service
	schedule *schedule.Service
	events   *event.Service
	emails   *email.Service
	activity *activity.Service
	logger   core.Logger
}

func registerCandidateAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := candidateApi{
		svc:      deps.CandidateSvc,
		schedule: deps.ScheduleSvc,
		events:   deps.EventSvc,
		emails:   deps.EmailSvc,
		activity: deps.ActivitySvc,
		logger:   deps.Logger,
	}

	cg := g.Group("/candidates", jwt, staffMiddleware())
	cg.GET("", api.query)
	cg.POST("", api.create)

	// detail endpoints
	dg := cg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.POST("/status", api.setStatus)
	dg.GET("/steps", api.progress)
	dg.GET("/events", api.listEvents)
	dg.GET("/emails", api.listEmails)
	dg.GET("/activities", api.listActivities)
}

func (api *candidateApi) query(ctx echo.Context) error {
	from, err := queryDate(ctx, "joining_from")
	if err != nil {
		return err
	}
	to, err := queryDate(ctx, "joining_to")
	if err != nil {
		return err
	}
	filter := candidate.QueryFilter{
		Search:      ctx.QueryParam("search"),
		Department:  ctx.QueryParam("department"),
		JoiningFrom: from,
		JoiningTo:   to,
	}
	for _, s := range queryList(ctx, "status") {
		filter.Statuses = append(filter.Statuses, candidate.Status(s))
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	page, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings, bindPagination(ctx))
	if err != nil {
		return errors.Wrap(err, "querying candidates")
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *candidateApi) create(ctx echo.Context) error {
	var data candidate.NewCandidate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCandidate")
	}
	c, err := api.svc.Create(ctx.Request().Context(), data, actor(ctx))
	if err != nil {
		return errors.Wrap(err, "creating candidate")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *candidateApi) retrieve(ctx echo.Context) error {
	c, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding candidate")
	}
	return ctx.JSON(http.StatusOK, c)
}

// update saves the candidate, then moves their pending computed events when an anchor date changed.
func (api *candidateApi) update(ctx echo.Context) error {
	var data candidate.UpdateCandidate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCandidate")
	}
	reqCtx := ctx.Request().Context()

	c, changes, err := api.svc.Update(reqCtx, ctx.Param("id"), data, actor(ctx))
	if err != nil {
		return errors.Wrap(err, "updating candidate")
	}

	resp := CandidateUpdateResponse{Candidate: c, Realigned: []event.ScheduledEvent{}}
	if changes.AnchorsChanged() {
		moved, err := api.schedule.Realign(reqCtx, c.ID, actor(ctx))
		if err != nil {
			api.logger.Error("realigning candidate events", err, map[string]interface{}{"candidate_id": c.ID})
		}
		if moved != nil {
			resp.Realigned = moved
		}
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *candidateApi) setStatus(ctx echo.Context) error {
	var data StatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusRequest")
	}
	c, err := api.svc.SetStatus(ctx.Request().Context(), ctx.Param("id"), data.Status, actor(ctx))
	if err != nil {
		return errors.Wrap(err, "setting candidate status")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *candidateApi) progress(ctx echo.Context) error {
	steps, err := api.schedule.Progress(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "computing candidate progress")
	}
	return ctx.JSON(http.StatusOK, steps)
}

func (api *candidateApi) listEvents(ctx echo.Context) error {
	c, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding candidate")
	}
	evs, err := api.events.ForCandidate(ctx.Request().Context(), c.ID)
	if err != nil {
		return errors.Wrap(err, "listing candidate events")
	}
	return ctx.JSON(http.StatusOK, evs)
}

func (api *candidateApi) listEmails(ctx echo.Context) error {
	c, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding candidate")
	}
	emails, err := api.emails.ListForCandidate(ctx.Request().Context(), c.ID)
	if err != nil {
		return errors.Wrap(err, "listing candidate emails")
	}
	return ctx.JSON(http.StatusOK, emails)
}

func (api *candidateApi) listActivities(ctx echo.Context) error {
	c, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding candidate")
	}
	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))
	if limit < 1 {
		limit = defaultActivityLimit
	}
	logs, err := api.activity.ListForCandidate(ctx.Request().Context(), c.ID, limit)
	if err != nil {
		return errors.Wrap(err, "listing candidate activities")
	}
	return ctx.JSON(http.StatusOK, logs)
}

type (
	StatusRequest struct {
		Status candidate.Status `json:"status"`
	}

	CandidateUpdateResponse struct {
		Candidate candidate.Candidate    `json:"candidate"`
		Realigned []event.ScheduledEvent `json:"realigned_events"`
	}
)
