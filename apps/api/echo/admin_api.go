package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/paku/core"
	"github.com/trezcool/paku/core/auth"
	"github.com/trezcool/paku/core/participant"
	"github.com/trezcool/paku/core/report"
	"github.com/trezcool/paku/core/task"
)

type adminApi struct {
	deps ServerDeps
}

func registerAdminAPI(g *echo.Group, deps ServerDeps) {
	api := adminApi{deps: deps}

	g.GET("/csrf-token", api.csrfToken)
	g.GET("/summary", api.summary)

	g.POST("/assignments", api.createAssignments)
	g.GET("/assignments", api.queryAssignments)
	g.POST("/assignments/status", api.updateStatus)

	g.GET("/participants", api.queryParticipants)
	g.PUT("/participants/:id/review", api.reviewParticipant)

	g.POST("/tasks", api.createTask)
	g.GET("/tasks", api.queryTasks)
	g.GET("/tasks/:id", api.retrieveTask)
}

// Handlers

func (api *adminApi) csrfToken(ctx echo.Context) error {
	actor := contextActor(ctx)
	return ctx.JSON(http.StatusOK, CSRFTokenResponse{Token: auth.CSRFToken(api.deps.Conf.SecretKey, actor.SessionID)})
}

func (api *adminApi) summary(ctx echo.Context) error {
	sum, err := api.deps.ReportSvc.AdminSummary(ctx.Request().Context(), contextActor(ctx))
	if err != nil {
		return errors.Wrap(err, "building admin summary")
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *adminApi) createAssignments(ctx echo.Context) error {
	var data CreateAssignmentsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CreateAssignmentsRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	res, err := api.deps.AssignmentSvc.CreateAssignments(ctx.Request().Context(), contextActor(ctx), data.TaskID, data.ParticipantIDs)
	if err != nil {
		return errors.Wrap(err, "creating assignments")
	}
	if api.deps.Metrics != nil {
		api.deps.Metrics.AddAssignments(res.Assigned, res.Skipped)
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *adminApi) queryAssignments(ctx echo.Context) error {
	var filter report.AssignmentFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to AssignmentFilter")
	}
	rows, err := api.deps.ReportSvc.AssignmentReport(ctx.Request().Context(), contextActor(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	return ctx.JSON(http.StatusOK, AssignmentRowsResponse{Results: rows})
}

func (api *adminApi) updateStatus(ctx echo.Context) error {
	var data UpdateStatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStatusRequest")
	}
	actor := contextActor(ctx)
	if !auth.VerifyCSRFToken(api.deps.Conf.SecretKey, actor.SessionID, data.CSRFToken) {
		return core.NewAuthorizationError(actor, reasonBadCSRFToken)
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	a, err := api.deps.AssignmentSvc.SetStatusUnconditional(ctx.Request().Context(), actor, data.AssignmentID, data.NewStatus)
	if err != nil {
		return errors.Wrap(err, "updating assignment status")
	}
	if api.deps.Metrics != nil {
		api.deps.Metrics.IncStatusOverride(string(a.Status))
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *adminApi) queryParticipants(ctx echo.Context) error {
	var query ParticipantsQuery
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to ParticipantsQuery")
	}
	filter, err := query.filter()
	if err != nil {
		return err
	}
	results, err := api.deps.ParticipantSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying participants")
	}
	return ctx.JSON(http.StatusOK, ParticipantsResponse{Results: results})
}

func (api *adminApi) reviewParticipant(ctx echo.Context) error {
	var data participant.ReviewParticipant
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewParticipant")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	p, err := api.deps.ParticipantSvc.Review(ctx.Request().Context(), contextActor(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "reviewing participant")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *adminApi) createTask(ctx echo.Context) error {
	var data task.NewTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTask")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	t, err := api.deps.TaskSvc.Create(ctx.Request().Context(), contextActor(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating task")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *adminApi) queryTasks(ctx echo.Context) error {
	tasks, err := api.deps.TaskSvc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying tasks")
	}
	return ctx.JSON(http.StatusOK, TasksListResponse{Results: tasks})
}

func (api *adminApi) retrieveTask(ctx echo.Context) error {
	t, err := api.deps.TaskSvc.GetWithSteps(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting task")
	}
	return ctx.JSON(http.StatusOK, t)
}

type (
	CSRFTokenResponse struct {
		Token string `json:"csrfToken"`
	}

	CreateAssignmentsRequest struct {
		TaskID         string   `json:"taskId" validate:"required,uuid"`
		ParticipantIDs []string `json:"participantIds" validate:"required,min=1,dive,uuid"`
	}

	UpdateStatusRequest struct {
		AssignmentID string `json:"assignmentId" validate:"required,uuid"`
		NewStatus    string `json:"newStatus" validate:"required,status"`
		CSRFToken    string `json:"csrfToken"`
	}

	ParticipantsQuery struct {
		Skill    string `query:"skill"`
		IsActive string `query:"active"`
	}

	AssignmentRowsResponse struct {
		Results []report.AssignmentRow `json:"results"`
	}

	TasksListResponse struct {
		Results []task.Task `json:"results"`
	}
)

func (car *CreateAssignmentsRequest) Validate(validate *validator.Validate) error {
	car.TaskID = core.CleanString(car.TaskID)
	for i := range car.ParticipantIDs {
		car.ParticipantIDs[i] = core.CleanString(car.ParticipantIDs[i])
	}
	return validate.Struct(car)
}

func (usr *UpdateStatusRequest) Validate(validate *validator.Validate) error {
	usr.AssignmentID = core.CleanString(usr.AssignmentID)
	usr.NewStatus = core.CleanString(usr.NewStatus)
	return validate.Struct(usr)
}

// filter accepts `Pending` as a skill level, for the profiles awaiting review.
func (pq ParticipantsQuery) filter() (*participant.QueryFilter, error) {
	filter := new(participant.QueryFilter)
	if skill := core.CleanString(pq.Skill); skill != "" {
		lvl := participant.SkillLevel(skill)
		if lvl != participant.SkillPending {
			var err error
			if lvl, err = participant.ParseSkillLevel(skill); err != nil {
				return nil, core.NewValidationError(err, core.FieldError{Field: "skill", Error: "invalid skill level"})
			}
		}
		filter.SkillLevel = lvl
	}
	switch core.CleanString(pq.IsActive, true /* lower */) {
	case "":
	case "true", "1":
		active := true
		filter.IsActive = &active
	case "false", "0":
		active := false
		filter.IsActive = &active
	default:
		return nil, core.NewValidationError(nil, core.FieldError{Field: "active", Error: "must be true or false"})
	}
	return filter, nil
}
