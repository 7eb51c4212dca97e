package echoapi

import (
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/paku/core"
	"github.com/trezcool/paku/core/assignment"
	"github.com/trezcool/paku/core/report"
)

const evaluatePath = "/participant/evaluate"

type participantApi struct {
	deps ServerDeps
}

func registerParticipantAPI(g *echo.Group, deps ServerDeps) {
	api := participantApi{deps: deps}

	g.GET("/tasks", api.tasks)
	g.GET("/step", api.step)
	g.POST("/evaluate", api.evaluate)
}

// Handlers

func (api *participantApi) tasks(ctx echo.Context) error {
	rows, err := api.deps.ReportSvc.ParticipantTasks(ctx.Request().Context(), contextActor(ctx))
	if err != nil {
		return errors.Wrap(err, "listing participant tasks")
	}
	return ctx.JSON(http.StatusOK, TasksResponse{Results: rows})
}

func (api *participantApi) step(ctx echo.Context) error {
	var query StepQuery
	if err := ctx.Bind(&query); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "step", Error: "must be a number"})
	}
	if ctx.QueryParam("step") == "" {
		query.Step = 1
	}
	if err := query.Validate(api.deps.Validate); err != nil {
		return err
	}

	a, res, started, err := api.deps.StepTracker.Navigate(ctx.Request().Context(), contextActor(ctx), query.AssignmentID, query.Step)
	if err != nil {
		return errors.Wrap(err, "navigating steps")
	}
	if started && api.deps.Metrics != nil {
		api.deps.Metrics.IncAssignmentStarted()
	}

	resp := StepResponse{StepResult: res, Status: a.Status}
	if res.Evaluate {
		resp.Redirect = evaluatePath + "?" + url.Values{"assignmentId": {a.ID}}.Encode()
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *participantApi) evaluate(ctx echo.Context) error {
	var data EvaluateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EvaluateRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	eval, err := api.deps.Recorder.Submit(ctx.Request().Context(), contextActor(ctx), data.AssignmentID, data.Sentiment)
	if err != nil {
		return errors.Wrap(err, "submitting evaluation")
	}
	if api.deps.Metrics != nil {
		api.deps.Metrics.IncEvaluation(string(eval.Sentiment))
	}
	return ctx.JSON(http.StatusCreated, EvaluateResponse{
		Success:    "Thank you! Your task is complete.",
		Redirect:   participantHome,
		Evaluation: eval,
	})
}

type (
	TasksResponse struct {
		Results []report.AssignmentRow `json:"results"`
	}

	StepQuery struct {
		AssignmentID string `query:"assignmentId" validate:"required,uuid"`
		Step         int    `query:"step"`
	}

	StepResponse struct {
		assignment.StepResult
		Status   assignment.Status `json:"status"`
		Redirect string            `json:"redirect,omitempty"`
	}

	EvaluateRequest struct {
		AssignmentID string `json:"assignmentId" validate:"required,uuid"`
		Sentiment    string `json:"sentiment" validate:"required,sentiment"`
	}

	EvaluateResponse struct {
		Success    string                `json:"success"`
		Redirect   string                `json:"redirect"`
		Evaluation assignment.Evaluation `json:"evaluation"`
	}
)

func (sq *StepQuery) Validate(validate *validator.Validate) error {
	sq.AssignmentID = core.CleanString(sq.AssignmentID)
	return validate.Struct(sq)
}

func (er *EvaluateRequest) Validate(validate *validator.Validate) error {
	er.AssignmentID = core.CleanString(er.AssignmentID)
	return validate.Struct(er)
}
