package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/paku/core/participant"
)

type parentApi struct {
	deps ServerDeps
}

func registerParentAPI(g *echo.Group, deps ServerDeps) {
	api := parentApi{deps: deps}

	g.POST("/participants", api.registerChild)
	g.GET("/participants", api.listChildren)
	g.GET("/participants/:id/report", api.childReport)
}

// Handlers

func (api *parentApi) registerChild(ctx echo.Context) error {
	var data participant.NewParticipant
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewParticipant")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	p, err := api.deps.ParticipantSvc.Register(ctx.Request().Context(), contextActor(ctx), data)
	if err != nil {
		return errors.Wrap(err, "registering participant")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *parentApi) listChildren(ctx echo.Context) error {
	children, err := api.deps.ParticipantSvc.QueryByParent(ctx.Request().Context(), contextActor(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "querying participants")
	}
	return ctx.JSON(http.StatusOK, ParticipantsResponse{Results: children})
}

func (api *parentApi) childReport(ctx echo.Context) error {
	rep, err := api.deps.ReportSvc.ParentReport(ctx.Request().Context(), contextActor(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building parent report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

type ParticipantsResponse struct {
	Results []participant.Participant `json:"results"`
}
