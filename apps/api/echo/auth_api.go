package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/paku/core"
	"github.com/trezcool/paku/core/participant"
	"github.com/trezcool/paku/core/user"
	"github.com/trezcool/paku/services/metrics"
)

const participantHome = "/participant/tasks"

var newSessionID = uuid.NewString // mockable

var roleHomes = map[core.Role]string{
	core.RoleAdmin:  "/admin/dashboard",
	core.RoleParent: "/parent/dashboard",
}

type authApi struct {
	deps ServerDeps
}

func registerAuthAPI(g *echo.Group, deps ServerDeps) {
	api := authApi{deps: deps}

	g.POST("/pin-login", api.pinLogin)
	g.POST("/login", api.login)
	g.POST("/register", api.register)
}

// Handlers

func (api *authApi) pinLogin(ctx echo.Context) error {
	var data PinLoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PinLoginRequest")
	}

	sess, err := api.deps.PinAuth.Login(ctx.Request().Context(), data.PIN, ctx.RealIP())
	api.observeLogin(err)
	if err != nil {
		return err
	}

	token, err := GenerateToken(api.deps.Conf, NewClaims(api.deps.Conf, sess.Actor()))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, PinLoginResponse{
		Token:       token,
		Redirect:    participantHome,
		Participant: sess.Participant,
	})
}

func (api *authApi) observeLogin(err error) {
	if api.deps.Metrics == nil {
		return
	}
	outcome := metrics.LoginSuccess
	switch errors.Cause(err).(type) {
	case nil:
	case *core.ValidationError:
		outcome = metrics.LoginInvalid
	case *core.RateLimitError:
		outcome = metrics.LoginLocked
	case *core.AuthError:
		outcome = metrics.LoginFailed
	default:
		return
	}
	api.deps.Metrics.IncPinLogin(outcome)
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	usr, err := api.deps.UserSvc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return err
	}
	actor := usr.Actor(newSessionID())
	token, err := GenerateToken(api.deps.Conf, NewClaims(api.deps.Conf, actor))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Redirect: roleHomes[actor.Role], User: usr})
}

// register is the parent self sign-up.
func (api *authApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	reqCtx := ctx.Request().Context()
	if err := data.Validate(reqCtx, api.deps.Validate, api.deps.UserSvc); err != nil {
		return err
	}

	usr, err := api.deps.UserSvc.Register(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "registering parent")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

type (
	PinLoginRequest struct {
		PIN string `json:"pin"`
	}

	PinLoginResponse struct {
		Token       string                  `json:"token"`
		Redirect    string                  `json:"redirect"`
		Participant participant.Participant `json:"participant"`
	}

	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token    string    `json:"token"`
		Redirect string    `json:"redirect"`
		User     user.User `json:"user"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}
