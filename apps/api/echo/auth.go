package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/paku/core"
)

const (
	jwtAudience   = "paku"
	jwtContextKey = "userToken"
)

// Claims represents the authorization claims transmitted via a JWT.
// Subject is the actor id and Id (jti) the session id.
type Claims struct {
	jwt.StandardClaims
	Name string    `json:"name,omitempty"`
	Role core.Role `json:"role"`
}

func (c Claims) Actor() core.Actor {
	return core.Actor{ID: c.Subject, Name: c.Name, Role: c.Role, SessionID: c.Id}
}

// NewClaims returns the claims of a fresh session of actor.
func NewClaims(conf *core.Config, actor core.Actor) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        actor.SessionID,
			Issuer:    conf.AppName,
			Subject:   actor.ID,
			Audience:  jwtAudience,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name: actor.Name,
		Role: actor.Role,
	}
}

type jwtAuth struct {
	config middleware.JWTConfig
}

func newJWTAuth(conf *core.Config) *jwtAuth {
	return &jwtAuth{
		config: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    jwtContextKey,
			Claims:        new(Claims),
		},
	}
}

func (ja *jwtAuth) middleware() echo.MiddlewareFunc {
	return middleware.JWTWithConfig(ja.config)
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(jwtContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// contextActor returns the identity of the request, or a zero Actor for anonymous requests.
func contextActor(ctx echo.Context) core.Actor {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return core.Actor{}
	}
	return claims.Actor()
}
