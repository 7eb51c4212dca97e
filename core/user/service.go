package user

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/paku/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound           = core.NewNotFoundError("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = core.NewAuthError("Invalid email or password.")
)

type (
	GetFilter struct {
		ID    string
		Email string
	}

	Repository interface {
		EmailExists(ctx context.Context, email string) (bool, error)
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		QueryUsers(ctx context.Context, filter *QueryFilter) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckUniqueness(ctx context.Context, email string) error {
	exists, err := svc.repo.EmailExists(ctx, email)
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := NowFunc().UTC()
	roles := nu.Roles
	if len(roles) == 0 {
		roles = []string{RoleParent}
	}
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		IsActive:  true,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

// Register creates a parent account. Self sign-up can never grant admin rights.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	nu.Roles = []string{RoleParent}
	return svc.Create(ctx, nu)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) QueryParents(ctx context.Context) ([]User, error) {
	active := true
	return svc.repo.QueryUsers(ctx, &QueryFilter{Roles: []string{RoleParent}, IsActive: &active})
}

// Authenticate checks the email & password pair of an active account and stamps its last login.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil || !usr.IsActive {
		return User{}, ErrInvalidCredentials
	}
	usr.LastLogin = NowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// SetPassword replaces the password of the User with the given email.
func (svc *Service) SetPassword(ctx context.Context, email, pwd string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = NowFunc().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

// UpdateOrCreateAdmin makes sure an active admin account with the given credentials exists.
func (svc *Service) UpdateOrCreateAdmin(ctx context.Context, name, email, pwd string) (User, error) {
	email = core.CleanString(email, true /* lower */)
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return User{}, err
		}
		return svc.Create(ctx, NewUser{Name: name, Email: email, Password: pwd, Roles: []string{RoleAdmin}})
	}
	if !usr.IsAdmin() {
		usr.Roles = append(usr.Roles, RoleAdmin)
	}
	if name != "" {
		usr.Name = name
	}
	usr.IsActive = true
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}
