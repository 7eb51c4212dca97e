package main

import (
	"context"
	"fmt"

	"github.com/trezcool/paku/core"
	"github.com/trezcool/paku/core/user"
)

// addUser updates or creates an admin, or creates a parent.
func (cli *commandLine) addUser(name, email, pwd, role string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	if tag := user.CheckPassword(pwd, name, email); tag != "" {
		return fmt.Errorf("invalid password: %s", user.PasswordPolicyText(tag))
	}

	var usr user.User
	var err error
	switch role {
	case user.RoleAdmin:
		usr, err = cli.usrSvc.UpdateOrCreateAdmin(ctx, name, email, pwd)
	default:
		if err = cli.usrSvc.CheckUniqueness(ctx, email); err != nil {
			return err
		}
		usr, err = cli.usrSvc.Register(ctx, user.NewUser{Name: name, Email: email, Password: pwd, PasswordConfirm: pwd})
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.stdout(), "%s user %s saved\n", role, usr.Email)
	return nil
}
