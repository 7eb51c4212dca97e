package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	if err := cli.usrSvc.SetPassword(context.Background(), email, pwd); err != nil {
		return err
	}
	fmt.Fprintln(cli.stdout(), "password updated")
	return nil
}
