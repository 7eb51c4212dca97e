package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

func (cli *commandLine) weeklyDigest() error {
	res, err := cli.digest.Run(context.Background())
	if err != nil {
		return errors.Wrap(err, "running weekly digest")
	}
	fmt.Fprintf(cli.stdout(), "weekly digest: %d sent, %d skipped\n", res.Sent, res.Skipped)
	return nil
}
