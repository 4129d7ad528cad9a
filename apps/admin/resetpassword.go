package main

import (
	"context"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	fac, err := cli.rosterSvc.GetFacultyByUsername(ctx, uname)
	if err != nil {
		return err
	}
	_, err = cli.rosterSvc.SetPassword(ctx, fac, pwd)
	return err
}
