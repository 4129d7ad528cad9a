package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/classledger/backend/core/roster"
)

// addFaculty creates a faculty account, or resets an existing one's password
// and admin flag.
func (cli *commandLine) addFaculty(uname, name, email, pwd string, isAdmin bool) error {
	ctx := context.Background()

	fac, err := cli.rosterSvc.GetFacultyByUsername(ctx, uname)
	if err != nil {
		if errors.Cause(err) != roster.ErrFacultyNotFound {
			return err
		}
		_, err = cli.rosterSvc.CreateFaculty(ctx, roster.NewFaculty{
			Name:     name,
			Username: uname,
			Email:    email,
			Password: pwd,
			IsAdmin:  isAdmin,
		})
		return err
	}

	fac.Name = name
	fac.IsAdmin = isAdmin
	fac.IsActive = true
	if email != "" {
		fac.Email = email
	}
	_, err = cli.rosterSvc.SetPassword(ctx, fac, pwd)
	return err
}
