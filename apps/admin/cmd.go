package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/classledger/backend/core"
	"github.com/classledger/backend/core/attendance"
	"github.com/classledger/backend/core/roster"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db        *sqlx.DB
	conf      *core.Config
	rosterSvc *roster.Service
	attSvc    *attendance.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate up|down|redo|status|version          - run database migrations")
	fmt.Println("  addfaculty -username USERNAME -name NAME [-email EMAIL] [-admin] - create a faculty account")
	fmt.Println("  resetpassword -username USERNAME             - reset a faculty member's password")
	fmt.Println("  notifygaps [-date DD/MM/YYYY]                - email the missing-attendance digest")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addFacultyCmd := flag.NewFlagSet("addfaculty", flag.ExitOnError)
	addFacultyUname := addFacultyCmd.String("username", "", "The faculty member's username. The password will be prompted next.")
	addFacultyName := addFacultyCmd.String("name", "", "The faculty member's display name, as written in attendance records.")
	addFacultyEmail := addFacultyCmd.String("email", "", "The faculty member's email address.")
	addFacultyAdmin := addFacultyCmd.Bool("admin", false, "Grant admin access.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The faculty member's username. The password will be prompted next.")

	notifyGapsCmd := flag.NewFlagSet("notifygaps", flag.ExitOnError)
	notifyGapsDate := notifyGapsCmd.String("date", "", "The date to report on, DD/MM/YYYY. Defaults to today.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "addfaculty":
		if err := addFacultyCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addFacultyUname == "" || *addFacultyName == "" {
			addFacultyCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			if err == errHelp {
				addFacultyCmd.Usage()
			}
			return err
		}
		return cli.addFaculty(*addFacultyUname, *addFacultyName, *addFacultyEmail, pwd, *addFacultyAdmin)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			if err == errHelp {
				resetPasswordCmd.Usage()
			}
			return err
		}
		return cli.resetPassword(*resetPasswordUname, pwd)
	case "notifygaps":
		if err := notifyGapsCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.notifyGaps(*notifyGapsDate)
	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errHelp
	}
	return string(pwd), nil
}
