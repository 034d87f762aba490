package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/shule/core/school"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db        *sql.DB
	schoolSvc *school.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run DB migrations (up, down, status, ...)")
	fmt.Println("  addstudent -id ID -no STUDENT_NO -name NAME [-email EMAIL] [-parent PARENT_ID] - provision a student profile")
	fmt.Println("  addstaff -role ROLE -id ID -name NAME [-email EMAIL] - provision a teacher/parent/admin/accountant profile")
	fmt.Println("  setpassword -profile PROFILE_ID -email EMAIL - set a profile's local credential; the password will be prompted next")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addStudentCmd := flag.NewFlagSet("addstudent", flag.ExitOnError)
	addStudentID := addStudentCmd.String("id", "", "The student's external identity id.")
	addStudentNo := addStudentCmd.String("no", "", "The school-issued student number.")
	addStudentName := addStudentCmd.String("name", "", "The student's full name.")
	addStudentEmail := addStudentCmd.String("email", "", "The student's email address.")
	addStudentParent := addStudentCmd.String("parent", "", "The id of an already provisioned parent profile.")

	addStaffCmd := flag.NewFlagSet("addstaff", flag.ExitOnError)
	addStaffRole := addStaffCmd.String("role", "", "One of: teacher, parent, admin, accountant.")
	addStaffID := addStaffCmd.String("id", "", "The staff member's external identity id.")
	addStaffName := addStaffCmd.String("name", "", "The staff member's full name.")
	addStaffEmail := addStaffCmd.String("email", "", "The staff member's email address.")

	setPasswordCmd := flag.NewFlagSet("setpassword", flag.ExitOnError)
	setPasswordProfile := setPasswordCmd.String("profile", "", "The profile's id. The password will be prompted next.")
	setPasswordEmail := setPasswordCmd.String("email", "", "The login email for the credential.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "addstudent":
		if err := addStudentCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addStudentID == "" || *addStudentNo == "" || *addStudentName == "" {
			addStudentCmd.Usage()
			return errHelp
		}
		return cli.addStudent(*addStudentID, *addStudentNo, *addStudentName, *addStudentEmail, *addStudentParent)
	case "addstaff":
		if err := addStaffCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addStaffRole == "" || *addStaffID == "" || *addStaffName == "" {
			addStaffCmd.Usage()
			return errHelp
		}
		return cli.addStaff(*addStaffRole, *addStaffID, *addStaffName, *addStaffEmail)
	case "setpassword":
		if err := setPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *setPasswordProfile == "" || *setPasswordEmail == "" {
			setPasswordCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			setPasswordCmd.Usage()
			return errHelp
		}
		return cli.setPassword(*setPasswordProfile, *setPasswordEmail, string(pwd))
	default:
		cli.printUsage()
		return errHelp
	}
}
