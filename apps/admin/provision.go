package main

import (
	"context"
	"fmt"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/identity"
	"github.com/trezcool/shule/core/school"
)

// addStudent provisions a school.Student profile.
func (cli *commandLine) addStudent(id, studentNo, name, email, parentID string) error {
	ctx := context.Background()
	std, err := cli.schoolSvc.ProvisionStudent(ctx, school.NewStudent{
		ID:        core.CleanString(id),
		StudentNo: core.CleanString(studentNo, true /* lower */),
		Name:      core.CleanString(name),
		Email:     core.CleanString(email, true /* lower */),
		ParentID:  core.CleanString(parentID),
	})
	if err != nil {
		return err
	}
	fmt.Printf("student %s (%s) provisioned\n", std.ID, std.StudentNo)
	return nil
}

// addStaff provisions a staff profile under one of the staff roles.
func (cli *commandLine) addStaff(role, id, name, email string) error {
	r := identity.Role(core.CleanString(role, true /* lower */))
	switch r {
	case identity.RoleTeacher, identity.RoleParent, identity.RoleAdmin, identity.RoleAccountant: // pass
	default:
		return fmt.Errorf("unknown role %q", role)
	}

	ctx := context.Background()
	ns := school.NewStaff{
		ID:    core.CleanString(id),
		Name:  core.CleanString(name),
		Email: core.CleanString(email, true /* lower */),
	}
	if err := cli.schoolSvc.ProvisionStaff(ctx, r, ns); err != nil {
		return err
	}
	fmt.Printf("%s %s provisioned\n", r, ns.ID)
	return nil
}
