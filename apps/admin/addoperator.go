package main

import (
	"context"

	"github.com/jbkiprop/studentos/core/user"
)

// addOperator updates or creates a teacher/admin account. Students go through
// admissions instead.
func (cli *commandLine) addOperator(uname, pwd string, role user.Role) error {
	usr, err := cli.usrSvc.AddOperator(context.Background(), uname, pwd, role)
	if err != nil {
		return err
	}
	logger.Printf("%s account %q ready (id=%d)", usr.Role, usr.Username, usr.ID)
	return nil
}
