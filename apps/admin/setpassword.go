package main

import (
	"context"
)

func (cli *commandLine) setPassword(profileID, email, pwd string) error {
	return cli.schoolSvc.SetCredential(context.Background(), profileID, email, pwd)
}
