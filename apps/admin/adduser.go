package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironladytech/onboarding/core"
	"github.com/ironladytech/onboarding/core/user"
)

func (cli *commandLine) addUserCmd() *cobra.Command {
	var uname, email string
	var isAdmin, isHR bool

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create or update an active user; the password is prompted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if uname == "" && email == "" {
				return core.NewFieldError("username", "username or email is required")
			}
			pwd, err := cli.promptPassword()
			if err != nil {
				return err
			}
			return cli.addUser(uname, email, pwd, isAdmin, isHR)
		},
	}
	cmd.Flags().StringVarP(&uname, "username", "u", "", "the user's username")
	cmd.Flags().StringVarP(&email, "email", "e", "", "the user's email")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "grant every admin role")
	cmd.Flags().BoolVar(&isHR, "hr", false, "grant the HR roles")
	return cmd
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin, isHR bool) error {
	var roles []string
	switch {
	case isAdmin:
		roles = user.AllRoles
	case isHR:
		roles = user.HRRoles
	}
	usr, err := cli.users.Upsert(context.Background(), uname, email, pwd, roles)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %s saved\n", usr.Username)
	return nil
}
