package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/session"
	"github.com/Alturino/storefront/user/pkg/account"
	"github.com/Alturino/storefront/user/pkg/request"
)

func newLoginCommand() *cobra.Command {
	var username, password string
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and load the cart",
		Args:  cobra.NoArgs,
		RunE: withApp(func(c context.Context, cmd *cobra.Command, a *app, _ []string) error {
			user, err := a.accounts.Login(c, username, password)
			if errors.Is(err, inErrors.ErrPasswordMismatch) {
				return errors.New("invalid username or password")
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s, %d item(s) in cart\n", user.Name, len(a.cart.Items()))
			return err
		}),
	}
	loginCmd.Flags().StringVarP(&username, "username", "u", "", "username")
	loginCmd.Flags().StringVarP(&password, "password", "p", "", "password")
	_ = loginCmd.MarkFlagRequired("username")
	_ = loginCmd.MarkFlagRequired("password")
	return loginCmd
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the current session",
		Args:  cobra.NoArgs,
		RunE: withApp(func(c context.Context, cmd *cobra.Command, a *app, _ []string) error {
			if err := a.accounts.Logout(c); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return err
		}),
	}
}

func newSignupCommand() *cobra.Command {
	param := request.Signup{}
	signupCmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: withApp(func(c context.Context, cmd *cobra.Command, a *app, _ []string) error {
			_, err := a.accounts.Signup(c, param)
			switch {
			case errors.Is(err, inErrors.ErrUserAlreadyExists):
				return inErrors.ErrUserAlreadyExists
			case errors.Is(err, account.ErrInvalidInput):
				return errors.New("name, username and password are required and mobile must be 10 digits")
			case err != nil:
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Signup successful! You can now log in.")
			return err
		}),
	}
	signupCmd.Flags().StringVar(&param.Name, "name", "", "full name")
	signupCmd.Flags().StringVar(&param.Mobile, "mobile", "", "10 digit mobile number")
	signupCmd.Flags().StringVarP(&param.Username, "username", "u", "", "username")
	signupCmd.Flags().StringVarP(&param.Password, "password", "p", "", "password")
	return signupCmd
}

func newAccountCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: withApp(func(c context.Context, cmd *cobra.Command, a *app, _ []string) error {
			user, err := a.accounts.Profile(c)
			if errors.Is(err, session.ErrNoSession) {
				return errors.New("not logged in")
			}
			if err != nil {
				return err
			}
			return printUser(cmd.OutOrStdout(), user)
		}),
	}
}
