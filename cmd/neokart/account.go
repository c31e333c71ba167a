package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/safar/neokart/internal/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login <email> <password>",
		Short: "Sign in to the storefront",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.auth.Login(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			a.message(cmd, "Welcome back, %s.", a.auth.User().Name)
			return nil
		},
	}
}

func newRegisterCmd(a *app) *cobra.Command {
	var req models.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a storefront account",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.auth.Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			a.message(cmd, "%s", resp.Message)
			if req.Phone != "" {
				a.message(cmd, "Confirm your phone with `neokart otp verify %s <code>`.", req.Phone)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "Full name")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "Phone number to verify by OTP")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out of the storefront",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.auth.LoggedIn() {
				if err := a.user.Logout(cmd.Context()); err != nil {
					a.logger.Debug("server logout failed", zap.Error(err))
				}
			}
			a.auth.Logout()
			a.cart.Reset()
			a.message(cmd, "Signed out.")
			return nil
		},
	}
}

func newOTPCmd(a *app) *cobra.Command {
	otp := &cobra.Command{
		Use:   "otp",
		Short: "Phone verification codes",
	}

	otp.AddCommand(
		&cobra.Command{
			Use:   "send <phone>",
			Short: "Send a verification code",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				resp, err := a.user.SendOTP(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				a.message(cmd, "%s", resp.Message)
				return nil
			},
		},
		&cobra.Command{
			Use:   "resend <phone>",
			Short: "Send a fresh verification code",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				resp, err := a.user.ResendOTP(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				a.message(cmd, "%s", resp.Message)
				return nil
			},
		},
		&cobra.Command{
			Use:   "verify <phone> <code>",
			Short: "Confirm a phone number",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				resp, err := a.auth.VerifyOTP(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if !resp.Success {
					return fmt.Errorf("verify otp: %s", resp.Message)
				}
				a.message(cmd, "%s", resp.Message)
				return nil
			},
		},
	)
	return otp
}

func newPasswordCmd(a *app) *cobra.Command {
	password := &cobra.Command{
		Use:   "password",
		Short: "Change or reset your password",
	}

	password.AddCommand(
		&cobra.Command{
			Use:   "change <current> <new>",
			Short: "Change the signed-in user's password",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				resp, err := a.user.ChangePassword(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				a.message(cmd, "%s", resp.Message)
				return nil
			},
		},
		&cobra.Command{
			Use:   "forgot <email>",
			Short: "Request a password reset token",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				resp, err := a.user.ForgotPassword(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				a.message(cmd, "%s", resp.Message)
				return nil
			},
		},
		&cobra.Command{
			Use:   "reset <token> <new>",
			Short: "Set a new password with a reset token",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				resp, err := a.user.ResetPassword(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				a.message(cmd, "%s", resp.Message)
				return nil
			},
		},
	)
	return password
}

func newProfileCmd(a *app) *cobra.Command {
	profile := &cobra.Command{
		Use:   "profile",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.auth.Restore(cmd.Context()); err != nil {
				return err
			}
			u := a.auth.User()
			if u == nil {
				return fmt.Errorf("not signed in")
			}
			return a.render(cmd, u, func(w io.Writer) { printUser(w, *u) })
		},
	}

	var req models.UpdateProfileRequest
	update := &cobra.Command{
		Use:   "update",
		Short: "Change name, email or phone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.user.UpdateMe(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := a.auth.Restore(cmd.Context()); err != nil {
				return err
			}
			return a.render(cmd, u, func(w io.Writer) { printUser(w, *u) })
		},
	}
	update.Flags().StringVar(&req.Name, "name", "", "New name")
	update.Flags().StringVar(&req.Email, "email", "", "New email")
	update.Flags().StringVar(&req.Phone, "phone", "", "New phone")

	profile.AddCommand(update)
	return profile
}

func printUser(w io.Writer, u models.User) {
	fmt.Fprintf(w, "ID\t%d\n", u.ID)
	fmt.Fprintf(w, "Name\t%s\n", u.Name)
	fmt.Fprintf(w, "Email\t%s\n", u.Email)
	fmt.Fprintf(w, "Phone\t%s\n", u.Phone)
	fmt.Fprintf(w, "Role\t%s\n", u.Role)
	fmt.Fprintf(w, "Verified\t%t\n", u.Verified)
	fmt.Fprintf(w, "Enabled\t%t\n", u.Enabled)
}
