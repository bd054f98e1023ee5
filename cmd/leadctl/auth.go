package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coldreach/leadctl/internal/auth"
	"github.com/coldreach/leadctl/internal/session"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session locally",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		a, err := newApp()
		if err != nil {
			return err
		}

		svc := auth.NewService(a.client, a.sessions)
		if err := svc.Login(cmd.Context(), email, password); err != nil {
			return err
		}

		// Enrich the stored session with the account profile when the
		// backend exposes it. Login already succeeded, so this is
		// best-effort.
		if profile, err := a.client.Me(cmd.Context()); err == nil {
			cur := a.sessions.Current()
			cur.User = &session.User{Email: profile.Email, Name: profile.FullName}
			if err := a.sessions.Save(cur); err != nil {
				printWarning("could not persist profile details: %v", err)
			}
		}

		printSuccess("Logged in as %s", email)
		return nil
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a new account",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		a, err := newApp()
		if err != nil {
			return err
		}

		svc := auth.NewService(a.client, a.sessions)
		if err := svc.Signup(cmd.Context(), email, password); err != nil {
			return err
		}

		printSuccess("Account created for %s", email)
		printStep("Run 'leadctl login' to sign in")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		svc := auth.NewService(a.client, a.sessions)
		if err := svc.Logout(); err != nil {
			return err
		}

		printSuccess("Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.requireAuth(); err != nil {
			return err
		}

		profile, err := a.client.Me(cmd.Context())
		if err != nil {
			// Backend unreachable; fall back to the stored session.
			cur := a.sessions.Current()
			if cur.User != nil {
				printStatus("Email", "%s", cur.User.Email)
				printWarning("shown from local session; backend unreachable: %v", err)
				return nil
			}
			return err
		}

		printStatus("Email", "%s", profile.Email)
		if profile.FullName != "" {
			printStatus("Name", "%s", profile.FullName)
		}
		if profile.Company != "" {
			printStatus("Company", "%s", profile.Company)
		}
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Update the account profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		company, _ := cmd.Flags().GetString("company")
		if name == "" && company == "" {
			return fmt.Errorf("nothing to update; pass --name and/or --company")
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.requireAuth(); err != nil {
			return err
		}

		current, err := a.client.Me(cmd.Context())
		if err != nil {
			return err
		}
		if name == "" {
			name = current.FullName
		}
		if company == "" {
			company = current.Company
		}

		if err := a.client.UpdateProfile(cmd.Context(), name, company); err != nil {
			return err
		}

		cur := a.sessions.Current()
		cur.User = &session.User{Email: current.Email, Name: name}
		if err := a.sessions.Save(cur); err != nil {
			printWarning("could not persist profile details: %v", err)
		}

		printSuccess("Profile updated")
		return nil
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Request or confirm a password reset",
	Long: `Request or confirm a password reset.

Examples:
  leadctl reset-password --email you@example.com
  leadctl reset-password --token <token-from-email> --new-password <password>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		token, _ := cmd.Flags().GetString("token")
		newPassword, _ := cmd.Flags().GetString("new-password")

		a, err := newApp()
		if err != nil {
			return err
		}
		svc := auth.NewService(a.client, a.sessions)

		switch {
		case token != "":
			if err := svc.ConfirmPasswordReset(cmd.Context(), token, newPassword); err != nil {
				return err
			}
			printSuccess("Password updated")
			return nil
		case email != "":
			if err := svc.RequestPasswordReset(cmd.Context(), email); err != nil {
				return err
			}
			printSuccess("Reset link requested for %s", email)
			return nil
		default:
			return fmt.Errorf("either --email or --token is required")
		}
	},
}

func init() {
	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "account password")
	signupCmd.Flags().String("email", "", "account email")
	signupCmd.Flags().String("password", "", "account password (6 characters minimum)")
	profileCmd.Flags().String("name", "", "full name to show on the account")
	profileCmd.Flags().String("company", "", "company to show on the account")
	resetPasswordCmd.Flags().String("email", "", "account email to send the reset link to")
	resetPasswordCmd.Flags().String("token", "", "reset token from the email")
	resetPasswordCmd.Flags().String("new-password", "", "new password to set")
}
