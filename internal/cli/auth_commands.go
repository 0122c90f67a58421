package cli

import (
	"time"

	"github.com/jrsteele09/wbcms-session/auth"
	"github.com/jrsteele09/wbcms-session/guard"
	"github.com/jrsteele09/wbcms-session/internal/utils"
	"github.com/spf13/cobra"
)

// DefaultRedirectDelay is how long a password confirmation stays up before
// moving on to the login page.
const DefaultRedirectDelay = 3 * time.Second

func newLoginCommand(app appFunc) *cobra.Command {
	var email, password, from string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session",
		Args:  cobra.NoArgs,
		RunE: app.run(func(cmd *cobra.Command, args []string, a *App) error {
			start := guard.RouteLogin
			if from != "" {
				start = from
			}
			if err := a.enterPublic(start, guard.RouteLogin); err != nil {
				return err
			}

			pw, err := secret(cmd, cmd.InOrStdin(), password, "Password")
			if err != nil {
				return err
			}
			s, err := a.machine.SignIn(cmd.Context(), auth.Credentials{Email: email, Password: pw})
			if err != nil {
				return a.rejected(auth.KindSignIn, err)
			}

			out := cmd.OutOrStdout()
			fprintf(out, "Signed in as %s (%s)\n", s.Username(), s.Role)
			if !s.HasProfile {
				fprintf(out, "Your profile is incomplete; run \"wbcms profile\" to finish it.\n")
			}
			fprintf(out, "Now at %s\n", a.router.Location().Path)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (read from stdin when omitted)")
	cmd.Flags().StringVar(&from, "from", "", "Protected page to return to after signing in")
	return cmd
}

func newSignupCommand(app appFunc) *cobra.Command {
	var email, password, confirm string
	var login bool

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register an account",
		Args:  cobra.NoArgs,
		RunE: app.run(func(cmd *cobra.Command, args []string, a *App) error {
			if err := a.enterPublic(guard.RouteSignup, guard.RouteSignup); err != nil {
				return err
			}

			reg := auth.Registration{Email: email, Password: password}
			if cmd.Flags().Changed("confirm") {
				reg.ConfirmPassword = utils.Ptr(confirm)
			}

			out := cmd.OutOrStdout()
			if !login {
				resp, err := a.machine.SignUp(cmd.Context(), reg)
				if err != nil {
					return a.rejected(auth.KindSignUp, err)
				}
				fprintf(out, "%s\n", a.machine.State(auth.KindSignUp).Message)
				if resp.User != nil && resp.User.Email != "" {
					fprintf(out, "Registered %s\n", resp.User.Email)
				}
				return nil
			}

			s, err := a.machine.SignUpAndSignIn(cmd.Context(), reg)
			if err != nil {
				if a.machine.State(auth.KindSignUp).Phase == auth.Rejected {
					return a.rejected(auth.KindSignUp, err)
				}
				return a.rejected(auth.KindSignIn, err)
			}
			fprintf(out, "Signed in as %s (%s)\n", s.Username(), s.Role)
			fprintf(out, "Now at %s\n", a.router.Location().Path)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "University email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	cmd.Flags().StringVar(&confirm, "confirm", "", "Password confirmation")
	cmd.Flags().BoolVar(&login, "login", false, "Sign in straight after registering")
	return cmd
}

func newForgotPasswordCommand(app appFunc) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request a password reset link",
		Args:  cobra.NoArgs,
		RunE: app.run(func(cmd *cobra.Command, args []string, a *App) error {
			if err := a.enterPublic(guard.RouteForgotPassword, guard.RouteForgotPassword); err != nil {
				return err
			}
			msg, err := a.machine.ForgotPassword(cmd.Context(), email)
			if err != nil {
				return a.rejected(auth.KindForgotPassword, err)
			}
			fprintf(cmd.OutOrStdout(), "%s\n", msg)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	return cmd
}

func newResetPasswordCommand(app appFunc) *cobra.Command {
	var password, confirm string
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "reset-password <token>",
		Short: "Set a new password with the token from the reset link",
		Args:  cobra.ExactArgs(1),
		RunE: app.run(func(cmd *cobra.Command, args []string, a *App) error {
			page := "/reset-password/" + args[0]
			if err := a.enterPublic(page, page); err != nil {
				return err
			}

			req := auth.ResetRequest{Token: args[0], Password: password}
			if cmd.Flags().Changed("confirm") {
				req.ConfirmPassword = utils.Ptr(confirm)
			}
			msg, err := a.machine.ResetPassword(cmd.Context(), req)
			if err != nil {
				return a.rejected(auth.KindResetPassword, err)
			}

			out := cmd.OutOrStdout()
			fprintf(out, "%s\n", msg)
			if delay > 0 {
				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-time.After(delay):
				}
			}
			a.router.Replace(guard.RouteLogin)
			fprintf(out, "Now at %s\n", a.router.Location().Path)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "New password")
	cmd.Flags().StringVar(&confirm, "confirm", "", "New password confirmation")
	cmd.Flags().DurationVar(&delay, "redirect-delay", DefaultRedirectDelay, "How long to show the confirmation before moving to the login page")
	return cmd
}

func newLogoutCommand(app appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and erase the stored session",
		Args:  cobra.NoArgs,
		RunE: app.run(func(cmd *cobra.Command, args []string, a *App) error {
			out := cmd.OutOrStdout()
			if !a.store.Clear(cmd.Context()) {
				fprintf(out, "Not signed in\n")
				return nil
			}
			fprintf(out, "Signed out\n")
			return nil
		}),
	}
}

// enterPublic navigates to path and fails unless the router settles on want.
// Signed-in users are bounced off the public pages.
func (a *App) enterPublic(path, want string) error {
	d, err := a.router.Navigate(path)
	if err != nil {
		return err
	}
	if d.Action == guard.Render && a.router.Location().Path == want {
		return nil
	}
	current := a.store.Current()
	if current.IsLoggedIn() {
		return &failure{msg: "Already signed in as " + current.Username() + "; now at " + a.router.Location().Path}
	}
	return &failure{msg: "Cannot open " + path + " (" + d.Action.String() + ")"}
}

// rejected reports the machine's message for a failed action.
func (a *App) rejected(kind auth.Kind, err error) error {
	msg := a.machine.State(kind).ErrorMessage
	if msg == "" {
		msg = auth.Message(kind, err)
	}
	return &failure{msg: msg, err: err}
}
