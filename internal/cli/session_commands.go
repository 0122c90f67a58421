package cli

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/jrsteele09/wbcms-session/internal/errors"
	"github.com/jrsteele09/wbcms-session/internal/utils"
	"github.com/jrsteele09/wbcms-session/users"
	"github.com/spf13/cobra"
)

// NotSignedInMsg is shown by commands that need a session.
const NotSignedInMsg = "Not signed in. Run \"wbcms login\" first."

func newWhoamiCommand(app appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: app.run(func(cmd *cobra.Command, args []string, a *App) error {
			s := a.store.Current()
			if !s.IsLoggedIn() {
				return &failure{msg: NotSignedInMsg, err: errors.ErrNotLoggedIn}
			}

			out := cmd.OutOrStdout()
			fprintf(out, "User:      %s\n", s.Username())
			fprintf(out, "Email:     %s\n", s.Email)
			fprintf(out, "Role:      %s\n", s.Role)
			fprintf(out, "User ID:   %s\n", s.UserID)
			if s.HasProfile {
				fprintf(out, "Profile:   complete\n")
			} else {
				fprintf(out, "Profile:   incomplete\n")
			}
			if s.RegistrationNumber != nil {
				fprintf(out, "Reg. no.:  %s\n", *s.RegistrationNumber)
			}
			if s.StudentNumber != nil {
				fprintf(out, "Student #: %s\n", *s.StudentNumber)
			}
			if s.ProgrammeID != nil {
				fprintf(out, "Programme: %d\n", *s.ProgrammeID)
			}
			if exp := s.AccessExpiry(); !exp.IsZero() {
				fprintf(out, "Access expires %s\n", exp.Local().Format(time.RFC1123))
			}
			return nil
		}),
	}
}

func newProfileCommand(app appFunc) *cobra.Command {
	var registration, student string
	var programme int

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Complete your profile",
		Args:  cobra.NoArgs,
		RunE: app.run(func(cmd *cobra.Command, args []string, a *App) error {
			var update users.ProfileUpdate
			if cmd.Flags().Changed("registration-number") {
				update.RegistrationNumber = utils.Ptr(registration)
			}
			if cmd.Flags().Changed("student-number") {
				update.StudentNumber = utils.Ptr(student)
			}
			if cmd.Flags().Changed("programme") {
				update.ProgrammeID = utils.Ptr(programme)
			}

			s, err := a.profiles.Update(cmd.Context(), update)
			if errors.Is(err, errors.ErrNotLoggedIn) {
				return &failure{msg: NotSignedInMsg, err: err}
			}
			if err != nil {
				return describe(err)
			}
			fprintf(cmd.OutOrStdout(), "Profile updated for %s\n", s.Username())
			return nil
		}),
	}
	cmd.Flags().StringVar(&registration, "registration-number", "", "University registration number")
	cmd.Flags().StringVar(&student, "student-number", "", "Student number")
	cmd.Flags().IntVar(&programme, "programme", 0, "Programme id")
	return cmd
}

func newNavigateCommand(app appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "navigate <path>",
		Short: "Show what the app would render at path",
		Args:  cobra.ExactArgs(1),
		RunE: app.run(func(cmd *cobra.Command, args []string, a *App) error {
			d, err := a.router.Navigate(args[0])
			if err != nil {
				return err
			}
			loc := a.router.Location()
			out := cmd.OutOrStdout()
			fprintf(out, "%s %s\n", d.Action, loc.Path)
			if loc.Intent != "" {
				fprintf(out, "Returning to %s after sign-in\n", loc.Intent)
			}
			return nil
		}),
	}
}

func newGetCommand(app appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "Send an authenticated GET to the backend and print the JSON",
		Args:  cobra.ExactArgs(1),
		RunE: app.run(func(cmd *cobra.Command, args []string, a *App) error {
			var raw json.RawMessage
			if err := a.gateway.GetJSON(cmd.Context(), args[0], &raw); err != nil {
				return describe(err)
			}

			var pretty bytes.Buffer
			if err := json.Indent(&pretty, raw, "", "  "); err != nil {
				pretty.Reset()
				pretty.Write(raw)
			}
			fprintf(cmd.OutOrStdout(), "%s\n", pretty.String())
			return nil
		}),
	}
}

func newYearsCommand(app appFunc) *cobra.Command {
	var add string

	cmd := &cobra.Command{
		Use:   "years",
		Short: "List academic years, or add one with --add",
		Args:  cobra.NoArgs,
		RunE: app.run(func(cmd *cobra.Command, args []string, a *App) error {
			out := cmd.OutOrStdout()
			if add != "" {
				year, err := a.profiles.AddAcademicYear(cmd.Context(), add)
				if err != nil {
					return describe(err)
				}
				fprintf(out, "Added %s (id %s)\n", year.Title, year.ID)
				return nil
			}

			years, err := a.profiles.AcademicYears(cmd.Context())
			if err != nil {
				return describe(err)
			}
			if len(years) == 0 {
				fprintf(out, "No academic years\n")
			}
			for _, y := range years {
				fprintf(out, "%s\t%s\n", y.ID, y.Title)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&add, "add", "", "Academic year to add, e.g. 2026/2027")
	return cmd
}
