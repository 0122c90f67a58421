package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/jrsteele09/wbcms-session/apimodel"
	"github.com/jrsteele09/wbcms-session/gateway"
	"github.com/jrsteele09/wbcms-session/internal/errors"
	"github.com/spf13/cobra"
)

// SessionExpiredMsg is shown when a request ends the session.
const SessionExpiredMsg = "Your session has expired. Please sign in again."

// appFunc returns the App opened by the root command's pre-run hook.
type appFunc func() *App

// run adapts fn to a cobra RunE and closes the App afterwards.
func (f appFunc) run(fn func(cmd *cobra.Command, args []string, a *App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		a := f()
		if a == nil {
			return fmt.Errorf("session client not initialised")
		}
		defer func() {
			if closeErr := a.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()
		return fn(cmd, args, a)
	}
}

// failure shows msg to the user and keeps err for errors.Is.
type failure struct {
	msg string
	err error
}

func (f *failure) Error() string {
	return f.msg
}

func (f *failure) Unwrap() error {
	return f.err
}

// describe turns a gateway error into a user-facing failure.
func describe(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gateway.ErrSessionExpired) {
		return &failure{msg: SessionExpiredMsg, err: err}
	}
	var server *apimodel.ServerError
	if errors.As(err, &server) {
		if msg := server.UserMessage(); msg != "" {
			return &failure{msg: msg, err: err}
		}
	}
	var field *errors.FieldError
	if errors.As(err, &field) {
		return &failure{msg: field.Message, err: err}
	}
	return err
}

// secret returns value, or reads one line from in when value is empty.
func secret(cmd *cobra.Command, in io.Reader, value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	fprintf(cmd.ErrOrStderr(), "%s: ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(prompt), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
