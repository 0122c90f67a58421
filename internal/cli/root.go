package cli

import (
	"os"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/wbcms-session/internal/config"
	"github.com/jrsteele09/wbcms-session/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewRootCommand builds the wbcms command tree. Each command opens its own
// App from cfg, so the session persists between invocations through the
// configured store.
func NewRootCommand(cfg config.Config, options ...AppOption) *cobra.Command {
	var (
		app     *App
		verbose bool
	)

	root := &cobra.Command{
		Use:   "wbcms",
		Short: "Session client for the web-based complaints management system",
		Long: figure.NewFigure(cfg.GetAppName(), "cybermedium", true).String() + `
wbcms signs you in to the complaints management backend, keeps the session
between runs and sends authenticated requests on your behalf.

Environment Variables:
  WBCMS_API_URL          Backend base URL
  WBCMS_STORE            Session store: file (default), sqlite or memory
  WBCMS_STORE_PATH       Store directory or database file
  WBCMS_STORE_KEY        Passphrase sealing the session file
  WBCMS_CONFIG           Optional YAML configuration file`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := cfg.GetLogLevel()
			if verbose {
				level = zerolog.DebugLevel
			}
			log := logging.New(os.Stderr, cfg.GetEnv(), level)

			var err error
			app, err = NewApp(cmd.Context(), cfg, append([]AppOption{WithLogger(log)}, options...)...)
			return err
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	current := appFunc(func() *App { return app })
	root.AddCommand(
		newLoginCommand(current),
		newSignupCommand(current),
		newForgotPasswordCommand(current),
		newResetPasswordCommand(current),
		newLogoutCommand(current),
		newWhoamiCommand(current),
		newProfileCommand(current),
		newNavigateCommand(current),
		newGetCommand(current),
		newYearsCommand(current),
	)
	return root
}
