// Command neokart is the storefront and back-office front end for the
// neokart API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/safar/neokart/internal/apiclient"
	"github.com/safar/neokart/internal/config"
	"github.com/safar/neokart/internal/session"
	"github.com/safar/neokart/internal/storefront"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app is everything the commands share. main builds it empty; the root
// command's pre-run fills in whatever is still missing.
type app struct {
	verbose bool
	asJSON  bool

	cfg     config.ClientConfig
	logger  *zap.Logger
	storage session.Storage

	user      *apiclient.Client
	admin     *apiclient.Client
	auth      *storefront.Auth
	adminAuth *storefront.AdminAuth
	cart      *storefront.Cart

	errOut io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{errOut: os.Stderr}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "neokart",
		Short:         "Shop the neokart storefront and manage its back office",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.logger == nil {
				zcfg := zap.NewProductionConfig()
				if a.verbose {
					zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
				}
				logger, err := zcfg.Build()
				if err != nil {
					return fmt.Errorf("failed to initialize logger: %w", err)
				}
				a.logger = logger
			}
			if a.errOut == nil {
				a.errOut = cmd.ErrOrStderr()
			}
			if a.user != nil {
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			storage, err := session.OpenFileStorage(cfg.Client.StateFile)
			if err != nil {
				return fmt.Errorf("open state file: %w", err)
			}
			a.connect(cfg.Client, storage)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "Print raw JSON instead of tables")

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newOTPCmd(a),
		newPasswordCmd(a),
		newProfileCmd(a),
		newProductsCmd(a),
		newCategoriesCmd(a),
		newSearchCmd(a),
		newCartCmd(a),
		newOrdersCmd(a),
		newCouponCmd(a),
		newContactCmd(a),
		newAdminCmd(a),
	)
	return root
}

// connect builds both API clients over one storage and the state objects on
// top of them.
func (a *app) connect(cfg config.ClientConfig, storage session.Storage) {
	a.cfg = cfg
	a.storage = storage

	opts := apiclient.Options{
		BaseURL: cfg.BaseURL,
		Storage: storage,
		Timeout: cfg.Timeout,
		Logger:  a.logger,
	}

	userOpts := opts
	userOpts.OnUnauthorized = func() {
		fmt.Fprintln(a.errOut, "Your session has expired. Run `neokart login` to sign in again.")
	}
	a.user = apiclient.NewUser(userOpts)

	adminOpts := opts
	adminOpts.OnUnauthorized = func() {
		fmt.Fprintln(a.errOut, "Your admin session has expired. Run `neokart admin login` to sign in again.")
	}
	a.admin = apiclient.NewAdmin(adminOpts)

	a.auth = storefront.NewAuth(a.user, storage, a.logger)
	a.adminAuth = storefront.NewAdminAuth(a.admin, a.logger)
	a.cart = storefront.NewCart(a.user, a.logger)
}

// render prints v as JSON under --json, otherwise hands a tab writer to table.
func (a *app) render(cmd *cobra.Command, v any, table func(w io.Writer)) error {
	out := cmd.OutOrStdout()
	if a.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

func (a *app) message(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
}
