package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/lead-responder/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		e, err := setup(ctx, false)
		if err != nil {
			return err
		}
		defer e.Close()

		srv := server.New(e.svc, e.logger.Named("http"), server.Config{
			CORSOrigins: e.cfg.Server.CORSOrigins,
			Version:     version,
		})

		e.logger.Info("starting the lead-responder api",
			zap.String("version", version),
			zap.String("model", e.svc.Model()),
		)

		return srv.Run(ctx, e.cfg.Server.Address)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("address", "a", "", "listen address (default :8000)")
	viper.BindPFlag("server.address", serveCmd.Flags().Lookup("address"))
}
