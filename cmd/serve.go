package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jfmyers9/borahae/internal/server"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve timelines and profiles over HTTP",
	Long: `Serve a JSON API:

  GET /healthz
  GET /api/v1/users/{user}/timeline[?mode=simple][&refresh=1]
  GET /api/v1/users/{user}/profile[?refresh=1]
  GET /api/v1/users/{user}/history[?kind=timeline|simple|profile][&limit=N]

Results younger than server.cache_ttl are served from saved snapshots.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, cancel := signalContext()
	defer cancel()

	srv := server.New(server.Config{
		Addr:     addr,
		CacheTTL: a.cfg.Server.CacheTTL,
	}, a.service, a.logger)

	return srv.ListenAndServe(ctx)
}
