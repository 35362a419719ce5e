package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Soyunomas/lanbeacon/internal/config"
	"github.com/Soyunomas/lanbeacon/internal/engine"
	"github.com/Soyunomas/lanbeacon/pkg/lan"
	"github.com/Soyunomas/lanbeacon/pkg/netutil"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

// app es el estado compartido por los subcomandos, construido en
// PersistentPreRunE a partir de los flags globales.
type app struct {
	configPath  string
	debug       bool
	metricsAddr string

	cfg     *config.Config
	log     *slog.Logger
	metrics *lan.Metrics
	server  *http.Server
}

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "lanbeacon",
		Short: "LAN session discovery over UDP broadcast",
		Long: `lanbeacon anuncia y descubre sesiones en la red local.

Un host escucha consultas en el puerto de anuncio y responde con la
descripción de su sesión; un cliente difunde una consulta y recoge las
respuestas hasta que vence el timeout.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.shutdown()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Fichero de configuración (.toml, .yaml)")
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Logs de depuración")
	rootCmd.PersistentFlags().StringVar(&a.metricsAddr, "metrics", "", "Exponer métricas Prometheus en address:port")

	rootCmd.AddCommand(
		hostCmd(a),
		searchCmd(a),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %s\n", err)
		os.Exit(1)
	}
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("error de configuración: %w", err)
	}
	if a.debug {
		cfg.Debug = true
	}
	if a.metricsAddr != "" {
		cfg.MetricsAddr = a.metricsAddr
	}
	a.cfg = cfg

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	a.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.metrics = lan.NewMetrics("lanbeacon", reg)

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		a.server = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Printf("📊 Métricas activas en http://%s/metrics", cfg.MetricsAddr)
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("⚠️ Servidor de métricas: %v", err)
			}
		}()
	}
	return nil
}

func (a *app) shutdown() {
	if a.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = a.server.Shutdown(ctx)
}

func (a *app) engine() (*engine.Engine, error) {
	provider := netutil.NewUDPProvider(a.log, a.cfg.Interfaces...)
	return engine.New(a.cfg.EngineConfig(), provider, a.log, a.metrics)
}
