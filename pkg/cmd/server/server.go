package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // by design
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mpapenbr/async-race-service/log"
	"github.com/mpapenbr/async-race-service/pkg/auth"
	"github.com/mpapenbr/async-race-service/pkg/cmd/util"
	"github.com/mpapenbr/async-race-service/pkg/config"
	"github.com/mpapenbr/async-race-service/pkg/db/postgres"
	"github.com/mpapenbr/async-race-service/pkg/permission"
	"github.com/mpapenbr/async-race-service/pkg/race"
	"github.com/mpapenbr/async-race-service/pkg/server/api"
	"github.com/mpapenbr/async-race-service/pkg/utils"
)

//nolint:funlen // by design
func NewServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "starts the race service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startServer(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&config.Addr,
		"addr",
		"a",
		"localhost:8080",
		"HTTP API listen address")
	cmd.Flags().StringVar(&config.Store,
		"store",
		"memory",
		"storage backend for cars and winners (memory, postgres, rest)")
	cmd.Flags().StringVar(&config.Engine,
		"engine",
		"sim",
		"engine service (sim, http)")
	cmd.Flags().StringVar(&config.APIURL,
		"api-url",
		"http://localhost:3000",
		"base URL of the remote race API used by engine http and store rest")
	cmd.Flags().StringVar(&config.NatsURL,
		"nats-url",
		"",
		"NATS server for event publishing (empty disables publishing)")
	cmd.Flags().StringVar(&config.SQLLogLevel,
		"sql-log-level",
		"debug",
		"controls the log level for sql methods")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data (stdout for local output)")
	cmd.Flags().IntVar(&config.ProfilingPort,
		"profiling-port",
		0,
		"port to use for providing profiling data")
	cmd.Flags().StringVar(&config.AdminToken,
		"admin-token",
		"",
		"admin token value (empty opens the API to every caller)")
	cmd.Flags().StringVar(&config.AdminTokenHash,
		"admin-token-hash",
		"",
		"sha256 hex digest of the admin token (used if admin-token is empty)")
	cmd.Flags().StringVar(&config.TLSCertFile,
		"tls-cert",
		"",
		"file containing the server certificate")
	cmd.Flags().StringVar(&config.TLSKeyFile,
		"tls-key",
		"",
		"file containing the server key")
	cmd.Flags().StringVar(&config.TLSCAFile,
		"tls-ca",
		"",
		"file containing the CA for client certificates")
	util.AddSimFlags(cmd)
	return cmd
}

//nolint:funlen,cyclop // by design
func startServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var telemetry *config.Telemetry
	logger := util.SetupLogger(config.LogFormat, config.LogLevel, config.LogConfig)
	sqlLogger := logger.Named("sql")
	if config.LogConfig != "" {
		if err := watchLogConfig(ctx, config.LogConfig, logger); err != nil {
			log.Warn("Could not watch log config", log.ErrorField(err))
		}
	}

	log.Debug("Config:",
		log.String("addr", config.Addr),
		log.String("store", config.Store),
		log.String("engine", config.Engine),
		log.String("apiUrl", config.APIURL),
		log.String("natsUrl", config.NatsURL),
	)

	if config.ProfilingPort > 0 {
		log.Info("Starting profiling server on port", log.Int("port", config.ProfilingPort))
		go func() {
			//nolint:gosec // by design
			err := http.ListenAndServe(
				fmt.Sprintf("localhost:%d", config.ProfilingPort),
				nil)
			if err != nil {
				log.Error("Profiling server stopped", log.ErrorField(err))
			}
		}()
	}

	waitForRequiredServices()

	pgTracers := []pgx.QueryTracer{
		postgres.NewLogTracer(sqlLogger,
			util.ParseLogLevel(config.SQLLogLevel, log.DebugLevel)),
	}
	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		var err error
		if telemetry, err = config.SetupTelemetry(ctx); err == nil {
			pgTracers = append(pgTracers, postgres.NewOtlpTracer())
		} else {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
		err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}

	log.Info("Starting server")
	b, err := newBackend(ctx, postgres.WithTracer(pgTracers...))
	if err != nil {
		log.Error("server could not be started", log.ErrorField(err))
		return err
	}
	defer b.close()

	svc, err := util.NewEngineService()
	if err != nil {
		log.Error("server could not be started", log.ErrorField(err))
		return err
	}
	opts := append(util.ManagerOptions(logger), b.managerOptions()...)
	opts = append(opts, race.WithContext(ctx))
	m := race.NewManager(svc, b.repos.Winner(), opts...)

	if config.NatsURL != "" {
		conn, err := startPublisher(ctx, m)
		if err != nil {
			log.Error("could not connect to nats", log.ErrorField(err))
			m.Close()
			return err
		}
		defer func() {
			if err := conn.Drain(); err != nil {
				log.Warn("could not drain nats connection", log.ErrorField(err))
			}
		}()
	}

	pe, err := permission.NewOpaPermissionEvaluator()
	if err != nil {
		m.Close()
		return err
	}
	authOpt := auth.WithAdminToken(config.AdminToken)
	if config.AdminToken == "" && config.AdminTokenHash != "" {
		authOpt = auth.WithAdminTokenHash(config.AdminTokenHash)
	}
	apiServer := api.NewServer(m,
		api.WithAuthenticator(auth.NewAuthenticator(authOpt)),
		api.WithPermissionEvaluator(pe),
		api.WithLogger(logger.Named("api")))

	tlsConfig, err := newTLSConfig(ctx)
	if err != nil {
		log.Error("could not setup TLS", log.ErrorField(err))
		m.Close()
		return err
	}
	//nolint:gosec // by design
	server := &http.Server{
		Addr:      config.Addr,
		Handler:   h2c.NewHandler(newCORS().Handler(apiServer.Handler()), &http2.Server{}),
		TLSConfig: tlsConfig,
	}
	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server",
			log.String("addr", config.Addr), log.Bool("tls", tlsConfig != nil))
		var err error
		if tlsConfig != nil {
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()
	log.Info("Server started")
	setupGoRoutinesDump()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case v := <-sigChan:
		log.Debug("Got signal ", log.Any("signal", v))
	case err = <-serverErr:
		if err != nil {
			log.Error("server stopped", log.ErrorField(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Warn("could not shutdown server", log.ErrorField(shutdownErr))
	}
	m.Close()
	if telemetry != nil {
		telemetry.Shutdown()
	}
	log.Info("Server terminated")
	return err
}

func setupGoRoutinesDump() {
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGQUIT)
		buf := make([]byte, 1<<20)
		for {
			<-sigs
			stacklen := runtime.Stack(buf, true)
			fmt.Printf("=== received SIGQUIT ===\n*** goroutine dump...\n%s\n*** end\n",
				buf[:stacklen])
		}
	}()
}

func waitForRequiredServices() {
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}

	wg := sync.WaitGroup{}
	checkTCP := func(addr string) {
		defer wg.Done()
		if err := utils.WaitForTCP(addr, timeout); err != nil {
			log.Fatal("required services not ready", log.ErrorField(err))
		}
	}

	addrs := []string{}
	if config.Store == "postgres" {
		addrs = append(addrs, utils.ExtractFromDBURL(config.DB))
	}
	if config.Store == "rest" || config.Engine == "http" {
		addrs = append(addrs, utils.ExtractFromHTTPURL(config.APIURL))
	}
	if config.NatsURL != "" {
		addrs = append(addrs, utils.ExtractFromNatsURL(config.NatsURL))
	}
	for _, addr := range addrs {
		if addr == "" {
			continue
		}
		wg.Add(1)
		go checkTCP(addr)
	}
	log.Debug("Waiting for connection checks to return")
	wg.Wait()
	log.Debug("Required services are available")
}

func newCORS() *cors.Cors {
	// browser clients run on other origins, so anything goes
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{
			"Content-Encoding",
			"X-Total-Count",
		},
		// FF caps this value at 24h, and modern Chrome caps it at 2h.
		MaxAge: int(2 * time.Hour / time.Second),
	})
}
