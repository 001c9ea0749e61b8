package cli

import (
	"context"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"channel-service/internal/chat"
	"channel-service/internal/config"
	"channel-service/internal/db"
	grpcserver "channel-service/internal/grpc"
	"channel-service/internal/handlers"
	"channel-service/internal/identity"
	"channel-service/internal/middleware"
	"channel-service/internal/observability"
	"channel-service/internal/pubsub"
	"channel-service/internal/rabbitmq"
	"channel-service/internal/repositories"
	"channel-service/internal/telemetry"
	"channel-service/internal/ws"
)

// NewServeCommand starts the HTTP, websocket and gRPC health servers.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the channel service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.viper)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().String("port", "8083", "HTTP port")
	cmd.Flags().String("grpc-port", "9083", "gRPC health port")
	cmd.Flags().String("pubsub-driver", config.DriverMemory, "pub/sub driver (memory|redis|amqp)")
	cmd.Flags().Bool("debug-routes", false, "expose /debug endpoints")
	_ = opts.viper.BindPFlag("PORT", cmd.Flags().Lookup("port"))
	_ = opts.viper.BindPFlag("GRPC_PORT", cmd.Flags().Lookup("grpc-port"))
	_ = opts.viper.BindPFlag("PUBSUB_DRIVER", cmd.Flags().Lookup("pubsub-driver"))
	_ = opts.viper.BindPFlag("DEBUG_ROUTES", cmd.Flags().Lookup("debug-routes"))

	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer database.Close()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			jww.WARN.Printf("tracing shutdown: %v", err)
		}
	}()

	transport, err := newTransport(ctx, cfg)
	if err != nil {
		return err
	}
	defer transport.Close()

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AuditExchange)
	defer auditPublisher.Close()
	observability.SetPublisher(auditPublisher)
	jww.INFO.Printf("audit publisher mode=%s %s", rabbitmq.PublisherMode(auditPublisher), rabbitmq.PublisherNoopReason(auditPublisher))
	audit := telemetry.NewAuditEmitter(auditPublisher, cfg.AuditRoutingKey, cfg.ServiceName, cfg.Environment)

	users := repositories.NewUserRepo(database)
	svc := chat.NewService(
		repositories.NewChannelRepo(database),
		repositories.NewMessageRepo(database),
		repositories.NewReactionRepo(database),
		users,
		transport,
		audit,
		chat.Options{
			PageSize:         cfg.PageSize,
			MaxMessageLength: cfg.MaxMessageLength,
			TypingInterval:   cfg.TypingInterval,
		},
	)
	provider := identity.NewProvider(users, cfg.SigningKeys)
	hub := ws.NewHub(transport)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cfg, svc, provider, hub, audit),
		ReadHeaderTimeout: 10 * time.Second,
	}

	health := grpcserver.NewHealthServer()
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return errors.Wrap(err, "listen grpc")
	}
	go health.Watch(ctx, cfg.HealthCheckInterval, database.PingContext)

	errCh := make(chan error, 2)
	go func() {
		jww.INFO.Printf("http listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- errors.Wrap(err, "http server")
		}
	}()
	go func() {
		if err := health.Serve(lis); err != nil {
			errCh <- errors.Wrap(err, "grpc server")
		}
	}()

	select {
	case <-ctx.Done():
		jww.INFO.Printf("shutting down")
	case err = <-errCh:
		jww.ERROR.Printf("%v", err)
	}

	health.Stop()
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(sctx); shutdownErr != nil {
		jww.WARN.Printf("http shutdown: %v", shutdownErr)
	}
	return err
}

func newTransport(ctx context.Context, cfg config.Config) (pubsub.Transport, error) {
	switch cfg.PubSubDriver {
	case config.DriverRedis:
		return pubsub.NewRedis(ctx, cfg.RedisAddr)
	case config.DriverAMQP:
		return rabbitmq.NewTransport(cfg.AMQPURL, cfg.ChannelExchange)
	default:
		jww.INFO.Printf("using in-process pub/sub; broadcasts stay on this instance")
		return pubsub.NewMemory(), nil
	}
}

func newRouter(cfg config.Config, svc *chat.Service, provider *identity.Provider, hub *ws.Hub, audit *telemetry.AuditEmitter) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := middleware.AuthMiddleware(provider)
	handlers.Register(router, handlers.NewChannelHandler(svc), auth)
	handlers.RegisterDebugRoutes(router.Group("", auth), audit, cfg.DebugRoutes)

	channelWS := ws.NewChannelWebSocketHandler(hub, svc, provider)
	router.GET("/ws/channels/:channel_id", channelWS.Handle)

	return router
}
