// Package server wires configuration, stores and handlers into the HTTP
// service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/tourcraft/tourcraft/handlers"
	"github.com/tourcraft/tourcraft/internal/config"
	"github.com/tourcraft/tourcraft/internal/database"
	"github.com/tourcraft/tourcraft/internal/entity"
	"github.com/tourcraft/tourcraft/internal/entity/repository"
	"github.com/tourcraft/tourcraft/internal/entity/service"
	"github.com/tourcraft/tourcraft/internal/oidc"
	"github.com/tourcraft/tourcraft/internal/relance"
	"github.com/tourcraft/tourcraft/internal/relations"
	"github.com/tourcraft/tourcraft/internal/storage"
	"github.com/tourcraft/tourcraft/internal/tokens"
	"github.com/tourcraft/tourcraft/pkg/logger"
	"github.com/tourcraft/tourcraft/pkg/metrics"
	"github.com/tourcraft/tourcraft/pkg/middleware"
	"go.mongodb.org/mongo-driver/mongo"
)

// relationParallelism bounds concurrent relation queries per delete check.
const relationParallelism = 4

// Server is the assembled HTTP service.
type Server struct {
	Engine *gin.Engine

	cfg       *config.Config
	started   time.Time
	redis     *redis.Client
	mongo     *mongo.Client
	minio     *storage.MinIOStorage
	verifier  middleware.Verifier
	accessors *service.Accessors
	checker   *relations.Checker
	workflow  *relance.Workflow
}

// New connects the configured backends and builds the router. Optional
// backends (Redis, MinIO, the identity provider) degrade with a warning; a
// configured MongoDB that cannot be reached is an error.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	s := &Server{cfg: cfg, started: time.Now()}

	reg := entity.DefaultRegistry()
	graph := relations.DefaultGraph()
	rep := graph.Validate(reg)
	for _, w := range rep.Warnings {
		logger.Warnf("relation graph: %s", w)
	}
	if !rep.OK() {
		return nil, fmt.Errorf("relation graph is inconsistent with the schemas: %v", rep.Errors)
	}

	s.connectRedis(ctx)

	store, err := s.openStore(ctx, reg, graph)
	if err != nil {
		return nil, err
	}
	s.checker = relations.NewChecker(store, reg, graph, relationParallelism)
	s.accessors = service.NewAccessors(reg, store, s.checker)

	var cooldown relance.CooldownStore
	if s.redis != nil {
		cooldown = relance.NewRedisCooldown(s.redis)
	}
	dates := s.accessors.MustFor(entity.Dates)
	s.workflow = relance.New(cfg.Relance, dates, s.accessors.MustFor(entity.Taches), cooldown)
	if cfg.Relance.WatcherEnabled {
		dates.Observe(s.workflow.Watch)
		logger.Info("relance watcher enabled on dates")
	}

	s.verifier = s.buildVerifier(ctx)
	if s.verifier == nil {
		return nil, errors.New("no token verifier: set KEYCLOAK_URL, JWT_SECRET or ALLOW_INSECURE_TOKEN")
	}

	blobs := s.openBlobs(ctx)
	s.Engine = s.router(blobs)
	return s, nil
}

func (s *Server) connectRedis(ctx context.Context) {
	addr := s.cfg.Redis.Addr()
	if addr == "" {
		return
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: s.cfg.Redis.Password, DB: s.cfg.Redis.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
		_ = client.Close()
		return
	}
	s.redis = client
	logger.Infof("connected to Redis at %s", addr)
}

func (s *Server) openStore(ctx context.Context, reg *entity.Registry, graph relations.Graph) (repository.Store, error) {
	if s.cfg.MongoDB.URI == "" {
		return repository.NewMemoryStore(), nil
	}
	client, err := database.ConnectMongoWithRetry(ctx, s.cfg.MongoDB.URI, s.cfg.MongoDB.Timeout, 5)
	if err != nil {
		return nil, fmt.Errorf("connect MongoDB: %w", err)
	}
	s.mongo = client
	db := client.Database(s.cfg.MongoDB.Database)
	if err := database.EnsureIndexes(ctx, db, reg, graph.IndexedFields()); err != nil {
		logger.Warnf("ensure indexes: %v", err)
	}
	logger.Infof("using MongoDB database %q", s.cfg.MongoDB.Database)
	return repository.NewMongoStore(db), nil
}

// buildVerifier accepts identity-provider tokens and, when a secret is set,
// tokens issued by tourcraftctl.
func (s *Server) buildVerifier(ctx context.Context) middleware.Verifier {
	var vs middleware.Verifiers
	kc := s.cfg.Keycloak
	if kc.URL != "" && kc.ClientID != "" {
		ver, err := oidc.NewVerifier(ctx, oidc.IssuerURL(kc.URL, kc.Realm), kc.ClientID)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			vs = append(vs, ver)
		}
	}
	if s.cfg.JWT.Secret != "" {
		vs = append(vs, tokens.NewHMACVerifier(s.cfg.JWT.Secret, s.cfg.JWT.Issuer))
	}
	if len(vs) == 0 && s.cfg.JWT.AllowInsecure {
		logger.Warn("enabling insecure token verifier (integration mode)")
		vs = append(vs, oidc.NewInsecureVerifier())
	}
	if len(vs) == 0 {
		return nil
	}
	return vs
}

func (s *Server) openBlobs(ctx context.Context) storage.Blobs {
	if s.cfg.MinIO.Endpoint == "" {
		logger.Info("MINIO_ENDPOINT not set; contract documents are kept in memory")
		return storage.NewMemoryBlobs()
	}
	m, err := storage.NewMinIOStorage(ctx, s.cfg.MinIO)
	if err != nil {
		logger.Warnf("failed to initialize MinIO (%s): %v; contract documents are kept in memory", s.cfg.MinIO.Endpoint, err)
		return storage.NewMemoryBlobs()
	}
	s.minio = m
	return m
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	return c
}

func (s *Server) router(blobs storage.Blobs) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery(), cors.New(corsConfig(s.cfg.Server.CORSOrigins)))

	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "healthy") })
	r.GET("/ready", s.ready)

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterCollectors(promReg)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))

	handlers.RegisterSwagger(r)

	var revoked middleware.RevocationChecker
	if s.redis != nil {
		revoked = tokens.NewRedisRevocations(s.redis)
	}
	api := r.Group("/api", middleware.AuthMiddleware(s.verifier, revoked))
	if rl := s.cfg.RateLimit; rl.Enabled {
		if rl.UseRedis && s.redis != nil {
			api.Use(middleware.RedisRateLimitMiddleware(s.redis, rl.RPS, rl.Burst, time.Duration(rl.WindowSeconds)*time.Second))
		} else {
			api.Use(middleware.RateLimitMiddleware(rl.RPS, rl.Burst))
		}
	}
	api.GET("/me", func(c *gin.Context) {
		id, _ := middleware.CurrentIdentity(c)
		c.JSON(http.StatusOK, gin.H{"identity": id})
	})

	handlers.NewEntityHandler(s.accessors, s.checker).Register(api)
	handlers.NewSearchHandler(s.accessors, handlers.SearchOptions{
		Debounce:       s.cfg.Search.Debounce,
		MaxResults:     s.cfg.Search.MaxResults,
		MinLength:      s.cfg.Search.MinLength,
		AllowedOrigins: s.cfg.Server.CORSOrigins,
	}).Register(api)
	handlers.NewBookingHandler(s.workflow).Register(api)
	handlers.NewContractHandler(s.accessors.MustFor(entity.Contrats), blobs).Register(api)
	return r
}

// ready reports 200 only when every configured backend answers.
func (s *Server) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	deps := map[string]bool{"verifier": s.verifier != nil}
	if s.cfg.MongoDB.URI != "" {
		deps["mongodb"] = s.mongo != nil && s.mongo.Ping(ctx, nil) == nil
	}
	if s.cfg.Redis.Addr() != "" {
		deps["redis"] = s.redis != nil && s.redis.Ping(ctx).Err() == nil
	}
	if s.cfg.MinIO.Endpoint != "" {
		deps["minio"] = s.minio != nil && s.minio.Ready(ctx)
	}
	status, code := "ready", http.StatusOK
	for _, ok := range deps {
		if !ok {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
	}
	c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(s.started).String()})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.Server.Host + ":" + s.cfg.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("starting tourcraft on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close(shutdownCtx)
	return err
}

// Close releases backend connections.
func (s *Server) Close(ctx context.Context) {
	if s.mongo != nil {
		if err := s.mongo.Disconnect(ctx); err != nil {
			logger.Warnf("disconnect MongoDB: %v", err)
		}
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
}
