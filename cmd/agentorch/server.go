package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/agentorch/agent"
	"github.com/BaSui01/agentorch/api/handlers"
	"github.com/BaSui01/agentorch/config"
	"github.com/BaSui01/agentorch/internal/metrics"
	"github.com/BaSui01/agentorch/internal/server"
	"github.com/BaSui01/agentorch/internal/telemetry"
	"github.com/BaSui01/agentorch/llm"
	"github.com/BaSui01/agentorch/llm/cache"
	"github.com/BaSui01/agentorch/llm/tokenizer"
	"github.com/BaSui01/agentorch/orchestrator"
	"github.com/BaSui01/agentorch/providers"
	claude "github.com/BaSui01/agentorch/providers/anthropic"
	"github.com/BaSui01/agentorch/types"
	"github.com/BaSui01/agentorch/workflow"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 AgentOrch 的主服务器
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	orch      *orchestrator.Orchestrator
	collector *metrics.Collector
	registry  *prometheus.Registry

	httpManager    *server.Manager
	metricsManager *server.Manager

	watcher   *config.LibraryWatcher
	redis     *redis.Client
	telemetry *telemetry.Providers
}

// NewServer 根据配置组装服务器；Claude API Key 缺失时立即失败
func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if cfg.Claude.APIKey == "" {
		return nil, types.NewValidationError("claude api key is not configured (set ANTHROPIC_API_KEY or claude.api_key)")
	}
	provider := claude.NewClaudeProvider(providers.ClaudeConfig{
		APIKey:     cfg.Claude.APIKey,
		BaseURL:    cfg.Claude.BaseURL,
		Model:      cfg.Claude.Model,
		Timeout:    cfg.Claude.Timeout,
		SDKRetries: cfg.Claude.SDKRetries,
	}, logger)
	return newServer(ctx, cfg, provider, logger)
}

// newServer 使用给定 Provider 组装服务器
func newServer(ctx context.Context, cfg *config.Config, provider llm.Provider, logger *zap.Logger) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logger,
	}

	// 1. 库文件
	agents, library, err := loadLibraries(cfg.Libraries)
	if err != nil {
		return nil, err
	}

	// 2. 遥测
	s.telemetry, err = telemetry.Init(ctx, cfg.Telemetry, Version, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}

	// 3. 指标
	s.registry = prometheus.NewRegistry()
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.collector = metrics.NewCollector("agentorch", s.registry, logger)

	// 4. 补全缓存
	var completionCache workflow.CompletionCache
	if cfg.Cache.Enabled {
		s.redis, err = cache.Dial(ctx, cache.RedisConfig{
			Addr:         cfg.Cache.Redis.Addr,
			Password:     cfg.Cache.Redis.Password,
			DB:           cfg.Cache.Redis.DB,
			PoolSize:     cfg.Cache.Redis.PoolSize,
			MinIdleConns: cfg.Cache.Redis.MinIdleConns,
		}, logger)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		completionCache = cache.New(s.redis, cache.Config{
			LocalMaxSize: cfg.Cache.LocalMaxSize,
			LocalTTL:     cfg.Cache.LocalTTL,
			RedisTTL:     cfg.Cache.RedisTTL,
			KeyPrefix:    "agentorch:completion:",
		}, logger)
	}

	// 5. 编排器
	s.orch, err = orchestrator.New(orchestrator.Deps{
		Agents:    agents,
		Library:   library,
		Provider:  provider,
		Cache:     completionCache,
		Estimator: tokenizer.NewUsageEstimator(tokenizer.NewTiktokenTokenizer(""), logger),
		Collector: s.collector,
		Logger:    logger,
	}, orchestratorConfig(cfg.Orchestrator))
	if err != nil {
		s.Close()
		return nil, err
	}

	// 6. 库文件热重载
	if cfg.Libraries.Watch {
		s.watcher, err = config.NewLibraryWatcher(
			[]string{cfg.Libraries.AgentsPath, cfg.Libraries.WorkflowsPath},
			config.WithWatcherLogger(logger),
		)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to create library watcher: %w", err)
		}
		s.watcher.OnChange(s.onLibraryChange)
	}

	// 7. HTTP 服务
	s.httpManager = server.NewManager("api", s.Handler(ctx), server.Config{
		Addr:            fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     server.DefaultConfig().IdleTimeout,
		MaxHeaderBytes:  server.DefaultConfig().MaxHeaderBytes,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)

	if cfg.Server.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
		s.metricsManager = server.NewManager("metrics", mux, server.Config{
			Addr:            fmt.Sprintf(":%d", cfg.Server.MetricsPort),
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.ReadTimeout,
			IdleTimeout:     server.DefaultConfig().IdleTimeout,
			MaxHeaderBytes:  server.DefaultConfig().MaxHeaderBytes,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		}, logger)
	}

	return s, nil
}

// loadLibraries 读取 Agent 库与（可选的）工作流库
func loadLibraries(cfg config.LibrariesConfig) (*agent.Registry, *workflow.Library, error) {
	agents, err := agent.LoadLibrary(cfg.AgentsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load agent library: %w", err)
	}
	if cfg.WorkflowsPath == "" {
		return agents, nil, nil
	}
	library, err := workflow.LoadLibrary(cfg.WorkflowsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load workflow library: %w", err)
	}
	return agents, library, nil
}

func orchestratorConfig(c config.OrchestratorConfig) orchestrator.Config {
	oc := orchestrator.DefaultConfig()
	oc.Executor.TaskTimeout = c.TaskTimeout
	oc.Executor.MaxRetries = c.MaxRetries
	oc.Executor.InitialDelay = c.InitialDelay
	oc.Executor.MaxDelay = c.MaxDelay
	oc.Executor.Multiplier = c.Multiplier
	oc.Executor.Jitter = c.Jitter
	oc.Scheduler.MaxConcurrency = c.MaxConcurrency
	oc.Stream.StreamTimeout = c.StreamTimeout
	return oc
}

// onLibraryChange 重新加载库文件；解析失败时保留当前快照
func (s *Server) onLibraryChange(event config.FileEvent) {
	if !event.Op.Reloadable() {
		return
	}
	agents, library, err := loadLibraries(s.cfg.Libraries)
	if err != nil {
		s.logger.Warn("library reload failed, keeping current snapshot",
			zap.String("path", event.Path),
			zap.Error(err),
		)
		return
	}
	s.orch.ReloadLibraries(agents, library)
}

// =============================================================================
// 🛣️ 路由
// =============================================================================

// Handler 构建带中间件的 API 路由；ctx 控制限流器后台清理的生命周期
func (s *Server) Handler(ctx context.Context) http.Handler {
	health := handlers.NewHealthHandler(Version, s.logger)
	health.RegisterCheck(handlers.NewFuncCheck("agents", func(context.Context) error {
		if s.orch.Agents().Len() == 0 {
			return errors.New("no agents loaded")
		}
		return nil
	}))
	if s.redis != nil {
		health.RegisterCheck(handlers.NewFuncCheck("redis", func(ctx context.Context) error {
			return s.redis.Ping(ctx).Err()
		}))
	}

	agentHandler := handlers.NewAgentHandler(s.orch, s.logger)
	workflowHandler := handlers.NewWorkflowHandler(s.orch, s.logger)
	metricsHandler := handlers.NewMetricsHandler(s.orch, s.logger)
	streamHandler := handlers.NewStreamHandler(s.orch, s.logger,
		handlers.WithOriginPatterns(originPatterns(s.cfg.Server.CORSAllowedOrigins)...))

	mux := http.NewServeMux()

	// 健康检查
	mux.HandleFunc("GET /health", health.HandleHealth)
	mux.HandleFunc("GET /healthz", health.HandleHealthz)
	mux.HandleFunc("GET /ready", health.HandleReady)
	mux.HandleFunc("GET /version", health.HandleVersion(BuildTime, GitCommit))

	// Agent
	mux.HandleFunc("GET /api/v1/agents", agentHandler.HandleListAgents)
	mux.HandleFunc("GET /api/v1/agents/capabilities", agentHandler.HandleCapabilities)
	mux.HandleFunc("GET /api/v1/agents/{name}", agentHandler.HandleGetAgent)
	mux.HandleFunc("POST /api/v1/agents/execute", agentHandler.HandleExecute)
	mux.HandleFunc("POST /api/v1/agents/stream", streamHandler.HandleSSE)
	mux.HandleFunc("GET /api/v1/agents/stream/ws", streamHandler.HandleWebSocket)

	// 工作流
	mux.HandleFunc("GET /api/v1/workflows", workflowHandler.HandleList)
	mux.HandleFunc("GET /api/v1/workflows/active", workflowHandler.HandleActive)
	mux.HandleFunc("POST /api/v1/workflows/execute", workflowHandler.HandleExecute)

	// 运行指标
	mux.HandleFunc("GET /api/v1/metrics", metricsHandler.HandleMetrics)

	return Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing(),
		RequestLogger(s.logger, s.collector),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RateLimiter(ctx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
	)
}

// originPatterns 把 CORS 来源转换为 WebSocket 的 host 匹配模式
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		o = strings.TrimPrefix(o, "https://")
		o = strings.TrimPrefix(o, "http://")
		if o != "" {
			patterns = append(patterns, o)
		}
	}
	return patterns
}

// =============================================================================
// 🚀 运行与关闭
// =============================================================================

// Run 启动 API 与 Metrics 服务并阻塞到 ctx 结束
func (s *Server) Run(ctx context.Context) error {
	if s.watcher != nil {
		if err := s.watcher.Start(ctx); err != nil {
			s.logger.Warn("library watcher not started", zap.Error(err))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.httpManager.Run(gctx) })
	if s.metricsManager != nil {
		g.Go(func() error { return s.metricsManager.Run(gctx) })
	}
	return g.Wait()
}

// Close 释放外部资源
func (s *Server) Close() {
	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			s.logger.Warn("failed to stop library watcher", zap.Error(err))
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if s.telemetry != nil {
		if err := s.telemetry.Shutdown(context.Background()); err != nil {
			s.logger.Warn("failed to shutdown telemetry", zap.Error(err))
		}
	}
}
