package onboardinghttp

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"apex/internal/journal"
	"apex/internal/logger"
	"apex/internal/store"
	"apex/internal/synthesis"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

//go:embed templates/*.html
var templateFS embed.FS

// Synthesizer is the analysis side of the Report and Challenge screens.
type Synthesizer interface {
	Report(ctx context.Context, in synthesis.ReportInput) synthesis.ReportResult
	Challenge(ctx context.Context, in synthesis.ChallengeInput) synthesis.ChallengeResult
}

// Server 提供引导流程的页面与 /api/session 接口。
type Server struct {
	addr     string
	router   *gin.Engine
	sessions *Registry
	h        *handler
}

// ServerConfig 描述 onboarding HTTP 服务依赖。
type ServerConfig struct {
	Addr           string
	Synth          Synthesizer
	Audit          store.AuditRepository
	Policy         journal.Policy
	SplashDelay    time.Duration
	TypingDelay    time.Duration
	MaxUploadBytes int64
	SessionTTL     time.Duration
	SecureCookie   bool
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Synth == nil {
		return nil, errors.New("onboarding http server requires a synthesizer")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Policy.Kind == "" {
		cfg.Policy = journal.DayPolicy(5)
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	// multipart 解析上限略大于截图上限，留出表单字段空间
	router.MaxMultipartMemory = cfg.MaxUploadBytes + 1<<20

	tmpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(tmpl)

	sessions := NewRegistry(cfg.SessionTTL, sessionFactory{typingDelay: cfg.TypingDelay, policy: cfg.Policy})
	h := &handler{cfg: cfg, sessions: sessions}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": sessions.Len()})
	})
	h.register(router)
	return &Server{addr: cfg.Addr, router: router, sessions: sessions, h: h}, nil
}

func loadTemplates() (*template.Template, error) {
	return template.New("onboarding").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
}

// requestLogger 记录每个请求，便于追踪流程跳转。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, fullPath, status, client, dur)
	}
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start 启动 HTTP 服务与会话清理，直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.sessions.RunSweeper(gctx)
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		s.h.jobs.Wait()
		s.sessions.Close()
		return nil
	})
	return g.Wait()
}
