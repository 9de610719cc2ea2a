// Package web exposes the location core over HTTP for the map page. It
// returns structured JSON and file downloads; rendering is left to the
// client.
package web

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"umkm-map/internal/config"
	"umkm-map/internal/grouping"
	"umkm-map/internal/session"
)

const (
	sessionKeyID = "sid"
	ctxSession   = "umkm.session"
)

// Server wires the session store and grouping engine to gin routes.
type Server struct {
	cfg     *config.Config
	store   *session.Store
	engine  *grouping.Engine
	uploads *rate.Limiter
}

func NewServer(cfg *config.Config, store *session.Store, engine *grouping.Engine) *Server {
	limit := rate.Inf
	if cfg.Upload.PerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.Upload.PerMinute))
	}
	return &Server{
		cfg:     cfg,
		store:   store,
		engine:  engine,
		uploads: rate.NewLimiter(limit, max(cfg.Upload.PerMinute, 1)),
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	store := cookie.NewStore([]byte(s.cfg.Server.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(s.cfg.Session.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(s.cfg.Server.CookieName, store))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/download-template", s.downloadTemplate)

	api := r.Group("/api")
	api.Use(s.withSession)
	{
		api.GET("/locations", s.listLocations)
		api.POST("/locations", s.addLocation)
		api.POST("/upload", s.upload)
		api.GET("/export/:format", s.exportLocations)
		api.GET("/nearest", s.nearest)
		api.GET("/nearby", s.nearby)
	}
	return r
}

// withSession resolves the caller's location session from the cookie,
// starting a fresh one when the cookie is missing or the session expired.
func (s *Server) withSession(c *gin.Context) {
	cookieSess := sessions.Default(c)
	id, _ := cookieSess.Get(sessionKeyID).(string)

	sess, created, err := s.store.GetOrCreate(id)
	if err != nil {
		zap.L().Error("web: create session", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "cannot start session"})
		return
	}
	if created {
		cookieSess.Set(sessionKeyID, sess.ID)
		if err := cookieSess.Save(); err != nil {
			zap.L().Error("web: save session cookie", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "cannot start session"})
			return
		}
		zap.L().Debug("web: new session", zap.String("session", sess.ID))
	}

	c.Set(ctxSession, sess)
	c.Next()
}

func currentSession(c *gin.Context) *session.Session {
	return c.MustGet(ctxSession).(*session.Session)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		zap.L().Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
