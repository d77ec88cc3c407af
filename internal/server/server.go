package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ShiShiBits1/GrowthQuest/internal/analytics"
	"github.com/ShiShiBits1/GrowthQuest/internal/backup"
	"github.com/ShiShiBits1/GrowthQuest/internal/config"
	"github.com/ShiShiBits1/GrowthQuest/internal/handler"
	"github.com/ShiShiBits1/GrowthQuest/internal/middleware"
	"github.com/ShiShiBits1/GrowthQuest/internal/notify"
	"github.com/ShiShiBits1/GrowthQuest/internal/store"
	"github.com/ShiShiBits1/GrowthQuest/internal/streak"
	"github.com/ShiShiBits1/GrowthQuest/internal/tracker"
	ws "github.com/ShiShiBits1/GrowthQuest/internal/websocket"
)

const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	authH          *handler.AuthHandler
	childH         *handler.ChildHandler
	catalogH       *handler.CatalogHandler
	recordH        *handler.RecordHandler
	analyticsH     *handler.AnalyticsHandler
	pushH          *handler.PushHandler
	backupH        *handler.BackupHandler
	service        *tracker.Service
	sessionStore   *store.SessionStore
	childStore     *store.ChildStore
	rateLimiter    *middleware.RateLimiter
	backupManager  *backup.Manager
	pushScheduler  *notify.Scheduler
	allowedOrigins []string
	logger         *slog.Logger
}

func New(db *sql.DB, cfg config.Config, logger *slog.Logger) (*Server, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	hub := ws.NewHub(logger.With("component", "websocket"))

	parentStore := store.NewParentStore(db)
	childStore := store.NewChildStore(db)
	sessionStore := store.NewSessionStore(db)
	taskStore := store.NewTaskStore(db)
	badgeStore := store.NewBadgeStore(db)
	rewardStore := store.NewRewardStore(db)
	streakStore := store.NewStreakStore(db)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)

	svc := tracker.New(store.NewLedger(db), streak.NewTracker(loc), logger.With("component", "tracker"))
	reporter := analytics.NewReporter(store.NewAnalyticsStore(db), streakStore, taskStore, loc)

	backupMgr := backup.NewManager(BackupConfig(cfg.Backup), db, backupStore, logger.With("component", "backup"), func(s backup.Status) {
		hub.BroadcastAll(ws.Message{
			Type:   "backup_status",
			Entity: "backup",
			Action: string(s.State),
			Extra: map[string]any{
				"in_progress": s.InProgress,
				"error":       s.Error,
			},
		})
	})

	// Push notifications are optional; a nil notifier sends nothing.
	var (
		notifier  *notify.Notifier
		pushSched *notify.Scheduler
		publicKey string
	)
	if cfg.PushEnabled() {
		pushLogger := logger.With("component", "push")
		sender := notify.NewWebPush(notify.Config{
			VAPIDPublicKey:  cfg.Push.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.Push.VAPIDPrivateKey,
			Subscriber:      cfg.Push.Subscriber,
		})
		notifier = notify.NewNotifier(sender, pushStore, pushLogger)
		pushSched = notify.NewScheduler(notifier, streakStore, loc, cfg.Push.ReminderHour, pushLogger)
		publicKey = sender.VAPIDPublicKey()
	}

	return &Server{
		db:             db,
		hub:            hub,
		authH:          handler.NewAuthHandler(parentStore, childStore, sessionStore, cfg.Server.SecureCookies, logger.With("component", "auth")),
		childH:         handler.NewChildHandler(childStore, svc, hub, logger.With("component", "children")),
		catalogH:       handler.NewCatalogHandler(taskStore, badgeStore, rewardStore, svc, hub, logger.With("component", "catalog")),
		recordH:        handler.NewRecordHandler(svc, taskStore, notifier, hub, logger.With("component", "records")),
		analyticsH:     handler.NewAnalyticsHandler(reporter, svc, logger.With("component", "analytics")),
		pushH:          handler.NewPushHandler(pushStore, publicKey, logger.With("component", "push_handler")),
		backupH:        handler.NewBackupHandler(backupMgr, logger.With("component", "backup_handler")),
		service:        svc,
		sessionStore:   sessionStore,
		childStore:     childStore,
		rateLimiter:    middleware.NewRateLimiter(),
		backupManager:  backupMgr,
		pushScheduler:  pushSched,
		allowedOrigins: cfg.Server.AllowedOrigins,
		logger:         logger,
	}, nil
}

// BackupConfig maps the file and environment settings onto the manager config.
func BackupConfig(c config.BackupConfig) backup.Config {
	return backup.Config{
		S3: backup.S3Config{
			Endpoint:  c.S3.Endpoint,
			Bucket:    c.S3.Bucket,
			Region:    c.S3.Region,
			AccessKey: c.S3.AccessKey,
			SecretKey: c.S3.SecretKey,
		},
		Passphrase:    c.Passphrase,
		Interval:      c.Interval.Duration,
		RetentionDays: c.RetentionDays,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// PushScheduler returns the streak reminder scheduler, or nil when push is
// not configured.
func (s *Server) PushScheduler() *notify.Scheduler {
	return s.pushScheduler
}

// Tracker returns the workflow service.
func (s *Server) Tracker() *tracker.Service {
	return s.service
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.childStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestID(middleware.RequestLogger(s.logger.With("component", "http"))(outerMux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, authRateLimit, authRateWindow)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func parentOnly(h http.HandlerFunc) http.Handler {
	return middleware.RequireParent(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /logout", s.authH.Logout)
	mux.HandleFunc("GET /api/me", s.authH.Me)

	// Children
	mux.HandleFunc("GET /api/children", s.childH.List)
	mux.Handle("POST /api/children", parentOnly(s.childH.Create))
	mux.HandleFunc("GET /api/children/{id}", s.childH.Get)
	mux.Handle("DELETE /api/children/{id}", parentOnly(s.childH.Delete))

	// Catalog
	mux.HandleFunc("GET /api/categories", s.catalogH.ListCategories)
	mux.Handle("POST /api/categories", parentOnly(s.catalogH.CreateCategory))
	mux.HandleFunc("GET /api/tasks", s.catalogH.ListTasks)
	mux.Handle("POST /api/tasks", parentOnly(s.catalogH.CreateTask))
	mux.HandleFunc("GET /api/tasks/{id}", s.catalogH.GetTask)
	mux.Handle("PUT /api/tasks/{id}", parentOnly(s.catalogH.UpdateTask))
	mux.HandleFunc("GET /api/tasks/{id}/badges", s.catalogH.ListTaskBadges)
	mux.Handle("POST /api/tasks/{id}/badges", parentOnly(s.catalogH.CreateBadge))
	mux.Handle("POST /api/tasks/{id}/badges/seed", parentOnly(s.catalogH.SeedBadges))
	mux.Handle("DELETE /api/badges/{badgeID}", parentOnly(s.catalogH.DeleteBadge))
	mux.HandleFunc("GET /api/rewards", s.catalogH.ListRewards)
	mux.Handle("POST /api/rewards", parentOnly(s.catalogH.CreateReward))
	mux.Handle("PUT /api/rewards/{id}", parentOnly(s.catalogH.UpdateReward))
	mux.Handle("DELETE /api/rewards/{id}", parentOnly(s.catalogH.DeleteReward))

	// Records and confirmation
	mux.HandleFunc("POST /api/children/{id}/records", s.recordH.Log)
	mux.HandleFunc("GET /api/children/{id}/records", s.recordH.List)
	mux.Handle("POST /api/records/{id}/confirm", parentOnly(s.recordH.Confirm))
	mux.Handle("PUT /api/records/{id}", parentOnly(s.recordH.Edit))
	mux.Handle("DELETE /api/records/{id}", parentOnly(s.recordH.Delete))

	// Streaks and badges
	mux.HandleFunc("GET /api/children/{id}/streaks", s.recordH.Streaks)
	mux.HandleFunc("GET /api/children/{id}/streaks/{taskID}", s.recordH.StreakStatus)
	mux.HandleFunc("GET /api/children/{id}/badges", s.recordH.EarnedBadges)
	mux.HandleFunc("GET /api/children/{id}/badges/closest", s.recordH.ClosestBadges)

	// Rewards redemption
	mux.HandleFunc("POST /api/children/{id}/redemptions", s.recordH.Redeem)
	mux.HandleFunc("GET /api/children/{id}/redemptions", s.recordH.Redemptions)
	mux.Handle("POST /api/redemptions/{id}/fulfill", parentOnly(s.recordH.Fulfill))

	mux.HandleFunc("GET /api/children/{id}/analytics", s.analyticsH.Dashboard)

	// Push notification API routes
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)

	// Backups
	mux.Handle("GET /api/backups", parentOnly(s.backupH.List))
	mux.Handle("POST /api/backups", parentOnly(s.backupH.RunNow))
	mux.Handle("GET /api/backups/status", parentOnly(s.backupH.Status))
	mux.Handle("GET /api/backups/{id}/download", parentOnly(s.backupH.Download))

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.allowedOrigins))
}
