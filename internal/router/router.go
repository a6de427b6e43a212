package router

import (
	"fmt"
	"net/http"
	"strings"

	"petpal/internal/adapters/kv/memkv"
	mailadapter "petpal/internal/adapters/mail"
	mem "petpal/internal/adapters/storage/memory"
	"petpal/internal/config"
	"petpal/internal/domain/accessgrants"
	"petpal/internal/domain/identity"
	"petpal/internal/domain/journal"
	"petpal/internal/domain/pets"
	"petpal/internal/domain/photos"
	"petpal/internal/domain/species"
	"petpal/internal/domain/trackers"
	"petpal/internal/domain/users"
	"petpal/internal/middleware"
	"petpal/internal/platform/httpx"
	"petpal/internal/platform/logger"
	"petpal/internal/platform/password"
	"petpal/internal/platform/tokens"
	"petpal/internal/platform/uploads"
	mailport "petpal/internal/ports/mail"
	"petpal/internal/ports/ratelimit"

	_ "petpal/docs"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Storage es lo que implementan memory.Store y sqlstore.DB.
type Storage interface {
	Users() users.Repository
	Species() species.Repository
	Pets() pets.Repository
	Photos() photos.Repository
	Journal() journal.Repository
	CareEvents() trackers.Repository
	AccessGrants() accessgrants.Repository
}

// KV es lo que implementan memkv.Store y rediskv.Client.
type KV interface {
	Sessions() identity.SessionStore
	Pending() identity.PendingStore
}

type Options struct {
	Config config.Config
	Log    logger.Logger

	// Opcionales: si vienen nil se usan las implementaciones en memoria
	// (y LogSender para el correo).
	Storage Storage
	KV      KV
	Limiter ratelimit.Limiter
	Mailer  mailport.Sender
}

func NewRouter(opts Options) (http.Handler, error) {
	cfg := opts.Config
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}

	store := opts.Storage
	if store == nil {
		store = mem.New()
	}
	kv := opts.KV
	if kv == nil {
		kv = memkv.New()
	}
	limiter := opts.Limiter
	if limiter == nil && cfg.RateLimit.Enabled {
		limiter = memkv.NewLimiter(memkv.BucketConfig{
			Capacity:       cfg.RateLimit.Capacity,
			RefillTokens:   cfg.RateLimit.RefillTokens,
			RefillInterval: cfg.RateLimit.RefillInterval,
			TTL:            cfg.RateLimit.TTL,
		})
	}
	mailer := opts.Mailer
	if mailer == nil {
		mailer = mailadapter.NewLogSender(log)
	}

	uploadDir := cfg.Upload.Dir
	if strings.TrimSpace(uploadDir) == "" {
		uploadDir = "uploads"
	}
	files, err := uploads.NewStore(uploadDir, cfg.Upload.MaxBytes)
	if err != nil {
		return nil, err
	}
	signer, err := tokens.NewSigner(cfg.SecretKey, tokens.DefaultTTL)
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	// Services por módulo
	usersSvc := users.NewService(store.Users())
	identitySvc := identity.NewService(identity.Deps{
		Users:    store.Users(),
		Pending:  kv.Pending(),
		Sessions: kv.Sessions(),
		Mailer:   mailer,
		Signer:   signer,
		Hasher:   password.NewHasher(cfg.BcryptCost),
		Log:      log,
	}, identity.Options{
		BaseURL:    cfg.BaseURL,
		SessionTTL: cfg.Session.TTL,
		CheckMX:    cfg.ValidateEmailMX,
	})
	speciesSvc := species.NewService(store.Species())
	petsSvc := pets.NewService(store.Pets(), speciesSvc, files, log)
	grantsSvc := accessgrants.NewService(store.AccessGrants(), petsSvc, usersSvc)
	petsSvc.SetAccessChecker(grantsSvc)
	photosSvc := photos.NewService(store.Photos(), petsSvc, files, log)
	journalSvc := journal.NewService(store.Journal(), petsSvc, log)
	trackersSvc := trackers.NewService(store.CareEvents(), petsSvc, log)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog(log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.NoCache)

	r.Use(middleware.AuthContext(identitySvc))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusNotFound, httpx.ErrorResponse{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusMethodNotAllowed, httpx.ErrorResponse{Error: "method not allowed"})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/welcome", welcomeHandler)
	r.Get("/swagger/*", httpSwagger.WrapHandler)
	r.Get("/uploads/*", uploadsHandler(files.Dir()))

	var limit func(http.Handler) http.Handler
	if limiter != nil {
		limit = middleware.RateLimit(limiter, cfg.RateLimit.Prefix, log)
	}
	identity.RegisterRoutes(r, identitySvc, identity.HandlerOptions{
		CookieSecure: cfg.Session.CookieSecure,
		Log:          log,
		Limit:        limit,
	})

	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireSession)

		pets.RegisterRoutes(pr, petsSvc, pets.HandlerOptions{Log: log, MaxUploadBytes: files.MaxBytes()})
		species.RegisterRoutes(pr, speciesSvc, log)
		photos.RegisterRoutes(pr, photosSvc, photos.HandlerOptions{Log: log, MaxUploadBytes: files.MaxBytes()})
		journal.RegisterRoutes(pr, journalSvc, log)
		accessgrants.RegisterRoutes(pr, grantsSvc, petsSvc, log)

		// Al final: /{petID} en la raíz
		trackers.RegisterRoutes(pr, trackersSvc, log)
	})

	return r, nil
}

type welcomeResponse struct {
	Message  string `json:"message"`
	Login    string `json:"login"`
	Register string `json:"register"`
}

// welcomeHandler godoc
// @Summary Bienvenida
// @Description Página pública; RequireSession redirige aquí a los navegadores sin sesión.
// @Tags public
// @Produce json
// @Success 200 {object} welcomeResponse
// @Router /welcome [get]
func welcomeHandler(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, welcomeResponse{
		Message:  "Welcome to PetPal",
		Login:    "/login",
		Register: "/register",
	})
}

// uploadsHandler sirve archivos subidos, sin listado de directorios.
func uploadsHandler(dir string) http.HandlerFunc {
	fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(dir)))
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "*")
		if name == "" || strings.HasSuffix(name, "/") || strings.Contains(name, "..") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		fs.ServeHTTP(w, r)
	}
}
