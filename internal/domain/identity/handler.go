package identity

import (
	"net/http"
	"time"

	"petpal/internal/domain/users"
	"petpal/internal/middleware"
	"petpal/internal/platform/httpx"
	"petpal/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

type HandlerOptions struct {
	CookieSecure bool
	Log          logger.Logger

	// Limit envuelve los POST públicos (login, registro, recuperación). nil = sin límite.
	Limit func(http.Handler) http.Handler
}

const formMaxMemory = 1 << 20

func RegisterRoutes(r chi.Router, svc *Service, opts HandlerOptions) {
	if opts.Log == nil {
		opts.Log = logger.NewNop()
	}
	h := &handlers{svc: svc, opts: opts}

	r.Group(func(pr chi.Router) {
		if opts.Limit != nil {
			pr.Use(opts.Limit)
		}
		pr.Post("/login", h.login)
		pr.Post("/register", h.register)
		pr.Post("/restore_password", h.restorePassword)
	})

	r.Get("/logout", h.logout)
	r.Post("/logout", h.logout)
	r.Get("/confirm/{token}", h.confirmEmail)
	r.Get("/reset_password/{token}", h.checkReset)
	r.Post("/reset_password/{token}", h.resetPassword)
}

type handlers struct {
	svc  *Service
	opts HandlerOptions
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func toUserResponse(u users.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt}
}

// login godoc
// @Summary Iniciar sesión
// @Description Valida email y password. Cualquier sesión previa se destruye; si las credenciales son válidas se setea la cookie de sesión.
// @Tags identity
// @Accept x-www-form-urlencoded
// @Produce json
// @Param email formData string true "Email"
// @Param password formData string true "Password"
// @Success 200 {object} userResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse "invalid email and/or password"
// @Failure 429 {object} httpx.ErrorResponse
// @Router /login [post]
func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	prior := middleware.SessionID(r)
	if err := httpx.ParseForm(r, formMaxMemory); err != nil {
		httpx.Error(w, r, h.opts.Log, err)
		return
	}

	u, sess, err := h.svc.Login(r.Context(), LoginInput{
		Email:          r.FormValue("email"),
		Password:       r.FormValue("password"),
		PriorSessionID: prior,
	})
	if err != nil {
		if prior != "" {
			middleware.ClearSessionCookie(w, h.opts.CookieSecure)
		}
		httpx.Error(w, r, h.opts.Log, err)
		return
	}

	middleware.SetSessionCookie(w, sess.ID, sess.ExpiresAt, h.opts.CookieSecure)
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// register godoc
// @Summary Registrar usuario
// @Description No crea el usuario: envía un link de confirmación válido por una hora.
// @Tags identity
// @Accept x-www-form-urlencoded
// @Produce json
// @Param username formData string true "Nombre de usuario"
// @Param email formData string true "Email"
// @Param password formData string true "Password"
// @Param confirmation formData string true "Repetir password"
// @Success 202 {object} messageResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse "no se pudo enviar el email"
// @Router /register [post]
func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	if err := httpx.ParseForm(r, formMaxMemory); err != nil {
		httpx.Error(w, r, h.opts.Log, err)
		return
	}

	err := h.svc.Register(r.Context(), RegisterInput{
		Username:     r.FormValue("username"),
		Email:        r.FormValue("email"),
		Password:     r.FormValue("password"),
		Confirmation: r.FormValue("confirmation"),
	})
	if err != nil {
		httpx.Error(w, r, h.opts.Log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, messageResponse{
		Message: "A confirmation email has been sent. Please check your inbox and your spam folder.",
	})
}

// confirmEmail godoc
// @Summary Confirmar email
// @Description Crea el usuario del registro pendiente y abre sesión.
// @Tags identity
// @Produce json
// @Param token path string true "Token de confirmación"
// @Success 201 {object} userResponse
// @Failure 401 {object} httpx.ErrorResponse "link inválido o expirado"
// @Failure 409 {object} httpx.ErrorResponse "email ya confirmado"
// @Router /confirm/{token} [get]
func (h *handlers) confirmEmail(w http.ResponseWriter, r *http.Request) {
	u, sess, err := h.svc.ConfirmEmail(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		httpx.Error(w, r, h.opts.Log, err)
		return
	}

	middleware.SetSessionCookie(w, sess.ID, sess.ExpiresAt, h.opts.CookieSecure)
	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(u))
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), middleware.SessionID(r)); err != nil {
		h.opts.Log.Warn("logout failed", map[string]any{"error": err})
	}
	middleware.ClearSessionCookie(w, h.opts.CookieSecure)
	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}

// restorePassword godoc
// @Summary Pedir reseteo de password
// @Tags identity
// @Accept x-www-form-urlencoded
// @Produce json
// @Param email formData string true "Email registrado"
// @Success 202 {object} messageResponse
// @Failure 404 {object} httpx.ErrorResponse "email no registrado"
// @Router /restore_password [post]
func (h *handlers) restorePassword(w http.ResponseWriter, r *http.Request) {
	if err := httpx.ParseForm(r, formMaxMemory); err != nil {
		httpx.Error(w, r, h.opts.Log, err)
		return
	}
	if err := h.svc.RestorePassword(r.Context(), r.FormValue("email")); err != nil {
		httpx.Error(w, r, h.opts.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, messageResponse{
		Message: "A password reset link has been sent to your email address. Please check your inbox.",
	})
}

func (h *handlers) checkReset(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.CheckResetToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		httpx.Error(w, r, h.opts.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"email": u.Email})
}

// resetPassword godoc
// @Summary Resetear password
// @Tags identity
// @Accept x-www-form-urlencoded
// @Produce json
// @Param token path string true "Token de reseteo"
// @Param password formData string true "Nuevo password"
// @Param confirmation formData string true "Repetir password"
// @Success 200 {object} messageResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse "link inválido o expirado"
// @Failure 404 {object} httpx.ErrorResponse "usuario inexistente"
// @Router /reset_password/{token} [post]
func (h *handlers) resetPassword(w http.ResponseWriter, r *http.Request) {
	if err := httpx.ParseForm(r, formMaxMemory); err != nil {
		httpx.Error(w, r, h.opts.Log, err)
		return
	}
	err := h.svc.ResetPassword(r.Context(), ResetInput{
		Token:        chi.URLParam(r, "token"),
		Password:     r.FormValue("password"),
		Confirmation: r.FormValue("confirmation"),
	})
	if err != nil {
		httpx.Error(w, r, h.opts.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "Your password has been reset successfully!"})
}
