package identity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"strings"
	"time"

	"petpal/internal/domain/users"
	"petpal/internal/platform/apperr"
	"petpal/internal/platform/logger"
	"petpal/internal/platform/password"
	"petpal/internal/platform/tokens"
	"petpal/internal/ports/auth"
	mailport "petpal/internal/ports/mail"

	"github.com/google/uuid"
)

var (
	ErrNotFound = apperr.ErrNotFound

	ErrInvalidCredentials = apperr.New(apperr.ErrUnauthorized, "invalid email and/or password")
	ErrInvalidLink        = apperr.New(apperr.ErrUnauthorized, "the link is invalid or has expired")
	ErrNoSession          = apperr.New(apperr.ErrUnauthorized, "not logged in")
	ErrAlreadyConfirmed   = apperr.New(apperr.ErrConflict, "this email has already been confirmed")
	ErrEmailNotRegistered = apperr.New(apperr.ErrNotFound, "this email is not registered")
	ErrUserGone           = apperr.New(apperr.ErrNotFound, "no user found with this email")
)

const DefaultSessionTTL = 24 * time.Hour

type Deps struct {
	Users    users.Repository
	Pending  PendingStore
	Sessions SessionStore
	Mailer   mailport.Sender
	Signer   *tokens.Signer
	Hasher   *password.Hasher
	Log      logger.Logger
}

type Options struct {
	BaseURL    string
	SessionTTL time.Duration
	CheckMX    bool
}

type Service struct {
	users    users.Repository
	pending  PendingStore
	sessions SessionStore
	mailer   mailport.Sender
	signer   *tokens.Signer
	hasher   *password.Hasher
	log      logger.Logger

	baseURL    string
	sessionTTL time.Duration
	checkMX    bool

	now      func() time.Time
	lookupMX func(ctx context.Context, domain string) ([]*net.MX, error)
}

func NewService(d Deps, opts Options) *Service {
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	log := d.Log
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		users:      d.Users,
		pending:    d.Pending,
		sessions:   d.Sessions,
		mailer:     d.Mailer,
		signer:     d.Signer,
		hasher:     d.Hasher,
		log:        log,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		sessionTTL: ttl,
		checkMX:    opts.CheckMX,
		now:        time.Now,
		lookupMX:   net.DefaultResolver.LookupMX,
	}
}

// Register valida el formulario, guarda el registro pendiente y envía el link de confirmación.
// No crea el usuario.
func (s *Service) Register(ctx context.Context, in RegisterInput) error {
	username := strings.TrimSpace(in.Username)
	email := users.NormalizeEmail(in.Email)

	fe := apperr.FieldErrors{}
	if username == "" {
		fe.Add("username", "required")
	}
	if email == "" {
		fe.Add("email", "required")
	} else if msg := s.checkEmail(ctx, email); msg != "" {
		fe.Add("email", msg)
	}
	if in.Password == "" {
		fe.Add("password", "required")
	}
	if in.Confirmation == "" {
		fe.Add("confirmation", "required")
	}
	if in.Password != "" && in.Confirmation != "" && in.Password != in.Confirmation {
		fe.Add("confirmation", "passwords must match")
	}
	if err := fe.Err(); err != nil {
		return err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return apperr.Invalid("email", "this email is already registered, try to login")
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("identity: lookup user: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return fmt.Errorf("identity: hash password: %w", err)
	}

	p := PendingRegistration{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.pending.Put(ctx, p, s.signer.TTL()); err != nil {
		return fmt.Errorf("identity: store pending registration: %w", err)
	}

	token, err := s.signer.Issue(tokens.PurposeEmailConfirm, tokens.Claims{Email: email, PendingID: p.ID})
	if err != nil {
		s.discardPending(ctx, p.ID)
		return fmt.Errorf("identity: issue confirmation token: %w", err)
	}

	body, err := render(confirmationTmpl, username, s.baseURL+"/confirm/"+token)
	if err == nil {
		err = s.mailer.Send(ctx, mailport.Message{To: email, Subject: "Confirm your email", HTML: body})
	}
	if err != nil {
		s.discardPending(ctx, p.ID)
		return fmt.Errorf("identity: send confirmation: %w", err)
	}

	s.log.Info("registration pending", map[string]any{"pending_id": p.ID})
	return nil
}

// ConfirmEmail crea el usuario del registro pendiente y abre una sesión.
func (s *Service) ConfirmEmail(ctx context.Context, token string) (users.User, Session, error) {
	c, err := s.signer.Verify(tokens.PurposeEmailConfirm, token)
	if err != nil || c.PendingID == "" {
		return users.User{}, Session{}, ErrInvalidLink
	}
	email := users.NormalizeEmail(c.Email)

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return users.User{}, Session{}, ErrAlreadyConfirmed
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return users.User{}, Session{}, fmt.Errorf("identity: lookup user: %w", err)
	}

	p, err := s.pending.Take(ctx, c.PendingID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return users.User{}, Session{}, ErrInvalidLink
		}
		return users.User{}, Session{}, fmt.Errorf("identity: take pending registration: %w", err)
	}
	if p.Email != email {
		return users.User{}, Session{}, ErrInvalidLink
	}

	now := s.now().UTC()
	u := users.User{
		ID:           uuid.NewString(),
		Username:     p.Username,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return users.User{}, Session{}, ErrAlreadyConfirmed
		}
		return users.User{}, Session{}, fmt.Errorf("identity: create user: %w", err)
	}

	sess, err := s.startSession(ctx, u.ID)
	if err != nil {
		return users.User{}, Session{}, err
	}
	s.log.Info("user confirmed", map[string]any{"user_id": u.ID})
	return u, sess, nil
}

// Login destruye la sesión previa y, si las credenciales son válidas, abre una nueva.
func (s *Service) Login(ctx context.Context, in LoginInput) (users.User, Session, error) {
	if in.PriorSessionID != "" {
		if err := s.Logout(ctx, in.PriorSessionID); err != nil {
			return users.User{}, Session{}, err
		}
	}

	email := users.NormalizeEmail(in.Email)
	fe := apperr.FieldErrors{}
	if email == "" {
		fe.Add("email", "required")
	}
	if in.Password == "" {
		fe.Add("password", "required")
	}
	if err := fe.Err(); err != nil {
		return users.User{}, Session{}, err
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			return users.User{}, Session{}, fmt.Errorf("identity: lookup user: %w", err)
		}
		s.hasher.VerifyMissing(in.Password)
		return users.User{}, Session{}, ErrInvalidCredentials
	}
	if !s.hasher.Verify(u.PasswordHash, in.Password) {
		return users.User{}, Session{}, ErrInvalidCredentials
	}

	sess, err := s.startSession(ctx, u.ID)
	if err != nil {
		return users.User{}, Session{}, err
	}
	return u, sess, nil
}

// Logout es idempotente: una sesión inexistente no es error.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("identity: delete session: %w", err)
	}
	return nil
}

// RestorePassword envía el link de reseteo al email registrado.
func (s *Service) RestorePassword(ctx context.Context, email string) error {
	email = users.NormalizeEmail(email)
	if email == "" {
		return apperr.Invalid("email", "required")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return ErrEmailNotRegistered
		}
		return fmt.Errorf("identity: lookup user: %w", err)
	}

	token, err := s.signer.Issue(tokens.PurposePasswordReset, tokens.Claims{
		Email:               u.Email,
		PasswordFingerprint: tokens.Fingerprint(u.PasswordHash),
	})
	if err != nil {
		return fmt.Errorf("identity: issue reset token: %w", err)
	}

	body, err := render(resetTmpl, u.Username, s.baseURL+"/reset_password/"+token)
	if err != nil {
		return fmt.Errorf("identity: render reset email: %w", err)
	}
	if err := s.mailer.Send(ctx, mailport.Message{To: u.Email, Subject: "Password Reset Request", HTML: body}); err != nil {
		return fmt.Errorf("identity: send reset email: %w", err)
	}
	return nil
}

// CheckResetToken valida el link sin consumirlo (pre-carga del formulario).
func (s *Service) CheckResetToken(ctx context.Context, token string) (users.User, error) {
	c, err := s.signer.Verify(tokens.PurposePasswordReset, token)
	if err != nil {
		return users.User{}, ErrInvalidLink
	}
	u, err := s.users.GetByEmail(ctx, users.NormalizeEmail(c.Email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return users.User{}, ErrUserGone
		}
		return users.User{}, fmt.Errorf("identity: lookup user: %w", err)
	}
	// el link deja de servir en cuanto cambia el password
	if c.PasswordFingerprint != tokens.Fingerprint(u.PasswordHash) {
		return users.User{}, ErrInvalidLink
	}
	return u, nil
}

func (s *Service) ResetPassword(ctx context.Context, in ResetInput) error {
	u, err := s.CheckResetToken(ctx, in.Token)
	if err != nil {
		return err
	}

	fe := apperr.FieldErrors{}
	if in.Password == "" {
		fe.Add("password", "required")
	}
	if in.Confirmation == "" {
		fe.Add("confirmation", "required")
	}
	if in.Password != "" && in.Confirmation != "" && in.Password != in.Confirmation {
		fe.Add("confirmation", "passwords must match")
	}
	if err := fe.Err(); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return fmt.Errorf("identity: hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash, s.now().UTC()); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return ErrUserGone
		}
		return fmt.Errorf("identity: update password: %w", err)
	}
	s.log.Info("password reset", map[string]any{"user_id": u.ID})
	return nil
}

// Verify implementa auth.AuthVerifier sobre el store de sesiones.
func (s *Service) Verify(ctx context.Context, sessionID string) (auth.Claims, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return auth.Claims{}, ErrNoSession
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return auth.Claims{}, ErrNoSession
		}
		return auth.Claims{}, fmt.Errorf("identity: get session: %w", err)
	}
	if !sess.ExpiresAt.IsZero() && !s.now().Before(sess.ExpiresAt) {
		_ = s.sessions.Delete(ctx, sess.ID)
		return auth.Claims{}, ErrNoSession
	}
	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return auth.Claims{}, ErrNoSession
	}
	return auth.Claims{UserID: u.ID, Email: u.Email, SessionID: sess.ID}, nil
}

func (s *Service) SessionTTL() time.Duration { return s.sessionTTL }

func (s *Service) startSession(ctx context.Context, userID string) (Session, error) {
	now := s.now().UTC()
	sess := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return Session{}, fmt.Errorf("identity: create session: %w", err)
	}
	return sess, nil
}

func (s *Service) discardPending(ctx context.Context, id string) {
	if _, err := s.pending.Take(ctx, id); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		s.log.Warn("discard pending registration failed", map[string]any{"pending_id": id, "error": err})
	}
}

// checkEmail devuelve un mensaje de validación o "".
func (s *Service) checkEmail(ctx context.Context, email string) string {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "invalid email address"
	}
	if !s.checkMX {
		return ""
	}
	domain := email[strings.LastIndex(email, "@")+1:]
	mx, err := s.lookupMX(ctx, domain)
	if err != nil || len(mx) == 0 {
		return "email domain does not accept mail"
	}
	return ""
}
