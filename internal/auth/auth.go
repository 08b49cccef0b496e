package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"lavka/internal/domain"
	"lavka/internal/repository"
)

// Service отвечает за учётные записи и сессии. Слой обмена кук живёт в
// middleware; сервис работает только с токенами.
type Service struct {
	users      repository.UserRepository
	sessions   repository.SessionRepository
	sessionTTL time.Duration
	nowFunc    func() time.Time
}

func NewService(users repository.UserRepository, sessions repository.SessionRepository, sessionTTL time.Duration) *Service {
	return &Service{
		users:      users,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		nowFunc:    func() time.Time { return time.Now().UTC() },
	}
}

var (
	ErrBadCredentials = errors.New("bad credentials")
	ErrUsernameTaken  = errors.New("username taken")
)

// Register создаёт пользователя и сразу открывает сессию
func (s *Service) Register(ctx context.Context, username, password string) (*domain.User, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}
	u := domain.User{Username: username, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, "", ErrUsernameTaken
		}
		return nil, "", err
	}
	token, err := s.openSession(ctx, u.ID)
	if err != nil {
		return nil, "", err
	}
	return &u, token, nil
}

// Login проверяет пароль и открывает сессию. Неизвестное имя и неверный
// пароль наружу неразличимы.
func (s *Service) Login(ctx context.Context, username, password string) (*domain.User, string, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrBadCredentials
		}
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrBadCredentials
	}
	token, err := s.openSession(ctx, u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Logout закрывает сессию; отсутствующий токен не ошибка
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// Resolve возвращает пользователя по токену сессии
func (s *Service) Resolve(ctx context.Context, token string) (*domain.User, error) {
	sess, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, sess.UserID)
}

func (s *Service) openSession(ctx context.Context, userID int64) (string, error) {
	sess := domain.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: s.nowFunc().Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, &sess); err != nil {
		return "", err
	}
	return sess.Token, nil
}
