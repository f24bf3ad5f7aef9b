package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linkshop/catalogo/internal/lib/jwt"
	"github.com/linkshop/catalogo/internal/lib/password"
	"github.com/linkshop/catalogo/internal/models"
	"github.com/linkshop/catalogo/internal/storage/repository"
)

type RepoMock struct {
	mock.Mock
}

func (m *RepoMock) RegisterUser(ctx context.Context, user models.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}

func (m *RepoMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func TestRegister_HashesPassword(t *testing.T) {
	repo := new(RepoMock)
	svc := New(repo, jwt.NewJWTMaker("test-secret", time.Hour))

	var stored models.User
	repo.On("RegisterUser", mock.Anything, mock.MatchedBy(func(user models.User) bool {
		stored = user
		return user.Email == "ana@example.com" && user.Role == "user"
	})).Return("uid-1", nil).Once()

	uid, err := svc.Register(context.Background(), "ana@example.com", "ana", "password123")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", uid)

	// Raw password never reaches storage.
	assert.NotEqual(t, "password123", stored.PasswordHash)
	assert.NoError(t, password.CompareHash(stored.PasswordHash, "password123"))
}

func TestLogin_IssuesVerifiableToken(t *testing.T) {
	repo := new(RepoMock)
	svc := New(repo, jwt.NewJWTMaker("test-secret", time.Hour))

	hashed, err := password.GetHash("password123")
	require.NoError(t, err)
	repo.On("GetUserByEmail", mock.Anything, "ana@example.com").
		Return(&models.User{UID: "uid-1", Email: "ana@example.com", Username: "ana", PasswordHash: hashed}, nil).Once()

	token, user, err := svc.Login(context.Background(), "ana@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", user.UID)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", claims.UserUID)
	assert.Equal(t, "ana@example.com", claims.Email)
}

func TestLogin_WrongPassword(t *testing.T) {
	repo := new(RepoMock)
	svc := New(repo, jwt.NewJWTMaker("test-secret", time.Hour))

	hashed, err := password.GetHash("password123")
	require.NoError(t, err)
	repo.On("GetUserByEmail", mock.Anything, "ana@example.com").
		Return(&models.User{UID: "uid-1", PasswordHash: hashed}, nil).Once()

	_, _, err = svc.Login(context.Background(), "ana@example.com", "wrongpass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownEmailIsSameError(t *testing.T) {
	repo := new(RepoMock)
	svc := New(repo, jwt.NewJWTMaker("test-secret", time.Hour))

	repo.On("GetUserByEmail", mock.Anything, "ghost@example.com").
		Return(nil, repository.ErrNotFound).Once()

	_, _, err := svc.Login(context.Background(), "ghost@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
