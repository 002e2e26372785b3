package auth

import (
	"fmt"
	"testing"
	"time"

	"Kasumi/server/internal/pkg/helpers"
	"Kasumi/server/internal/storage"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	clients map[string]*storage.APIClient
}

func newMemoryStore() *memoryStore {
	return &memoryStore{clients: map[string]*storage.APIClient{}}
}

func (m *memoryStore) CreateClient(name, hashedSecret string) (int64, error) {
	id := int64(len(m.clients) + 1)
	m.clients[name] = &storage.APIClient{ID: id, Name: name, HashedSecret: hashedSecret}
	return id, nil
}

func (m *memoryStore) GetClientByName(name string) (*storage.APIClient, error) {
	return m.clients[name], nil
}

func TestRegisterAndLogin(t *testing.T) {
	svc := New("test-secret", time.Hour, newMemoryStore())

	id, err := svc.Register("batch-runner", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	_, err = svc.Register("batch-runner", "another secret")
	assert.ErrorIs(t, err, ErrClientExists)

	token, err := svc.Login("batch-runner", "correct horse")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.ClientID)
	assert.Equal(t, "batch-runner", claims.ClientName)
}

// racingStore hides existing clients from the lookup, as if another
// Register inserted the same name between lookup and insert
type racingStore struct {
	*memoryStore
}

func (r racingStore) GetClientByName(string) (*storage.APIClient, error) {
	return nil, nil
}

func (r racingStore) CreateClient(name, hashedSecret string) (int64, error) {
	if _, ok := r.clients[name]; ok {
		return 0, fmt.Errorf("%w: client %q", storage.ErrDuplicate, name)
	}
	return r.memoryStore.CreateClient(name, hashedSecret)
}

func TestRegisterConcurrentDuplicate(t *testing.T) {
	svc := New("test-secret", time.Hour, racingStore{newMemoryStore()})

	_, err := svc.Register("batch-runner", "correct horse")
	require.NoError(t, err)

	_, err = svc.Register("batch-runner", "another secret")
	assert.ErrorIs(t, err, ErrClientExists)
}

func TestRegisterValidation(t *testing.T) {
	svc := New("test-secret", time.Hour, newMemoryStore())

	_, err := svc.Register("x", "correct horse")
	assert.ErrorIs(t, err, helpers.ErrInvalidName)

	_, err = svc.Register("valid-name", "short")
	assert.ErrorIs(t, err, helpers.ErrSecretTooShort)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := New("test-secret", time.Hour, newMemoryStore())
	_, err := svc.Register("batch-runner", "correct horse")
	require.NoError(t, err)

	_, err = svc.Login("batch-runner", "wrong horse!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login("nobody", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login("", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenRejectsForeignAndExpired(t *testing.T) {
	svc := New("test-secret", time.Hour, newMemoryStore())

	foreign, err := New("other-secret", time.Hour, newMemoryStore()).CreateToken(1, "x")
	require.NoError(t, err)
	_, err = svc.ValidateToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		ClientID: 1,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(-time.Minute).Unix(),
		},
	})
	signed, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

var _ Store = (*storage.DB)(nil)
