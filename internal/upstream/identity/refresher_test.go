package identity

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

type MockTokenRefresher struct {
	mock.Mock
}

func (m *MockTokenRefresher) RefreshToken(ctx context.Context, refreshToken string) (domain.AuthSession, error) {
	args := m.Called(ctx, refreshToken)
	return args.Get(0).(domain.AuthSession), args.Error(1)
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestRefresher_RefreshAll(t *testing.T) {
	ctx := context.Background()
	values := store.NewMemoryStore()
	require.NoError(t, values.PutValue(ctx, "s1", store.KeyAuthToken, "id-old"))
	require.NoError(t, values.PutValue(ctx, "s1", store.KeyRefreshToken, "rt-1"))

	tokens := new(MockTokenRefresher)
	tokens.On("RefreshToken", mock.Anything, "rt-1").Return(domain.AuthSession{IDToken: "id-new", RefreshToken: "rt-2"}, nil)

	r := NewRefresher(tokens, values, time.Minute, quietLogger())
	r.Track("s1")
	r.RefreshAll(ctx)

	auth, _ := values.GetValue(ctx, "s1", store.KeyAuthToken)
	refresh, _ := values.GetValue(ctx, "s1", store.KeyRefreshToken)
	assert.Equal(t, "id-new", auth)
	assert.Equal(t, "rt-2", refresh)
	tokens.AssertExpectations(t)
}

func TestRefresher_FailureKeepsSessionTracked(t *testing.T) {
	ctx := context.Background()
	values := store.NewMemoryStore()
	require.NoError(t, values.PutValue(ctx, "s1", store.KeyAuthToken, "id-old"))
	require.NoError(t, values.PutValue(ctx, "s1", store.KeyRefreshToken, "rt-1"))

	tokens := new(MockTokenRefresher)
	tokens.On("RefreshToken", mock.Anything, "rt-1").Return(domain.AuthSession{}, errors.New("TOKEN_EXPIRED"))

	r := NewRefresher(tokens, values, time.Minute, quietLogger())
	r.Track("s1")
	r.RefreshAll(ctx)

	auth, _ := values.GetValue(ctx, "s1", store.KeyAuthToken)
	assert.Equal(t, "id-old", auth)
	assert.Equal(t, []string{"s1"}, r.Tracked())
}

func TestRefresher_SignedOutSessionIsDropped(t *testing.T) {
	tokens := new(MockTokenRefresher)
	r := NewRefresher(tokens, store.NewMemoryStore(), time.Minute, quietLogger())
	r.Track("gone")

	r.RefreshAll(context.Background())

	assert.Empty(t, r.Tracked())
	tokens.AssertNotCalled(t, "RefreshToken", mock.Anything, mock.Anything)
}

func TestRefresher_RunStopsOnCancel(t *testing.T) {
	r := NewRefresher(new(MockTokenRefresher), store.NewMemoryStore(), 10*time.Millisecond, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop after cancel")
	}
}
