package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/storybot/internal/apperr"
)

type fakeStore struct {
	users  map[int64]User
	getErr error
}

func (f *fakeStore) EnsureUser(_ context.Context, chatID int64, username string) (bool, error) {
	if _, ok := f.users[chatID]; ok {
		return false, nil
	}
	f.users[chatID] = User{ChatID: chatID, Username: username}
	return true, nil
}

func (f *fakeStore) GetUser(_ context.Context, chatID int64) (User, bool, error) {
	if f.getErr != nil {
		return User{}, false, f.getErr
	}
	u, ok := f.users[chatID]
	return u, ok, nil
}

func (f *fakeStore) SetAdmin(_ context.Context, chatID int64, admin bool) error {
	u := f.users[chatID]
	u.IsAdmin = admin
	f.users[chatID] = u
	return nil
}

func newService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	store := &fakeStore{users: map[int64]User{
		1: {ChatID: 1},
		2: {ChatID: 2, IsAdmin: true},
	}}
	svc, err := NewService(store, 99, time.Second)
	require.NoError(t, err)
	return svc, store
}

func TestIsAdmin(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for id, want := range map[int64]bool{99: true, 2: true, 1: false, 404: false} {
		got, err := svc.IsAdmin(ctx, id)
		require.NoError(t, err)
		require.Equal(t, want, got, "user %d", id)
	}
}

func TestRegister(t *testing.T) {
	svc, store := newService(t)

	require.NoError(t, svc.Register(context.Background(), 3, "carol"))
	require.NoError(t, svc.Register(context.Background(), 3, "carol"))
	require.Equal(t, User{ChatID: 3, Username: "carol"}, store.users[3])
}

func TestGrant(t *testing.T) {
	svc, store := newService(t)

	replies, err := svc.Grant(context.Background(), []string{"1", "7", "1", "abc", "2"})
	require.NoError(t, err)
	require.Equal(t, []string{
		`Пользователь "1" назначен админом.`,
		`Пользователь "7" не активизировал бота. Его невозможно назначить админом.`,
		`Некорректный идентификатор "abc"`,
		`Пользователь "2" назначен админом.`,
	}, replies)
	require.True(t, store.users[1].IsAdmin)
	_, exists := store.users[7]
	require.False(t, exists)
}

func TestRevoke(t *testing.T) {
	svc, store := newService(t)

	replies, err := svc.Revoke(context.Background(), []string{"2", "1", "404"})
	require.NoError(t, err)
	require.Equal(t, []string{
		`С пользователя "2" сняты права админа.`,
		`Пользователь 1 не являлся админом.`,
		`Пользователь 404 не являлся админом.`,
	}, replies)
	require.False(t, store.users[2].IsAdmin)
}

func TestStoreFailures(t *testing.T) {
	svc, store := newService(t)
	store.getErr = errors.New("db down")

	_, err := svc.IsAdmin(context.Background(), 1)
	require.True(t, apperr.Is(err, apperr.StoreUnavailable))
	ok, err := svc.IsAdmin(context.Background(), 99)
	require.NoError(t, err)
	require.True(t, ok)

	replies, err := svc.Grant(context.Background(), []string{"x", "1", "2"})
	require.True(t, apperr.Is(err, apperr.StoreUnavailable))
	require.Equal(t, []string{`Некорректный идентификатор "x"`, "Что-то пошло не так, попробуйте позже."}, replies)
}

func TestNewServiceRequiresStore(t *testing.T) {
	_, err := NewService(nil, 0, 0)
	require.Error(t, err)
}
