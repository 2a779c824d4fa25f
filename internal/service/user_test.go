package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagbok-backend/internal/auth"
	"github.com/dagbok-backend/internal/model"
)

type fakeAccounts struct {
	users     map[string]*model.User
	passwords map[string]string
	demoCount int
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		users:     make(map[string]*model.User),
		passwords: make(map[string]string),
	}
}

func (f *fakeAccounts) add(email, password string) *model.User {
	user := &model.User{
		ID:    uuid.New(),
		Email: email,
		Name:  "Test User",
		Role:  model.UserRoleUser,
		Model: model.ModelGPT4oMini,
	}
	f.users[email] = user
	f.passwords[email] = password
	return user
}

func (f *fakeAccounts) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return f.users[email], nil
}

func (f *fakeAccounts) Create(_ context.Context, req *model.RegisterRequest, prompt string) (*model.User, error) {
	user := &model.User{
		ID:     uuid.New(),
		Email:  req.Email,
		Name:   req.Name,
		Role:   model.UserRoleUser,
		Prompt: prompt,
		Model:  model.ModelGPT4oMini,
	}
	f.users[req.Email] = user
	f.passwords[req.Email] = req.Password
	return user, nil
}

func (f *fakeAccounts) CreateDemo(_ context.Context, prompt string) (*model.User, error) {
	f.demoCount++
	user := &model.User{
		ID:     uuid.New(),
		Email:  "demo@demo.dagbok.cloud",
		Role:   model.UserRoleDemo,
		Prompt: prompt,
		Model:  model.ModelMimoV2Flash,
	}
	f.users[user.Email] = user
	return user, nil
}

func (f *fakeAccounts) ValidatePassword(user *model.User, password string) bool {
	return f.passwords[user.Email] == password
}

func (f *fakeAccounts) UpdatePrompt(_ context.Context, id uuid.UUID, prompt string) (*model.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			u.Prompt = prompt
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeAccounts) UpdateModel(_ context.Context, id uuid.UUID, modelName string) (*model.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			u.Model = modelName
			return u, nil
		}
	}
	return nil, nil
}

type fakeTokens struct {
	records map[uuid.UUID]*model.TokenRecord
	rotated int
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{records: make(map[uuid.UUID]*model.TokenRecord)}
}

func (f *fakeTokens) Upsert(_ context.Context, userID uuid.UUID, token, refreshToken string) (*model.TokenRecord, error) {
	for _, rec := range f.records {
		if rec.UserID == userID {
			rec.Token = token
			rec.RefreshToken = refreshToken
			return rec, nil
		}
	}
	rec := &model.TokenRecord{
		ID:           uuid.New(),
		UserID:       userID,
		Token:        token,
		RefreshToken: refreshToken,
	}
	f.records[rec.ID] = rec
	return rec, nil
}

func (f *fakeTokens) FindByRefreshToken(_ context.Context, refreshToken string) (*model.TokenRecord, error) {
	for _, rec := range f.records {
		if rec.RefreshToken == refreshToken {
			return rec, nil
		}
	}
	return nil, nil
}

func (f *fakeTokens) RotateAccessToken(_ context.Context, id uuid.UUID, token string) (*model.TokenRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	rec.Token = token
	rec.UsageCount++
	f.rotated++
	return rec, nil
}

func (f *fakeTokens) DeleteByToken(_ context.Context, token string) (int64, error) {
	for id, rec := range f.records {
		if rec.Token == token {
			delete(f.records, id)
			return 1, nil
		}
	}
	return 0, nil
}

func newUserService(accounts *fakeAccounts, tokens *fakeTokens) (*UserService, *auth.Codec) {
	codec := auth.NewCodec("user-service-test-secret")
	return NewUserService(accounts, tokens, codec, 5*time.Minute, 7*24*time.Hour), codec
}

func TestUserService_RegisterIssuesVerifiableTokens(t *testing.T) {
	accounts := newFakeAccounts()
	tokens := newFakeTokens()
	svc, codec := newUserService(accounts, tokens)

	user, record, err := svc.Register(context.Background(), &model.RegisterRequest{
		Email:    "alice@example.com",
		Password: "s3cretpass",
		Name:     "Alice",
	})
	require.NoError(t, err)
	require.NotNil(t, user)
	require.NotNil(t, record)

	assert.Equal(t, model.DefaultPrompt, user.Prompt)
	assert.Equal(t, user.ID, record.UserID)

	subject, err := codec.Verify(record.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", subject)

	subject, err = codec.Verify(record.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", subject)
}

func TestUserService_RegisterRejectsTakenEmail(t *testing.T) {
	accounts := newFakeAccounts()
	accounts.add("alice@example.com", "whatever")
	svc, _ := newUserService(accounts, newFakeTokens())

	_, _, err := svc.Register(context.Background(), &model.RegisterRequest{
		Email:    "alice@example.com",
		Password: "s3cretpass",
		Name:     "Alice",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestUserService_LoginWrongPassword(t *testing.T) {
	accounts := newFakeAccounts()
	accounts.add("alice@example.com", "correct")
	svc, _ := newUserService(accounts, newFakeTokens())

	_, _, err := svc.Login(context.Background(), "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_LoginUnknownEmail(t *testing.T) {
	svc, _ := newUserService(newFakeAccounts(), newFakeTokens())

	_, _, err := svc.Login(context.Background(), "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_LoginReplacesTokenPair(t *testing.T) {
	accounts := newFakeAccounts()
	accounts.add("alice@example.com", "correct")
	tokens := newFakeTokens()
	svc, _ := newUserService(accounts, tokens)

	_, first, err := svc.Login(context.Background(), "alice@example.com", "correct")
	require.NoError(t, err)

	_, second, err := svc.Login(context.Background(), "alice@example.com", "correct")
	require.NoError(t, err)

	// One record per user; a second login overwrites the pair.
	assert.Len(t, tokens.records, 1)
	assert.Equal(t, first.ID, second.ID)
}

func TestUserService_DemoLoginCreatesDemoAccount(t *testing.T) {
	accounts := newFakeAccounts()
	svc, _ := newUserService(accounts, newFakeTokens())

	user, record, err := svc.DemoLogin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.UserRoleDemo, user.Role)
	assert.Equal(t, 1, accounts.demoCount)
	assert.NotEmpty(t, record.Token)
}

func TestUserService_RefreshRotatesAccessToken(t *testing.T) {
	accounts := newFakeAccounts()
	accounts.add("alice@example.com", "correct")
	tokens := newFakeTokens()
	svc, codec := newUserService(accounts, tokens)

	_, record, err := svc.Login(context.Background(), "alice@example.com", "correct")
	require.NoError(t, err)

	newAccess, err := svc.Refresh(context.Background(), record.Token, record.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, newAccess)

	subject, err := codec.Verify(newAccess)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", subject)
	assert.Equal(t, 1, tokens.rotated)
}

func TestUserService_RefreshRejectsMismatchedPair(t *testing.T) {
	accounts := newFakeAccounts()
	accounts.add("alice@example.com", "correct")
	svc, _ := newUserService(accounts, newFakeTokens())

	_, record, err := svc.Login(context.Background(), "alice@example.com", "correct")
	require.NoError(t, err)

	// A refresh token presented with somebody else's access token must
	// not rotate the pair.
	_, err = svc.Refresh(context.Background(), "stale-or-stolen-access", record.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshMismatch)
}

func TestUserService_RefreshUnknownToken(t *testing.T) {
	svc, _ := newUserService(newFakeAccounts(), newFakeTokens())

	_, err := svc.Refresh(context.Background(), "access", "never-issued")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserService_RefreshExpiredRefreshToken(t *testing.T) {
	accounts := newFakeAccounts()
	user := accounts.add("alice@example.com", "correct")
	tokens := newFakeTokens()

	codec := auth.NewCodec("user-service-test-secret")
	svc := NewUserService(accounts, tokens, codec, 5*time.Minute, 7*24*time.Hour)

	expired, err := codec.Issue("alice@example.com", -time.Minute)
	require.NoError(t, err)
	record, err := tokens.Upsert(context.Background(), user.ID, "access", expired)
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), record.Token, expired)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_LogoutDeletesRecord(t *testing.T) {
	accounts := newFakeAccounts()
	accounts.add("alice@example.com", "correct")
	tokens := newFakeTokens()
	svc, _ := newUserService(accounts, tokens)

	_, record, err := svc.Login(context.Background(), "alice@example.com", "correct")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), record.Token))
	assert.Empty(t, tokens.records)

	// Logging out twice is harmless.
	assert.NoError(t, svc.Logout(context.Background(), record.Token))
}

func TestUserService_UpdateModelRejectsUnknown(t *testing.T) {
	accounts := newFakeAccounts()
	user := accounts.add("alice@example.com", "correct")
	svc, _ := newUserService(accounts, newFakeTokens())

	_, err := svc.UpdateModel(context.Background(), user.ID, "openai/gpt-5-ultra")
	assert.ErrorIs(t, err, ErrValidation)

	profile, err := svc.UpdateModel(context.Background(), user.ID, model.ModelMimoV2Flash)
	require.NoError(t, err)
	assert.Equal(t, model.ModelMimoV2Flash, profile.Model)
}
