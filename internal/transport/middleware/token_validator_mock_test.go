package middleware

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/promptly/internal/session"
)

var _ tokenValidator = &tokenValidatorMock{}

type tokenValidatorMock struct {
	ValidateTokenFunc func(token string) (uuid.UUID, error)

	calls struct {
		ValidateToken []struct {
			Token string
		}
	}
	lockValidateToken sync.RWMutex
}

func (mock *tokenValidatorMock) ValidateToken(token string) (uuid.UUID, error) {
	if mock.ValidateTokenFunc == nil {
		panic("tokenValidatorMock.ValidateTokenFunc: method is nil but tokenValidator.ValidateToken was just called")
	}
	callInfo := struct {
		Token string
	}{Token: token}
	mock.lockValidateToken.Lock()
	mock.calls.ValidateToken = append(mock.calls.ValidateToken, callInfo)
	mock.lockValidateToken.Unlock()
	return mock.ValidateTokenFunc(token)
}

func (mock *tokenValidatorMock) ValidateTokenCalls() []struct {
	Token string
} {
	mock.lockValidateToken.RLock()
	calls := mock.calls.ValidateToken
	mock.lockValidateToken.RUnlock()
	return calls
}

type sessionSourceStub struct {
	snap session.Snapshot
}

func (s sessionSourceStub) Snapshot() session.Snapshot { return s.snap }

type accessTokenSourceStub struct {
	token string
	err   error
	calls int
}

func (s *accessTokenSourceStub) AccessToken(ctx context.Context) (string, error) {
	s.calls++
	return s.token, s.err
}
