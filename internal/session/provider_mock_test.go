package session

import (
	"context"
	"sync"

	"github.com/heartmarshall/promptly/internal/auth"
)

var _ provider = &providerMock{}

type providerMock struct {
	GetSessionFunc        func(ctx context.Context) (*auth.Session, error)
	SignOutFunc           func(ctx context.Context) error
	OnAuthStateChangeFunc func(l auth.Listener) func()

	calls struct {
		GetSession []struct {
			Ctx context.Context
		}
		SignOut []struct {
			Ctx context.Context
		}
		OnAuthStateChange []struct {
			L auth.Listener
		}
	}
	lockGetSession        sync.RWMutex
	lockSignOut           sync.RWMutex
	lockOnAuthStateChange sync.RWMutex
}

func (mock *providerMock) GetSession(ctx context.Context) (*auth.Session, error) {
	if mock.GetSessionFunc == nil {
		panic("providerMock.GetSessionFunc: method is nil but provider.GetSession was just called")
	}
	callInfo := struct {
		Ctx context.Context
	}{Ctx: ctx}
	mock.lockGetSession.Lock()
	mock.calls.GetSession = append(mock.calls.GetSession, callInfo)
	mock.lockGetSession.Unlock()
	return mock.GetSessionFunc(ctx)
}

func (mock *providerMock) GetSessionCalls() []struct {
	Ctx context.Context
} {
	mock.lockGetSession.RLock()
	calls := mock.calls.GetSession
	mock.lockGetSession.RUnlock()
	return calls
}

func (mock *providerMock) SignOut(ctx context.Context) error {
	if mock.SignOutFunc == nil {
		panic("providerMock.SignOutFunc: method is nil but provider.SignOut was just called")
	}
	callInfo := struct {
		Ctx context.Context
	}{Ctx: ctx}
	mock.lockSignOut.Lock()
	mock.calls.SignOut = append(mock.calls.SignOut, callInfo)
	mock.lockSignOut.Unlock()
	return mock.SignOutFunc(ctx)
}

func (mock *providerMock) SignOutCalls() []struct {
	Ctx context.Context
} {
	mock.lockSignOut.RLock()
	calls := mock.calls.SignOut
	mock.lockSignOut.RUnlock()
	return calls
}

func (mock *providerMock) OnAuthStateChange(l auth.Listener) func() {
	if mock.OnAuthStateChangeFunc == nil {
		panic("providerMock.OnAuthStateChangeFunc: method is nil but provider.OnAuthStateChange was just called")
	}
	callInfo := struct {
		L auth.Listener
	}{L: l}
	mock.lockOnAuthStateChange.Lock()
	mock.calls.OnAuthStateChange = append(mock.calls.OnAuthStateChange, callInfo)
	mock.lockOnAuthStateChange.Unlock()
	return mock.OnAuthStateChangeFunc(l)
}

func (mock *providerMock) OnAuthStateChangeCalls() []struct {
	L auth.Listener
} {
	mock.lockOnAuthStateChange.RLock()
	calls := mock.calls.OnAuthStateChange
	mock.lockOnAuthStateChange.RUnlock()
	return calls
}
