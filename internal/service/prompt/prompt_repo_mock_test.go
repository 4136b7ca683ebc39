package prompt

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/promptly/internal/domain"
)

var _ promptRepo = &promptRepoMock{}

type promptRepoMock struct {
	ListFunc    func(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Prompt, error)
	GetByIDFunc func(ctx context.Context, userID, id uuid.UUID) (*domain.Prompt, error)
	InsertFunc  func(ctx context.Context, userID uuid.UUID, np domain.NewPrompt) (*domain.Prompt, error)
	DeleteFunc  func(ctx context.Context, userID, id uuid.UUID) error

	calls struct {
		List []struct {
			UserID uuid.UUID
			Limit  int
		}
		GetByID []struct {
			UserID uuid.UUID
			ID     uuid.UUID
		}
		Insert []struct {
			UserID uuid.UUID
			NP     domain.NewPrompt
		}
		Delete []struct {
			UserID uuid.UUID
			ID     uuid.UUID
		}
	}
	lockList    sync.RWMutex
	lockGetByID sync.RWMutex
	lockInsert  sync.RWMutex
	lockDelete  sync.RWMutex
}

func (mock *promptRepoMock) List(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Prompt, error) {
	if mock.ListFunc == nil {
		panic("promptRepoMock.ListFunc: method is nil but promptRepo.List was just called")
	}
	mock.lockList.Lock()
	mock.calls.List = append(mock.calls.List, struct {
		UserID uuid.UUID
		Limit  int
	}{userID, limit})
	mock.lockList.Unlock()
	return mock.ListFunc(ctx, userID, limit)
}

func (mock *promptRepoMock) ListCalls() []struct {
	UserID uuid.UUID
	Limit  int
} {
	mock.lockList.RLock()
	defer mock.lockList.RUnlock()
	return mock.calls.List
}

func (mock *promptRepoMock) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.Prompt, error) {
	if mock.GetByIDFunc == nil {
		panic("promptRepoMock.GetByIDFunc: method is nil but promptRepo.GetByID was just called")
	}
	mock.lockGetByID.Lock()
	mock.calls.GetByID = append(mock.calls.GetByID, struct {
		UserID uuid.UUID
		ID     uuid.UUID
	}{userID, id})
	mock.lockGetByID.Unlock()
	return mock.GetByIDFunc(ctx, userID, id)
}

func (mock *promptRepoMock) GetByIDCalls() []struct {
	UserID uuid.UUID
	ID     uuid.UUID
} {
	mock.lockGetByID.RLock()
	defer mock.lockGetByID.RUnlock()
	return mock.calls.GetByID
}

func (mock *promptRepoMock) Insert(ctx context.Context, userID uuid.UUID, np domain.NewPrompt) (*domain.Prompt, error) {
	if mock.InsertFunc == nil {
		panic("promptRepoMock.InsertFunc: method is nil but promptRepo.Insert was just called")
	}
	mock.lockInsert.Lock()
	mock.calls.Insert = append(mock.calls.Insert, struct {
		UserID uuid.UUID
		NP     domain.NewPrompt
	}{userID, np})
	mock.lockInsert.Unlock()
	return mock.InsertFunc(ctx, userID, np)
}

func (mock *promptRepoMock) InsertCalls() []struct {
	UserID uuid.UUID
	NP     domain.NewPrompt
} {
	mock.lockInsert.RLock()
	defer mock.lockInsert.RUnlock()
	return mock.calls.Insert
}

func (mock *promptRepoMock) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if mock.DeleteFunc == nil {
		panic("promptRepoMock.DeleteFunc: method is nil but promptRepo.Delete was just called")
	}
	mock.lockDelete.Lock()
	mock.calls.Delete = append(mock.calls.Delete, struct {
		UserID uuid.UUID
		ID     uuid.UUID
	}{userID, id})
	mock.lockDelete.Unlock()
	return mock.DeleteFunc(ctx, userID, id)
}

func (mock *promptRepoMock) DeleteCalls() []struct {
	UserID uuid.UUID
	ID     uuid.UUID
} {
	mock.lockDelete.RLock()
	defer mock.lockDelete.RUnlock()
	return mock.calls.Delete
}
