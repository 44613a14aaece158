package stocktake

import (
	"context"
	"github.com/google/uuid"
	"github.com/heartmarshall/stockroom/internal/domain"
	"sync"
)

var _ stocktakeClient = &stocktakeClientMock{}

type stocktakeClientMock struct {
	ConfirmStocktakeFunc   func(ctx context.Context, id uuid.UUID) error
	GetStocktakeFunc       func(ctx context.Context, id uuid.UUID) (*domain.Stocktake, error)
	PatchStocktakeLineFunc func(ctx context.Context, lineID int64, patch domain.LinePatch) error

	calls struct {
		ConfirmStocktake []struct {
			Ctx context.Context
			ID  uuid.UUID
		}
		GetStocktake []struct {
			Ctx context.Context
			ID  uuid.UUID
		}
		PatchStocktakeLine []struct {
			Ctx    context.Context
			LineID int64
			Patch  domain.LinePatch
		}
	}
	lockConfirmStocktake   sync.RWMutex
	lockGetStocktake       sync.RWMutex
	lockPatchStocktakeLine sync.RWMutex
}

func (mock *stocktakeClientMock) ConfirmStocktake(ctx context.Context, id uuid.UUID) error {
	if mock.ConfirmStocktakeFunc == nil {
		panic("stocktakeClientMock.ConfirmStocktakeFunc: method is nil but stocktakeClient.ConfirmStocktake was just called")
	}
	callInfo := struct {
		Ctx context.Context
		ID  uuid.UUID
	}{Ctx: ctx, ID: id}
	mock.lockConfirmStocktake.Lock()
	mock.calls.ConfirmStocktake = append(mock.calls.ConfirmStocktake, callInfo)
	mock.lockConfirmStocktake.Unlock()
	return mock.ConfirmStocktakeFunc(ctx, id)
}

func (mock *stocktakeClientMock) ConfirmStocktakeCalls() []struct {
	Ctx context.Context
	ID  uuid.UUID
} {
	mock.lockConfirmStocktake.RLock()
	calls := mock.calls.ConfirmStocktake
	mock.lockConfirmStocktake.RUnlock()
	return calls
}

func (mock *stocktakeClientMock) GetStocktake(ctx context.Context, id uuid.UUID) (*domain.Stocktake, error) {
	if mock.GetStocktakeFunc == nil {
		panic("stocktakeClientMock.GetStocktakeFunc: method is nil but stocktakeClient.GetStocktake was just called")
	}
	callInfo := struct {
		Ctx context.Context
		ID  uuid.UUID
	}{Ctx: ctx, ID: id}
	mock.lockGetStocktake.Lock()
	mock.calls.GetStocktake = append(mock.calls.GetStocktake, callInfo)
	mock.lockGetStocktake.Unlock()
	return mock.GetStocktakeFunc(ctx, id)
}

func (mock *stocktakeClientMock) GetStocktakeCalls() []struct {
	Ctx context.Context
	ID  uuid.UUID
} {
	mock.lockGetStocktake.RLock()
	calls := mock.calls.GetStocktake
	mock.lockGetStocktake.RUnlock()
	return calls
}

func (mock *stocktakeClientMock) PatchStocktakeLine(ctx context.Context, lineID int64, patch domain.LinePatch) error {
	if mock.PatchStocktakeLineFunc == nil {
		panic("stocktakeClientMock.PatchStocktakeLineFunc: method is nil but stocktakeClient.PatchStocktakeLine was just called")
	}
	callInfo := struct {
		Ctx    context.Context
		LineID int64
		Patch  domain.LinePatch
	}{Ctx: ctx, LineID: lineID, Patch: patch}
	mock.lockPatchStocktakeLine.Lock()
	mock.calls.PatchStocktakeLine = append(mock.calls.PatchStocktakeLine, callInfo)
	mock.lockPatchStocktakeLine.Unlock()
	return mock.PatchStocktakeLineFunc(ctx, lineID, patch)
}

func (mock *stocktakeClientMock) PatchStocktakeLineCalls() []struct {
	Ctx    context.Context
	LineID int64
	Patch  domain.LinePatch
} {
	mock.lockPatchStocktakeLine.RLock()
	calls := mock.calls.PatchStocktakeLine
	mock.lockPatchStocktakeLine.RUnlock()
	return calls
}
