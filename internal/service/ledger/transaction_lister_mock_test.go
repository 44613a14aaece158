package ledger

import (
	"context"
	"github.com/heartmarshall/stockroom/internal/domain"
	"sync"
)

var _ transactionLister = &transactionListerMock{}

type transactionListerMock struct {
	ListTransactionsFunc func(ctx context.Context, limit int, offset int) (*domain.TransactionPage, error)

	calls struct {
		ListTransactions []struct {
			Ctx    context.Context
			Limit  int
			Offset int
		}
	}
	lockListTransactions sync.RWMutex
}

func (mock *transactionListerMock) ListTransactions(ctx context.Context, limit int, offset int) (*domain.TransactionPage, error) {
	if mock.ListTransactionsFunc == nil {
		panic("transactionListerMock.ListTransactionsFunc: method is nil but transactionLister.ListTransactions was just called")
	}
	callInfo := struct {
		Ctx    context.Context
		Limit  int
		Offset int
	}{Ctx: ctx, Limit: limit, Offset: offset}
	mock.lockListTransactions.Lock()
	mock.calls.ListTransactions = append(mock.calls.ListTransactions, callInfo)
	mock.lockListTransactions.Unlock()
	return mock.ListTransactionsFunc(ctx, limit, offset)
}

func (mock *transactionListerMock) ListTransactionsCalls() []struct {
	Ctx    context.Context
	Limit  int
	Offset int
} {
	mock.lockListTransactions.RLock()
	calls := mock.calls.ListTransactions
	mock.lockListTransactions.RUnlock()
	return calls
}
