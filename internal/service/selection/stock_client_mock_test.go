package selection

import (
	"context"
	"github.com/google/uuid"
	"github.com/heartmarshall/stockroom/internal/domain"
	"github.com/heartmarshall/stockroom/internal/service/txnform"
	"sync"
)

var _ stockClient = &stockClientMock{}

type stockClientMock struct {
	ListItemTransactionsFunc func(ctx context.Context, itemID uuid.UUID, limit int) ([]domain.Transaction, error)
	ListStocksFunc           func(ctx context.Context) ([]domain.StockLine, error)
	ReverseTransactionFunc   func(ctx context.Context, txnID uuid.UUID) (*domain.Transaction, error)
	SubmitFunc               func(ctx context.Context, s txnform.Submission) (*domain.Transaction, error)
	UpdateStockShelfFunc     func(ctx context.Context, stockID int64, location *string, note *string) error

	calls struct {
		ListItemTransactions []struct {
			Ctx    context.Context
			ItemID uuid.UUID
			Limit  int
		}
		ListStocks []struct {
			Ctx context.Context
		}
		ReverseTransaction []struct {
			Ctx   context.Context
			TxnID uuid.UUID
		}
		Submit []struct {
			Ctx context.Context
			S   txnform.Submission
		}
		UpdateStockShelf []struct {
			Ctx      context.Context
			StockID  int64
			Location *string
			Note     *string
		}
	}
	lockListItemTransactions sync.RWMutex
	lockListStocks           sync.RWMutex
	lockReverseTransaction   sync.RWMutex
	lockSubmit               sync.RWMutex
	lockUpdateStockShelf     sync.RWMutex
}

func (mock *stockClientMock) ListItemTransactions(ctx context.Context, itemID uuid.UUID, limit int) ([]domain.Transaction, error) {
	if mock.ListItemTransactionsFunc == nil {
		panic("stockClientMock.ListItemTransactionsFunc: method is nil but stockClient.ListItemTransactions was just called")
	}
	callInfo := struct {
		Ctx    context.Context
		ItemID uuid.UUID
		Limit  int
	}{Ctx: ctx, ItemID: itemID, Limit: limit}
	mock.lockListItemTransactions.Lock()
	mock.calls.ListItemTransactions = append(mock.calls.ListItemTransactions, callInfo)
	mock.lockListItemTransactions.Unlock()
	return mock.ListItemTransactionsFunc(ctx, itemID, limit)
}

func (mock *stockClientMock) ListItemTransactionsCalls() []struct {
	Ctx    context.Context
	ItemID uuid.UUID
	Limit  int
} {
	mock.lockListItemTransactions.RLock()
	calls := mock.calls.ListItemTransactions
	mock.lockListItemTransactions.RUnlock()
	return calls
}

func (mock *stockClientMock) ListStocks(ctx context.Context) ([]domain.StockLine, error) {
	if mock.ListStocksFunc == nil {
		panic("stockClientMock.ListStocksFunc: method is nil but stockClient.ListStocks was just called")
	}
	callInfo := struct {
		Ctx context.Context
	}{Ctx: ctx}
	mock.lockListStocks.Lock()
	mock.calls.ListStocks = append(mock.calls.ListStocks, callInfo)
	mock.lockListStocks.Unlock()
	return mock.ListStocksFunc(ctx)
}

func (mock *stockClientMock) ListStocksCalls() []struct {
	Ctx context.Context
} {
	mock.lockListStocks.RLock()
	calls := mock.calls.ListStocks
	mock.lockListStocks.RUnlock()
	return calls
}

func (mock *stockClientMock) ReverseTransaction(ctx context.Context, txnID uuid.UUID) (*domain.Transaction, error) {
	if mock.ReverseTransactionFunc == nil {
		panic("stockClientMock.ReverseTransactionFunc: method is nil but stockClient.ReverseTransaction was just called")
	}
	callInfo := struct {
		Ctx   context.Context
		TxnID uuid.UUID
	}{Ctx: ctx, TxnID: txnID}
	mock.lockReverseTransaction.Lock()
	mock.calls.ReverseTransaction = append(mock.calls.ReverseTransaction, callInfo)
	mock.lockReverseTransaction.Unlock()
	return mock.ReverseTransactionFunc(ctx, txnID)
}

func (mock *stockClientMock) ReverseTransactionCalls() []struct {
	Ctx   context.Context
	TxnID uuid.UUID
} {
	mock.lockReverseTransaction.RLock()
	calls := mock.calls.ReverseTransaction
	mock.lockReverseTransaction.RUnlock()
	return calls
}

func (mock *stockClientMock) Submit(ctx context.Context, s txnform.Submission) (*domain.Transaction, error) {
	if mock.SubmitFunc == nil {
		panic("stockClientMock.SubmitFunc: method is nil but stockClient.Submit was just called")
	}
	callInfo := struct {
		Ctx context.Context
		S   txnform.Submission
	}{Ctx: ctx, S: s}
	mock.lockSubmit.Lock()
	mock.calls.Submit = append(mock.calls.Submit, callInfo)
	mock.lockSubmit.Unlock()
	return mock.SubmitFunc(ctx, s)
}

func (mock *stockClientMock) SubmitCalls() []struct {
	Ctx context.Context
	S   txnform.Submission
} {
	mock.lockSubmit.RLock()
	calls := mock.calls.Submit
	mock.lockSubmit.RUnlock()
	return calls
}

func (mock *stockClientMock) UpdateStockShelf(ctx context.Context, stockID int64, location *string, note *string) error {
	if mock.UpdateStockShelfFunc == nil {
		panic("stockClientMock.UpdateStockShelfFunc: method is nil but stockClient.UpdateStockShelf was just called")
	}
	callInfo := struct {
		Ctx      context.Context
		StockID  int64
		Location *string
		Note     *string
	}{Ctx: ctx, StockID: stockID, Location: location, Note: note}
	mock.lockUpdateStockShelf.Lock()
	mock.calls.UpdateStockShelf = append(mock.calls.UpdateStockShelf, callInfo)
	mock.lockUpdateStockShelf.Unlock()
	return mock.UpdateStockShelfFunc(ctx, stockID, location, note)
}

func (mock *stockClientMock) UpdateStockShelfCalls() []struct {
	Ctx      context.Context
	StockID  int64
	Location *string
	Note     *string
} {
	mock.lockUpdateStockShelf.RLock()
	calls := mock.calls.UpdateStockShelf
	mock.lockUpdateStockShelf.RUnlock()
	return calls
}
