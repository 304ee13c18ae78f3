// Package mocks provides test doubles for the store, storage, generation,
// event and auth interfaces.
//
// Most mocks use function fields so a test overrides only the calls it cares
// about; unset fields fall back to simple in-memory behaviour:
//
//	users := mocks.NewMockUserStore()
//	users.DebitCreditsFn = func(ctx context.Context, id uuid.UUID, amount int) (int, error) {
//	    return 0, store.ErrInsufficientCredits
//	}
//
// TestifyMockUserStore is the exception, for tests that assert call
// expectations with testify/mock.
package mocks
