package service

import (
	"context"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockTransactor is a mock implementation of Transactor.
type MockTransactor struct {
	mock.Mock
}

func (m *MockTransactor) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	// Return a MockTx interface value, not a pointer
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockTx is a minimal mock implementation of pgx.Tx for testing.
type MockTx struct {
	mock.Mock
	committed  bool
	rolledBack bool
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	m.committed = true
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	m.rolledBack = true
	return args.Error(0)
}

// Stub methods to satisfy pgx.Tx interface - these are not used in our tests
func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }

// newCommittingTx returns a transactor whose transaction commits.
func newCommittingTx(ctx context.Context) (*MockTransactor, *MockTx) {
	tx := new(MockTx)
	tx.On("Commit", ctx).Return(nil)
	txr := new(MockTransactor)
	txr.On("BeginTx", ctx).Return(tx, nil)
	return txr, tx
}

// newRollingBackTx returns a transactor whose transaction is expected to roll back.
func newRollingBackTx(ctx context.Context) (*MockTransactor, *MockTx) {
	tx := new(MockTx)
	tx.On("Rollback", ctx).Return(nil)
	txr := new(MockTransactor)
	txr.On("BeginTx", ctx).Return(tx, nil)
	return txr, tx
}

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Exists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockProductRepository is a mock implementation of ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, product *model.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) UpdatePricing(ctx context.Context, id int64, price decimal.Decimal, discount *int) (*model.Product, error) {
	args := m.Called(ctx, id, price, discount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) LockByIDs(ctx context.Context, tx pgx.Tx, ids []int64) ([]model.Product, error) {
	args := m.Called(ctx, tx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) UpdateStock(ctx context.Context, tx pgx.Tx, product *model.Product) error {
	args := m.Called(ctx, tx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Search(ctx context.Context, keyword string, limit, offset int) ([]model.Product, error) {
	args := m.Called(ctx, keyword, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) HasOrders(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	args := m.Called(ctx, tx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) Delete(ctx context.Context, tx pgx.Tx, id int64) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

// MockCartRepository is a mock implementation of CartRepository.
type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) GetByUserID(ctx context.Context, userID int64) (*model.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Cart), args.Error(1)
}

func (m *MockCartRepository) GetOrCreateLocked(ctx context.Context, tx pgx.Tx, userID int64) (*model.Cart, error) {
	args := m.Called(ctx, tx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Cart), args.Error(1)
}

func (m *MockCartRepository) LockByUserID(ctx context.Context, tx pgx.Tx, userID int64) (*model.Cart, error) {
	args := m.Called(ctx, tx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Cart), args.Error(1)
}

func (m *MockCartRepository) ListLines(ctx context.Context, cartID int64) ([]model.CartLine, error) {
	args := m.Called(ctx, cartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CartLine), args.Error(1)
}

func (m *MockCartRepository) ListItems(ctx context.Context, tx pgx.Tx, cartID int64) ([]model.CartItem, error) {
	args := m.Called(ctx, tx, cartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CartItem), args.Error(1)
}

func (m *MockCartRepository) GetItem(ctx context.Context, tx pgx.Tx, itemID int64) (*model.CartItem, error) {
	args := m.Called(ctx, tx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartItem), args.Error(1)
}

func (m *MockCartRepository) FindItem(ctx context.Context, tx pgx.Tx, cartID, productID int64) (*model.CartItem, error) {
	args := m.Called(ctx, tx, cartID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartItem), args.Error(1)
}

func (m *MockCartRepository) AddItem(ctx context.Context, tx pgx.Tx, item *model.CartItem) error {
	args := m.Called(ctx, tx, item)
	return args.Error(0)
}

func (m *MockCartRepository) SetItemQuantity(ctx context.Context, tx pgx.Tx, itemID int64, quantity int) error {
	args := m.Called(ctx, tx, itemID, quantity)
	return args.Error(0)
}

func (m *MockCartRepository) DeleteItem(ctx context.Context, tx pgx.Tx, itemID int64) error {
	args := m.Called(ctx, tx, itemID)
	return args.Error(0)
}

func (m *MockCartRepository) ClearItems(ctx context.Context, tx pgx.Tx, cartID int64) error {
	args := m.Called(ctx, tx, cartID)
	return args.Error(0)
}

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) CreateItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	args := m.Called(ctx, tx, items)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) LockByID(ctx context.Context, tx pgx.Tx, id int64) (*model.Order, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) ListItems(ctx context.Context, tx pgx.Tx, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, tx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OrderItem), args.Error(1)
}

func (m *MockOrderRepository) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderRepository) ListBySeller(ctx context.Context, sellerID int64) ([]model.Order, error) {
	args := m.Called(ctx, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderRepository) SellerHasProduct(ctx context.Context, tx pgx.Tx, orderID, sellerID int64) (bool, error) {
	args := m.Called(ctx, tx, orderID, sellerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, orderID int64, status model.OrderStatus) error {
	args := m.Called(ctx, tx, orderID, status)
	return args.Error(0)
}

// MockAddressRepository is a mock implementation of AddressRepository.
type MockAddressRepository struct {
	mock.Mock
}

func (m *MockAddressRepository) Create(ctx context.Context, address *model.Address) error {
	args := m.Called(ctx, address)
	return args.Error(0)
}

func (m *MockAddressRepository) GetByID(ctx context.Context, id int64) (*model.Address, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Address), args.Error(1)
}

func (m *MockAddressRepository) GetForShare(ctx context.Context, tx pgx.Tx, id int64) (*model.Address, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Address), args.Error(1)
}

func (m *MockAddressRepository) LockByID(ctx context.Context, tx pgx.Tx, id int64) (*model.Address, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Address), args.Error(1)
}

func (m *MockAddressRepository) ListActiveByUser(ctx context.Context, userID int64) ([]model.Address, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Address), args.Error(1)
}

func (m *MockAddressRepository) HasOrders(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	args := m.Called(ctx, tx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockAddressRepository) Deactivate(ctx context.Context, tx pgx.Tx, id int64) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockAddressRepository) Delete(ctx context.Context, tx pgx.Tx, id int64) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

// MockReviewRepository is a mock implementation of ReviewRepository.
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, review *model.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockReviewRepository) GetByID(ctx context.Context, id int64) (*model.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Review), args.Error(1)
}

func (m *MockReviewRepository) ListByProduct(ctx context.Context, productID int64) ([]model.Review, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Review), args.Error(1)
}

func (m *MockReviewRepository) Update(ctx context.Context, review *model.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockReviewRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockReviewRepository) Summary(ctx context.Context, productID int64) (*model.RatingSummary, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RatingSummary), args.Error(1)
}

// MockPromoValidator is a mock implementation of promo.Validator.
type MockPromoValidator struct {
	mock.Mock
}

func (m *MockPromoValidator) Validate(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockPromoValidator) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockIdempotencyStore is a mock implementation of idempotency.Store.
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) Begin(ctx context.Context, userID int64, key string) (int64, error) {
	args := m.Called(ctx, userID, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockIdempotencyStore) Complete(ctx context.Context, userID int64, key string, orderID int64) error {
	args := m.Called(ctx, userID, key, orderID)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, userID int64, key string) error {
	args := m.Called(ctx, userID, key)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
