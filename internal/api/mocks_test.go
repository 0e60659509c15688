package api

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"storefront-service/internal/domain"
	"storefront-service/internal/upstream/woocommerce"
)

// MockCommerce is a mock implementation of Commerce
type MockCommerce struct {
	mock.Mock
}

func (m *MockCommerce) ListProducts(ctx context.Context, q woocommerce.ProductQuery) ([]domain.Product, error) {
	args := m.Called(ctx, q)
	var products []domain.Product
	if arg0 := args.Get(0); arg0 != nil {
		products = arg0.([]domain.Product)
	}
	return products, args.Error(1)
}

func (m *MockCommerce) ListCategories(ctx context.Context) ([]domain.CategorySummary, error) {
	args := m.Called(ctx)
	var categories []domain.CategorySummary
	if arg0 := args.Get(0); arg0 != nil {
		categories = arg0.([]domain.CategorySummary)
	}
	return categories, args.Error(1)
}

func (m *MockCommerce) ListOrders(ctx context.Context) ([]json.RawMessage, error) {
	args := m.Called(ctx)
	var orders []json.RawMessage
	if arg0 := args.Get(0); arg0 != nil {
		orders = arg0.([]json.RawMessage)
	}
	return orders, args.Error(1)
}

func (m *MockCommerce) CreateOrder(ctx context.Context, order any) (json.RawMessage, error) {
	args := m.Called(ctx, order)
	var created json.RawMessage
	if arg0 := args.Get(0); arg0 != nil {
		created = arg0.(json.RawMessage)
	}
	return created, args.Error(1)
}

// MockContent is a mock implementation of Content
type MockContent struct {
	mock.Mock
}

func (m *MockContent) ListApprovedReviews(ctx context.Context, productID string, limit int) ([]domain.Review, error) {
	args := m.Called(ctx, productID, limit)
	var reviews []domain.Review
	if arg0 := args.Get(0); arg0 != nil {
		reviews = arg0.([]domain.Review)
	}
	return reviews, args.Error(1)
}

func (m *MockContent) UpsertReview(ctx context.Context, r domain.Review) (domain.Review, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(domain.Review), args.Error(1)
}

func (m *MockContent) ListAddresses(ctx context.Context, userID string) ([]domain.Address, error) {
	args := m.Called(ctx, userID)
	var addrs []domain.Address
	if arg0 := args.Get(0); arg0 != nil {
		addrs = arg0.([]domain.Address)
	}
	return addrs, args.Error(1)
}

func (m *MockContent) CreateAddress(ctx context.Context, a domain.Address) (domain.Address, error) {
	args := m.Called(ctx, a)
	return args.Get(0).(domain.Address), args.Error(1)
}

func (m *MockContent) SaveUserDetails(ctx context.Context, phone, name, address string) (domain.UserProfile, error) {
	args := m.Called(ctx, phone, name, address)
	return args.Get(0).(domain.UserProfile), args.Error(1)
}

// MockPhoneAuth is a mock implementation of PhoneAuth
type MockPhoneAuth struct {
	mock.Mock
}

func (m *MockPhoneAuth) SendVerificationCode(ctx context.Context, phone, recaptchaToken string) (string, error) {
	args := m.Called(ctx, phone, recaptchaToken)
	return args.String(0), args.Error(1)
}

func (m *MockPhoneAuth) SignInWithPhoneNumber(ctx context.Context, sessionInfo, code string) (domain.AuthSession, error) {
	args := m.Called(ctx, sessionInfo, code)
	return args.Get(0).(domain.AuthSession), args.Error(1)
}

type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) Search(ctx context.Context, query string) ([]domain.Location, error) {
	args := m.Called(ctx, query)
	var locs []domain.Location
	if arg0 := args.Get(0); arg0 != nil {
		locs = arg0.([]domain.Location)
	}
	return locs, args.Error(1)
}

func (m *MockGeocoder) Reverse(ctx context.Context, lat, lng float64) (domain.Location, error) {
	args := m.Called(ctx, lat, lng)
	return args.Get(0).(domain.Location), args.Error(1)
}

type MockTracker struct {
	mock.Mock
}

func (m *MockTracker) Track(sessionID string)   { m.Called(sessionID) }
func (m *MockTracker) Untrack(sessionID string) { m.Called(sessionID) }

// MockPublisher is a mock implementation of events.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) CartUpdated(ctx context.Context, sessionID string, cartCount, wishlistCount int) {
	m.Called(ctx, sessionID, cartCount, wishlistCount)
}

func (m *MockPublisher) OrderPlaced(ctx context.Context, sessionID, orderID string) {
	m.Called(ctx, sessionID, orderID)
}

func (m *MockPublisher) Close() { m.Called() }
