package product

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/promo-pricing/internal/domain/apperror"
	"github.com/xenking/promo-pricing/internal/domain/currency"
	"github.com/xenking/promo-pricing/internal/domain/page"
)

// --- Mock implementations ---

type mockRepo struct {
	byID      map[int64]*Product
	nextID    int64
	lastPage  page.Page
	createErr error
	updateErr error
}

func newMockRepo(products ...Product) *mockRepo {
	m := &mockRepo{byID: make(map[int64]*Product)}
	for i := range products {
		p := products[i]
		m.byID[p.ID] = &p
		if p.ID > m.nextID {
			m.nextID = p.ID
		}
	}
	return m
}

func (m *mockRepo) List(_ context.Context, pg page.Page) ([]Product, error) {
	m.lastPage = pg
	out := make([]Product, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockRepo) GetByID(_ context.Context, id int64) (*Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) Create(_ context.Context, p *Product) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	p.ID = m.nextID
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *mockRepo) Update(_ context.Context, p *Product) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	stored, ok := m.byID[p.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != p.Version {
		return ErrVersionConflict
	}
	p.Version++
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

type mockResolver struct {
	resolved []string
	err      error
}

func (m *mockResolver) Resolve(_ context.Context, code string) (*currency.Currency, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.resolved = append(m.resolved, code)
	return &currency.Currency{ID: int64(len(m.resolved)), Code: code}, nil
}

// --- Helpers ---

func ptr[T any](v T) *T { return &v }

func newTestProduct(id int64, name, price, cur string) Product {
	return Product{
		ID:       id,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Currency: cur,
	}
}

// --- Tests ---

func TestCreate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateRequest
		wantErr error
	}{
		{name: "missing name", req: CreateRequest{Price: ptr(decimal.NewFromInt(1)), Currency: "USD"}, wantErr: ErrNameRequired},
		{name: "missing price", req: CreateRequest{Name: "Lamp", Currency: "USD"}, wantErr: ErrPriceRequired},
		{name: "negative price", req: CreateRequest{Name: "Lamp", Price: ptr(decimal.NewFromInt(-1)), Currency: "USD"}, wantErr: ErrNegativePrice},
		{name: "blank currency", req: CreateRequest{Name: "Lamp", Price: ptr(decimal.NewFromInt(1)), Currency: "  "}, wantErr: currency.ErrEmptyCode},
		{name: "more than two decimals", req: CreateRequest{Name: "Lamp", Price: ptr(decimal.RequireFromString("10.005")), Currency: "USD"}, wantErr: ErrPriceScale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(newMockRepo(), &mockResolver{})
			_, err := svc.Create(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, apperror.Is(err, apperror.KindValidation))
		})
	}
}

func TestCreate_ResolvesCurrency(t *testing.T) {
	repo := newMockRepo()
	resolver := &mockResolver{}
	svc := NewService(repo, resolver)

	p, err := svc.Create(context.Background(), CreateRequest{
		Name:  "Lamp",
		Price: ptr(decimal.RequireFromString("140.00")),
		// Lowercase input is stored uppercase.
		Currency: " usd ",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "USD", p.Currency)
	assert.Equal(t, []string{"USD"}, resolver.resolved)
	assert.True(t, decimal.RequireFromString("140").Equal(p.Price))
}

func TestCreate_DuplicateName(t *testing.T) {
	repo := newMockRepo()
	repo.createErr = ErrNameTaken
	svc := NewService(repo, &mockResolver{})

	_, err := svc.Create(context.Background(), CreateRequest{
		Name:     "Lamp",
		Price:    ptr(decimal.NewFromInt(1)),
		Currency: "USD",
	})
	require.ErrorIs(t, err, ErrNameTaken)
	assert.Equal(t, apperror.KindDuplicate, apperror.KindOf(err))
}

func TestUpdate_NotFound(t *testing.T) {
	svc := NewService(newMockRepo(), &mockResolver{})

	_, err := svc.Update(context.Background(), 42, Patch{Name: ptr("x")})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_MergesOnlySuppliedFields(t *testing.T) {
	desc := "warm light"
	orig := newTestProduct(1, "Lamp", "10.00", "USD")
	orig.Description = &desc
	repo := newMockRepo(orig)
	resolver := &mockResolver{}
	svc := NewService(repo, resolver)

	p, err := svc.Update(context.Background(), 1, Patch{Price: ptr(decimal.RequireFromString("12.50"))})
	require.NoError(t, err)

	assert.Equal(t, "Lamp", p.Name)
	require.NotNil(t, p.Description)
	assert.Equal(t, "warm light", *p.Description)
	assert.Equal(t, "USD", p.Currency)
	assert.True(t, decimal.RequireFromString("12.5").Equal(p.Price))
	assert.Equal(t, int64(1), p.Version)
	assert.Empty(t, resolver.resolved)
}

func TestUpdate_RejectsPriceBeyondScale(t *testing.T) {
	repo := newMockRepo(newTestProduct(1, "Lamp", "10.00", "USD"))
	svc := NewService(repo, &mockResolver{})

	_, err := svc.Update(context.Background(), 1, Patch{Price: ptr(decimal.RequireFromString("10.005"))})
	require.ErrorIs(t, err, ErrPriceScale)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.True(t, decimal.RequireFromString("10.00").Equal(repo.byID[1].Price))
}

func TestUpdate_EmptyCurrencyIgnored(t *testing.T) {
	repo := newMockRepo(newTestProduct(1, "Lamp", "10.00", "USD"))
	resolver := &mockResolver{}
	svc := NewService(repo, resolver)

	p, err := svc.Update(context.Background(), 1, Patch{Currency: ptr("")})
	require.NoError(t, err)

	assert.Equal(t, "USD", p.Currency)
	assert.Empty(t, resolver.resolved)
}

func TestUpdate_ResolvesNewCurrency(t *testing.T) {
	repo := newMockRepo(newTestProduct(1, "Lamp", "10.00", "USD"))
	resolver := &mockResolver{}
	svc := NewService(repo, resolver)

	p, err := svc.Update(context.Background(), 1, Patch{Currency: ptr("eur")})
	require.NoError(t, err)

	assert.Equal(t, "EUR", p.Currency)
	assert.Equal(t, []string{"EUR"}, resolver.resolved)
}

func TestUpdate_StaleVersion(t *testing.T) {
	stored := newTestProduct(1, "Lamp", "10.00", "USD")
	stored.Version = 3
	svc := NewService(newMockRepo(stored), &mockResolver{})

	_, err := svc.Update(context.Background(), 1, Patch{Name: ptr("Desk lamp"), Version: ptr(int64(2))})
	require.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestUpdate_ConcurrentWriteConflict(t *testing.T) {
	repo := newMockRepo(newTestProduct(1, "Lamp", "10.00", "USD"))
	repo.updateErr = ErrVersionConflict
	svc := NewService(repo, &mockResolver{})

	_, err := svc.Update(context.Background(), 1, Patch{Name: ptr("Desk lamp")})
	require.ErrorIs(t, err, ErrVersionConflict)
}

func TestUpdate_ResolverFailure(t *testing.T) {
	repo := newMockRepo(newTestProduct(1, "Lamp", "10.00", "USD"))
	svc := NewService(repo, &mockResolver{err: errors.New("db down")})

	_, err := svc.Update(context.Background(), 1, Patch{Currency: ptr("EUR")})
	require.Error(t, err)
	assert.Empty(t, apperror.KindOf(err))
}

func TestList_PassesPage(t *testing.T) {
	repo := newMockRepo(newTestProduct(1, "Lamp", "10.00", "USD"))
	svc := NewService(repo, &mockResolver{})

	products, err := svc.List(context.Background(), page.Page{Number: 2, Size: 5})
	require.NoError(t, err)

	assert.Len(t, products, 1)
	assert.Equal(t, page.Page{Number: 2, Size: 5}, repo.lastPage)
}
