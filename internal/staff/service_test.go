package staff

import (
	"context"
	"errors"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/Lelo88/nova-catalog-golang/internal/catalog"
)

// fakeRepo implementa RepositoryAPI para testing.
type fakeRepo struct {
	listCalled  bool
	listFilter  ListFilter
	listItems   []catalog.Item
	listErr     error
	countCalled bool
	countFilter ListFilter
	countTotal  int
	countErr    error

	facetCategory    string
	facetSubcategory string
	facetCalled      bool

	insertCalled bool
	insertInput  ItemInput
	insertErr    error

	updateCalled bool
	updateID     int64
	updateInput  UpdateItemInput
	updateErr    error

	deleteID  int64
	deleteErr error
}

func (repo *fakeRepo) List(ctx context.Context, filter ListFilter) ([]catalog.Item, error) {
	repo.listCalled = true
	repo.listFilter = filter
	return repo.listItems, repo.listErr
}

func (repo *fakeRepo) Count(ctx context.Context, filter ListFilter) (int, error) {
	repo.countCalled = true
	repo.countFilter = filter
	return repo.countTotal, repo.countErr
}

func (repo *fakeRepo) Subcategories(ctx context.Context, category string) ([]string, error) {
	repo.facetCalled = true
	repo.facetCategory = category
	return []string{"Amphibians"}, nil
}

func (repo *fakeRepo) Types(ctx context.Context, category, subcategory string) ([]string, error) {
	repo.facetCalled = true
	repo.facetCategory = category
	repo.facetSubcategory = subcategory
	return []string{"Frogs"}, nil
}

func (repo *fakeRepo) GetByID(ctx context.Context, id int64) (catalog.Item, error) {
	if id == 404 {
		return catalog.Item{}, ErrorNotFound
	}
	return catalog.Item{ID: id}, nil
}

func (repo *fakeRepo) Insert(ctx context.Context, input ItemInput) (catalog.Item, error) {
	repo.insertCalled = true
	repo.insertInput = input
	if repo.insertErr != nil {
		return catalog.Item{}, repo.insertErr
	}
	return catalog.Item{ID: 1, ItemName: input.ItemName}, nil
}

func (repo *fakeRepo) Update(ctx context.Context, id int64, input UpdateItemInput) (catalog.Item, error) {
	repo.updateCalled = true
	repo.updateID = id
	repo.updateInput = input
	if repo.updateErr != nil {
		return catalog.Item{}, repo.updateErr
	}
	return catalog.Item{ID: id}, nil
}

func (repo *fakeRepo) Delete(ctx context.Context, id int64) error {
	repo.deleteID = id
	return repo.deleteErr
}

func newService(repo *fakeRepo) *Service {
	logger, _ := logtest.NewNullLogger()
	return NewService(repo, logger)
}

func money(t *testing.T, value string) *catalog.Money {
	t.Helper()

	parsed, err := catalog.NewMoney(value)
	require.NoError(t, err)
	return &parsed
}

func intPtr(value int) *int {
	return &value
}

func TestService_List(t *testing.T) {
	t.Run("invalid pagination", func(t *testing.T) {
		for _, filter := range []ListFilter{{Limit: 0}, {Limit: MaxPageSize + 1}, {Limit: 20, Offset: -1}} {
			repo := &fakeRepo{}

			_, _, err := newService(repo).List(context.Background(), filter)

			require.ErrorIs(t, err, ErrorInvalidInput)
			require.False(t, repo.listCalled)
		}
	})

	t.Run("success normalizes filter", func(t *testing.T) {
		repo := &fakeRepo{listItems: []catalog.Item{{ID: 1}}, countTotal: 31}

		items, total, err := newService(repo).List(context.Background(), ListFilter{Category: " Specimens ", Query: " frog ", Limit: 20, Offset: 20})

		require.NoError(t, err)
		require.Len(t, items, 1)
		require.Equal(t, 31, total)
		require.Equal(t, "Specimens", repo.listFilter.Category)
		require.Equal(t, "frog", repo.listFilter.Query)
		require.Equal(t, repo.listFilter, repo.countFilter)
	})

	t.Run("list error", func(t *testing.T) {
		boom := errors.New("boom")
		repo := &fakeRepo{listErr: boom}

		_, _, err := newService(repo).List(context.Background(), ListFilter{Limit: 20})

		require.ErrorIs(t, err, boom)
		require.False(t, repo.countCalled)
	})

	t.Run("count error", func(t *testing.T) {
		boom := errors.New("boom")
		repo := &fakeRepo{countErr: boom}

		_, _, err := newService(repo).List(context.Background(), ListFilter{Limit: 20})

		require.ErrorIs(t, err, boom)
	})
}

func TestService_Facets(t *testing.T) {
	t.Run("subcategories without category", func(t *testing.T) {
		repo := &fakeRepo{}

		values, err := newService(repo).Subcategories(context.Background(), "  ")

		require.NoError(t, err)
		require.Equal(t, []string{}, values)
		require.False(t, repo.facetCalled)
	})

	t.Run("subcategories", func(t *testing.T) {
		repo := &fakeRepo{}

		values, err := newService(repo).Subcategories(context.Background(), " Specimens ")

		require.NoError(t, err)
		require.Equal(t, []string{"Amphibians"}, values)
		require.Equal(t, "Specimens", repo.facetCategory)
	})

	t.Run("types need both params", func(t *testing.T) {
		repo := &fakeRepo{}

		values, err := newService(repo).Types(context.Background(), "Specimens", "")

		require.NoError(t, err)
		require.Equal(t, []string{}, values)
		require.False(t, repo.facetCalled)
	})

	t.Run("types", func(t *testing.T) {
		repo := &fakeRepo{}

		values, err := newService(repo).Types(context.Background(), "Specimens", "Amphibians")

		require.NoError(t, err)
		require.Equal(t, []string{"Frogs"}, values)
		require.Equal(t, "Amphibians", repo.facetSubcategory)
	})
}

func TestService_Create(t *testing.T) {
	t.Run("required fields", func(t *testing.T) {
		for _, input := range []ItemInput{{SKU: "FRG-1"}, {ItemName: "Frog"}, {SKU: "  ", ItemName: "  "}} {
			repo := &fakeRepo{}

			_, err := newService(repo).Create(context.Background(), input)

			require.ErrorIs(t, err, ErrorInvalidInput)
			require.False(t, repo.insertCalled)
		}
	})

	t.Run("negative amounts", func(t *testing.T) {
		inputs := []ItemInput{
			{SKU: "A", ItemName: "B", Price: money(t, "-1")},
			{SKU: "A", ItemName: "B", UnitCost: money(t, "-0.01")},
			{SKU: "A", ItemName: "B", QuantityInStock: intPtr(-1)},
			{SKU: "A", ItemName: "B", ReorderLevel: intPtr(-5)},
		}
		for _, input := range inputs {
			repo := &fakeRepo{}

			_, err := newService(repo).Create(context.Background(), input)

			require.ErrorIs(t, err, ErrorInvalidInput)
			require.False(t, repo.insertCalled)
		}
	})

	t.Run("trims and rounds", func(t *testing.T) {
		repo := &fakeRepo{}

		item, err := newService(repo).Create(context.Background(), ItemInput{
			SKU:             " FRG-1 ",
			ItemName:        " Frog ",
			Price:           money(t, "18.499"),
			UnitCost:        money(t, "2.005"),
			QuantityInStock: intPtr(0),
		})

		require.NoError(t, err)
		require.Equal(t, "Frog", item.ItemName)
		require.Equal(t, "FRG-1", repo.insertInput.SKU)
		require.Equal(t, "18.50", repo.insertInput.Price.StringFixed(2))
		require.Equal(t, "2.01", repo.insertInput.UnitCost.String())
	})

	t.Run("duplicate sku", func(t *testing.T) {
		repo := &fakeRepo{insertErr: ErrorDuplicateSKU}

		_, err := newService(repo).Create(context.Background(), ItemInput{SKU: "A", ItemName: "B"})

		require.ErrorIs(t, err, ErrorDuplicateSKU)
	})
}

func TestService_Update(t *testing.T) {
	t.Run("no fields", func(t *testing.T) {
		repo := &fakeRepo{}

		_, err := newService(repo).Update(context.Background(), 1, UpdateItemInput{})

		require.ErrorIs(t, err, ErrorInvalidInput)
		require.False(t, repo.updateCalled)
	})

	t.Run("required fields cannot be cleared", func(t *testing.T) {
		blank := "   "
		inputs := []UpdateItemInput{
			{Present: map[string]bool{"itemName": true}},
			{ItemName: &blank, Present: map[string]bool{"itemName": true}},
			{Present: map[string]bool{"sku": true}},
			{SKU: &blank, Present: map[string]bool{"sku": true}},
		}
		for _, input := range inputs {
			repo := &fakeRepo{}

			_, err := newService(repo).Update(context.Background(), 1, input)

			require.ErrorIs(t, err, ErrorInvalidInput)
			require.False(t, repo.updateCalled)
		}
	})

	t.Run("negative quantity", func(t *testing.T) {
		repo := &fakeRepo{}

		_, err := newService(repo).Update(context.Background(), 1, UpdateItemInput{
			QuantityInStock: intPtr(-3),
			Present:         map[string]bool{"quantityInStock": true},
		})

		require.ErrorIs(t, err, ErrorInvalidInput)
	})

	t.Run("clears nullable fields", func(t *testing.T) {
		repo := &fakeRepo{}

		item, err := newService(repo).Update(context.Background(), 8, UpdateItemInput{
			Present: map[string]bool{"description": true, "price": true},
		})

		require.NoError(t, err)
		require.Equal(t, int64(8), item.ID)
		require.Equal(t, int64(8), repo.updateID)
		require.Nil(t, repo.updateInput.Description)
		require.Nil(t, repo.updateInput.Price)
	})

	t.Run("trims sku", func(t *testing.T) {
		repo := &fakeRepo{}
		sku := " FRG-2 "

		_, err := newService(repo).Update(context.Background(), 8, UpdateItemInput{SKU: &sku, Present: map[string]bool{"sku": true}})

		require.NoError(t, err)
		require.Equal(t, "FRG-2", *repo.updateInput.SKU)
	})

	t.Run("repository error", func(t *testing.T) {
		repo := &fakeRepo{updateErr: ErrorNotFound}

		_, err := newService(repo).Update(context.Background(), 8, UpdateItemInput{Present: map[string]bool{"description": true}})

		require.ErrorIs(t, err, ErrorNotFound)
	})
}

func TestService_GetAndDelete(t *testing.T) {
	repo := &fakeRepo{}
	service := newService(repo)

	item, err := service.Get(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, int64(3), item.ID)

	_, err = service.Get(context.Background(), 404)
	require.ErrorIs(t, err, ErrorNotFound)

	require.NoError(t, service.Delete(context.Background(), 6))
	require.Equal(t, int64(6), repo.deleteID)

	repo.deleteErr = ErrorNotFound
	require.ErrorIs(t, service.Delete(context.Background(), 6), ErrorNotFound)
}
