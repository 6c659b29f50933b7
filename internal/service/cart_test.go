package service_test

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/atinyakov/packcart/internal/cart"
	"github.com/atinyakov/packcart/internal/models"
	"github.com/atinyakov/packcart/internal/service"
)

type mockCartRepo struct {
	GetLinesFunc    func(ctx context.Context, userID string) (map[string]models.CartLine, error)
	AddQuantityFunc func(ctx context.Context, userID, key string, line models.CartLine) error
	MergeLinesFunc  func(ctx context.Context, userID string, lines map[string]models.CartLine) error
	SetQuantityFunc func(ctx context.Context, userID, key string, quantity int) error
	DeleteLinesFunc func(ctx context.Context, userID string, keys []string) error
}

func (m *mockCartRepo) GetLines(ctx context.Context, userID string) (map[string]models.CartLine, error) {
	return m.GetLinesFunc(ctx, userID)
}
func (m *mockCartRepo) AddQuantity(ctx context.Context, userID, key string, line models.CartLine) error {
	return m.AddQuantityFunc(ctx, userID, key, line)
}
func (m *mockCartRepo) MergeLines(ctx context.Context, userID string, lines map[string]models.CartLine) error {
	return m.MergeLinesFunc(ctx, userID, lines)
}
func (m *mockCartRepo) SetQuantity(ctx context.Context, userID, key string, quantity int) error {
	return m.SetQuantityFunc(ctx, userID, key, quantity)
}
func (m *mockCartRepo) DeleteLines(ctx context.Context, userID string, keys []string) error {
	return m.DeleteLinesFunc(ctx, userID, keys)
}

// memCartRepo backs a mockCartRepo with a map so results can be observed.
func memCartRepo(lines map[string]models.CartLine) *mockCartRepo {
	return &mockCartRepo{
		GetLinesFunc: func(context.Context, string) (map[string]models.CartLine, error) {
			out := make(map[string]models.CartLine, len(lines))
			for k, v := range lines {
				out[k] = v
			}
			return out, nil
		},
		AddQuantityFunc: func(_ context.Context, _ string, key string, line models.CartLine) error {
			have := lines[key]
			line.Quantity += have.Quantity
			lines[key] = line
			return nil
		},
		MergeLinesFunc: func(_ context.Context, _ string, in map[string]models.CartLine) error {
			for k, v := range in {
				have := lines[k]
				v.Quantity += have.Quantity
				lines[k] = v
			}
			return nil
		},
		SetQuantityFunc: func(_ context.Context, _ string, key string, quantity int) error {
			if l, ok := lines[key]; ok {
				l.Quantity = quantity
				lines[key] = l
			}
			return nil
		},
		DeleteLinesFunc: func(_ context.Context, _ string, keys []string) error {
			for _, k := range keys {
				delete(lines, k)
			}
			return nil
		},
	}
}

func TestCartService_AddPromotesBareID(t *testing.T) {
	lines := map[string]models.CartLine{}
	svc := service.NewCartService(memCartRepo(lines), nil)

	got, err := svc.Add(context.Background(), "u1", "p1", "Sky Blue", "Silk")
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}
	want := cart.State{"p1::Sky%20Blue::Silk::": {Quantity: 1, Color: "Sky Blue", Fabric: "Silk", ProductID: "p1"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("cart = %+v; want %+v", got, want)
	}

	got, err = svc.Add(context.Background(), "u1", "p1::Sky%20Blue::Silk::", "", "")
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if got["p1::Sky%20Blue::Silk::"].Quantity != 2 {
		t.Errorf("expected quantity 2, got %+v", got)
	}
}

func TestCartService_AddInvalid(t *testing.T) {
	svc := service.NewCartService(memCartRepo(map[string]models.CartLine{}), nil)
	for _, id := range []string{"", "::Red::::"} {
		if _, err := svc.Add(context.Background(), "u1", id, "", ""); !errors.Is(err, service.ErrInvalidItem) {
			t.Errorf("Add(%q) error = %v; want ErrInvalidItem", id, err)
		}
	}
}

func TestCartService_Update(t *testing.T) {
	lines := map[string]models.CartLine{
		"p1::::::": {Quantity: 1, ProductID: "p1"},
		"p2::::::": {Quantity: 1, ProductID: "p2"},
	}
	svc := service.NewCartService(memCartRepo(lines), nil)
	ctx := context.Background()

	got, err := svc.Update(ctx, "u1", "p1", 7)
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if got["p1::::::"].Quantity != 7 {
		t.Errorf("expected 7, got %+v", got)
	}

	got, err = svc.Update(ctx, "u1", "p2::::::", 0)
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if _, ok := got["p2::::::"]; ok {
		t.Errorf("expected p2 removed, got %+v", got)
	}
}

func TestCartService_MergeSumsAndKeeps(t *testing.T) {
	lines := map[string]models.CartLine{
		"p1::::::": {Quantity: 3, ProductID: "p1"},
		"p9::::::": {Quantity: 1, ProductID: "p9"},
	}
	svc := service.NewCartService(memCartRepo(lines), nil)

	got, err := svc.Merge(context.Background(), "u1", []byte(`{"p1": 2, "p2": {"S": 1}}`))
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	want := cart.State{
		"p1::::::": {Quantity: 5, ProductID: "p1"},
		"p2::::::": {Quantity: 1, ProductID: "p2"},
		"p9::::::": {Quantity: 1, ProductID: "p9"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("cart = %+v; want %+v", got, want)
	}
}

func TestCartService_MergeClampsQuantity(t *testing.T) {
	lines := map[string]models.CartLine{"p1::::::": {Quantity: math.MaxInt32 - 1, ProductID: "p1"}}
	svc := service.NewCartService(memCartRepo(lines), nil)

	got, err := svc.Merge(context.Background(), "u1", []byte(`{"p1": 10}`))
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if got["p1::::::"].Quantity != math.MaxInt32 {
		t.Errorf("expected clamp to MaxInt32, got %d", got["p1::::::"].Quantity)
	}
}

func TestCartService_MergeEmptyGuest(t *testing.T) {
	repo := memCartRepo(map[string]models.CartLine{"p1::::::": {Quantity: 1, ProductID: "p1"}})
	repo.MergeLinesFunc = func(context.Context, string, map[string]models.CartLine) error {
		t.Error("MergeLines must not be called for an empty guest cart")
		return nil
	}
	svc := service.NewCartService(repo, nil)

	got, err := svc.Merge(context.Background(), "u1", []byte(`garbage`))
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected stored cart, got %+v", got)
	}
}

func TestCartService_RepoError(t *testing.T) {
	wantErr := errors.New("db down")
	repo := memCartRepo(map[string]models.CartLine{})
	repo.AddQuantityFunc = func(context.Context, string, string, models.CartLine) error { return wantErr }
	svc := service.NewCartService(repo, nil)

	if _, err := svc.Add(context.Background(), "u1", "p1", "", ""); !errors.Is(err, wantErr) {
		t.Fatalf("Add error = %v; want %v", err, wantErr)
	}
}
