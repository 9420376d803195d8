package mocks

import (
	"context"

	"github.com/bnema/sentinel-tiles-cli/internal/domain"
	"github.com/bnema/sentinel-tiles-cli/internal/ports"
	mock "github.com/stretchr/testify/mock"
)

type MockCatalogSearcher struct {
	mock.Mock
}

type MockCatalogSearcher_Expecter struct {
	mock *mock.Mock
}

func (_m *MockCatalogSearcher) EXPECT() *MockCatalogSearcher_Expecter {
	return &MockCatalogSearcher_Expecter{mock: &_m.Mock}
}

func (_m *MockCatalogSearcher) Search(ctx context.Context, query ports.SearchQuery) ([]domain.CatalogItem, error) {
	ret := _m.Called(ctx, query)

	if len(ret) == 0 {
		panic("no return value specified for Search")
	}

	if rf, ok := ret.Get(0).(func(context.Context, ports.SearchQuery) ([]domain.CatalogItem, error)); ok {
		return rf(ctx, query)
	}

	var r0 []domain.CatalogItem
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]domain.CatalogItem)
	}

	return r0, ret.Error(1)
}

type MockCatalogSearcher_Search_Call struct {
	*mock.Call
}

func (_e *MockCatalogSearcher_Expecter) Search(ctx interface{}, query interface{}) *MockCatalogSearcher_Search_Call {
	return &MockCatalogSearcher_Search_Call{Call: _e.mock.On("Search", ctx, query)}
}

func (_c *MockCatalogSearcher_Search_Call) Run(run func(ctx context.Context, query ports.SearchQuery)) *MockCatalogSearcher_Search_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(ports.SearchQuery))
	})
	return _c
}

func (_c *MockCatalogSearcher_Search_Call) Return(_a0 []domain.CatalogItem, _a1 error) *MockCatalogSearcher_Search_Call {
	_c.Call.Return(_a0, _a1)
	return _c
}

func (_c *MockCatalogSearcher_Search_Call) RunAndReturn(run func(context.Context, ports.SearchQuery) ([]domain.CatalogItem, error)) *MockCatalogSearcher_Search_Call {
	_c.Call.Return(run)
	return _c
}

func NewMockCatalogSearcher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockCatalogSearcher {
	m := &MockCatalogSearcher{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
