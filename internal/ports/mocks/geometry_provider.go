package mocks

import (
	"context"

	"github.com/bnema/sentinel-tiles-cli/internal/domain"
	mock "github.com/stretchr/testify/mock"
)

type MockGeometryProvider struct {
	mock.Mock
}

type MockGeometryProvider_Expecter struct {
	mock *mock.Mock
}

func (_m *MockGeometryProvider) EXPECT() *MockGeometryProvider_Expecter {
	return &MockGeometryProvider_Expecter{mock: &_m.Mock}
}

func (_m *MockGeometryProvider) Load(ctx context.Context, path string) (domain.AreaOfInterest, error) {
	ret := _m.Called(ctx, path)

	if len(ret) == 0 {
		panic("no return value specified for Load")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string) (domain.AreaOfInterest, error)); ok {
		return rf(ctx, path)
	}

	return ret.Get(0).(domain.AreaOfInterest), ret.Error(1)
}

type MockGeometryProvider_Load_Call struct {
	*mock.Call
}

func (_e *MockGeometryProvider_Expecter) Load(ctx interface{}, path interface{}) *MockGeometryProvider_Load_Call {
	return &MockGeometryProvider_Load_Call{Call: _e.mock.On("Load", ctx, path)}
}

func (_c *MockGeometryProvider_Load_Call) Return(_a0 domain.AreaOfInterest, _a1 error) *MockGeometryProvider_Load_Call {
	_c.Call.Return(_a0, _a1)
	return _c
}

func NewMockGeometryProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockGeometryProvider {
	m := &MockGeometryProvider{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
