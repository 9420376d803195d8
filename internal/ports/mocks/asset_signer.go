package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"
)

type MockAssetSigner struct {
	mock.Mock
}

type MockAssetSigner_Expecter struct {
	mock *mock.Mock
}

func (_m *MockAssetSigner) EXPECT() *MockAssetSigner_Expecter {
	return &MockAssetSigner_Expecter{mock: &_m.Mock}
}

func (_m *MockAssetSigner) Sign(ctx context.Context, collection string, href string) (string, error) {
	ret := _m.Called(ctx, collection, href)

	if len(ret) == 0 {
		panic("no return value specified for Sign")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string, string) (string, error)); ok {
		return rf(ctx, collection, href)
	}

	return ret.String(0), ret.Error(1)
}

type MockAssetSigner_Sign_Call struct {
	*mock.Call
}

func (_e *MockAssetSigner_Expecter) Sign(ctx interface{}, collection interface{}, href interface{}) *MockAssetSigner_Sign_Call {
	return &MockAssetSigner_Sign_Call{Call: _e.mock.On("Sign", ctx, collection, href)}
}

func (_c *MockAssetSigner_Sign_Call) Return(_a0 string, _a1 error) *MockAssetSigner_Sign_Call {
	_c.Call.Return(_a0, _a1)
	return _c
}

func (_c *MockAssetSigner_Sign_Call) RunAndReturn(run func(context.Context, string, string) (string, error)) *MockAssetSigner_Sign_Call {
	_c.Call.Return(run)
	return _c
}

func NewMockAssetSigner(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockAssetSigner {
	m := &MockAssetSigner{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
