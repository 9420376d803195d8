package mocks

import (
	"context"

	"github.com/bnema/sentinel-tiles-cli/internal/domain"
	mock "github.com/stretchr/testify/mock"
)

type MockManifestWriter struct {
	mock.Mock
}

type MockManifestWriter_Expecter struct {
	mock *mock.Mock
}

func (_m *MockManifestWriter) EXPECT() *MockManifestWriter_Expecter {
	return &MockManifestWriter_Expecter{mock: &_m.Mock}
}

func (_m *MockManifestWriter) WriteCycle(ctx context.Context, cycleDir string, summary domain.CycleSummary) error {
	ret := _m.Called(ctx, cycleDir, summary)

	if len(ret) == 0 {
		panic("no return value specified for WriteCycle")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string, domain.CycleSummary) error); ok {
		return rf(ctx, cycleDir, summary)
	}

	return ret.Error(0)
}

type MockManifestWriter_WriteCycle_Call struct {
	*mock.Call
}

func (_e *MockManifestWriter_Expecter) WriteCycle(ctx interface{}, cycleDir interface{}, summary interface{}) *MockManifestWriter_WriteCycle_Call {
	return &MockManifestWriter_WriteCycle_Call{Call: _e.mock.On("WriteCycle", ctx, cycleDir, summary)}
}

func (_c *MockManifestWriter_WriteCycle_Call) Return(_a0 error) *MockManifestWriter_WriteCycle_Call {
	_c.Call.Return(_a0)
	return _c
}

func (_c *MockManifestWriter_WriteCycle_Call) RunAndReturn(run func(context.Context, string, domain.CycleSummary) error) *MockManifestWriter_WriteCycle_Call {
	_c.Call.Return(run)
	return _c
}

func NewMockManifestWriter(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockManifestWriter {
	m := &MockManifestWriter{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
