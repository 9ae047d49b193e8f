// Written by hand in MockGen's output shape.
// Source: ../peer.go (interfaces: Peer)

// Package transporttest holds a hand-maintained gomock double for
// transport.Peer, in the shape `mockgen -source=peer.go` would produce
// (no go:generate invocation wired into this module — see DESIGN.md).
// It lives in its own package rather than transport itself so
// non-test code never links against go.uber.org/mock.
package transporttest

import (
	context "context"
	reflect "reflect"

	gomock "go.uber.org/mock/gomock"
)

// MockPeer is a mock of the transport.Peer interface.
type MockPeer struct {
	ctrl     *gomock.Controller
	recorder *MockPeerMockRecorder
}

type MockPeerMockRecorder struct {
	mock *MockPeer
}

func NewMockPeer(ctrl *gomock.Controller) *MockPeer {
	mock := &MockPeer{ctrl: ctrl}
	mock.recorder = &MockPeerMockRecorder{mock}
	return mock
}

func (m *MockPeer) EXPECT() *MockPeerMockRecorder {
	return m.recorder
}

func (m *MockPeer) SendBytes(ctx context.Context, payload []byte) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SendBytes", ctx, payload)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockPeerMockRecorder) SendBytes(ctx, payload interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SendBytes", reflect.TypeOf((*MockPeer)(nil).SendBytes), ctx, payload)
}

func (m *MockPeer) RecvBytes(ctx context.Context) ([]byte, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "RecvBytes", ctx)
	ret0, _ := ret[0].([]byte)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockPeerMockRecorder) RecvBytes(ctx interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "RecvBytes", reflect.TypeOf((*MockPeer)(nil).RecvBytes), ctx)
}

func (m *MockPeer) Close() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Close")
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockPeerMockRecorder) Close() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Close", reflect.TypeOf((*MockPeer)(nil).Close))
}
