package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type NotifierMock struct {
	mock.Mock
}

func (n *NotifierMock) Notify(ctx context.Context, title, body string) error {
	args := n.Called(title, body)
	return args.Error(0)
}
