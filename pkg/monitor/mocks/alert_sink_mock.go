package mocks

import (
	"context"

	"github.com/janael-pinheiro/room-monitor-golang/pkg/entities"
	"github.com/stretchr/testify/mock"
)

type AlertSinkMock struct {
	mock.Mock
}

func (a *AlertSinkMock) SaveAlertRecord(ctx context.Context, deviceID, key string, record entities.AlertRecord) error {
	args := a.Called(deviceID, key, record)
	return args.Error(0)
}

func (a *AlertSinkMock) AcknowledgeAlert(ctx context.Context, deviceID, key string) (bool, error) {
	args := a.Called(deviceID, key)
	return args.Bool(0), args.Error(1)
}
