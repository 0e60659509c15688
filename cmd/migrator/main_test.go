package main

import (
	"errors"
	"io"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockMigrator struct {
	mock.Mock
}

func (m *MockMigrator) Up() error {
	return m.Called().Error(0)
}

func (m *MockMigrator) Down() error {
	return m.Called().Error(0)
}

func (m *MockMigrator) Steps(n int) error {
	return m.Called(n).Error(0)
}

func (m *MockMigrator) Close() (error, error) {
	args := m.Called()
	return args.Error(0), args.Error(1)
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestRun_ClosesOnEveryExitPath(t *testing.T) {
	tests := []struct {
		name      string
		direction string
		steps     int
		setup     func(m *MockMigrator)
		wantCode  int
	}{
		{
			name:      "up applied",
			direction: directionUp,
			setup:     func(m *MockMigrator) { m.On("Up").Return(nil).Once() },
			wantCode:  0,
		},
		{
			name:      "up no change",
			direction: directionUp,
			setup:     func(m *MockMigrator) { m.On("Up").Return(migrate.ErrNoChange).Once() },
			wantCode:  0,
		},
		{
			name:      "down fails",
			direction: directionDown,
			setup:     func(m *MockMigrator) { m.On("Down").Return(errors.New("dirty database")).Once() },
			wantCode:  1,
		},
		{
			name:      "steps",
			direction: directionSteps,
			steps:     -1,
			setup:     func(m *MockMigrator) { m.On("Steps", -1).Return(nil).Once() },
			wantCode:  0,
		},
		{
			name:      "unknown direction",
			direction: "sideways",
			setup:     func(*MockMigrator) {},
			wantCode:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockMigrator)
			tt.setup(m)
			m.On("Close").Return(nil, nil).Once()

			assert.Equal(t, tt.wantCode, run(m, tt.direction, tt.steps, quietLogger()))
			m.AssertExpectations(t)
		})
	}
}

func TestCheckArgs(t *testing.T) {
	assert.NoError(t, checkArgs(directionUp, 0))
	assert.NoError(t, checkArgs(directionSteps, 2))
	assert.Error(t, checkArgs(directionSteps, 0))
	assert.Error(t, checkArgs("sideways", 0))
}
