//go:build windows

package main

import (
	"github.com/sirupsen/logrus"

	"github.com/rustbee-go/rustbeed/internal/ble"
	"github.com/rustbee-go/rustbeed/internal/ble/windows"
)

func newPlatformAdapter(logger *logrus.Logger) ble.Adapter {
	return windows.NewAdapter(logger, nil)
}
