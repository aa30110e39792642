//go:build !windows

package main

import (
	"github.com/sirupsen/logrus"

	"github.com/rustbee-go/rustbeed/internal/ble"
	"github.com/rustbee-go/rustbeed/internal/ble/linux"
)

func newPlatformAdapter(logger *logrus.Logger) ble.Adapter {
	return linux.NewAdapter(logger)
}
