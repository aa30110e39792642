//go:build !windows

package config

const defaultSocketPath = "/var/run/rustbeed.sock"
