//go:build !windows

package main

const defaultSocketPath = "/var/run/rustbeed.sock"

// defaultCacheFile is rustbeectl's own client-side cache of
// last-seen device state (spec §6: opaque to the daemon, a UI-only
// lookup contract). $HOME is resolved at runtime since the daemon
// itself never reads this file.
const defaultCacheFile = ".cache/rustbee/devices.json"
