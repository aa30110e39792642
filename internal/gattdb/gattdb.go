// Package gattdb is a small static lookup table mapping the handful
// of vendor GATT UUIDs this daemon cares about to display names, for
// the linux backend's debug logging. Adapted from the
// teacher's generated internal/bledb package, cut down from its full
// Bluetooth SIG database to just the UUIDs this daemon ever sees.
package gattdb

import "github.com/google/uuid"

var names = map[uuid.UUID]string{
	uuid.MustParse("932c32bd-0000-47a2-835a-a8d455b859dd"): "Light Services",
	uuid.MustParse("932c32bd-0002-47a2-835a-a8d455b859dd"): "Power",
	uuid.MustParse("932c32bd-0003-47a2-835a-a8d455b859dd"): "Brightness",
	uuid.MustParse("932c32bd-0004-47a2-835a-a8d455b859dd"): "Temperature",
	uuid.MustParse("932c32bd-0005-47a2-835a-a8d455b859dd"): "Color",

	// Generic Access / Device Information, used to identify the
	// manufacturer and model during a name search or debug dump.
	uuid.MustParse("00001800-0000-1000-8000-00805f9b34fb"): "Generic Access",
	uuid.MustParse("0000180a-0000-1000-8000-00805f9b34fb"): "Device Information",
	uuid.MustParse("00002a29-0000-1000-8000-00805f9b34fb"): "Manufacturer Name String",
	uuid.MustParse("00002a24-0000-1000-8000-00805f9b34fb"): "Model Number String",
}

// Lookup returns the known display name for id, or ok=false if id is
// not one of the UUIDs this daemon materially uses.
func Lookup(id uuid.UUID) (name string, ok bool) {
	name, ok = names[id]
	return name, ok
}

// LookupOrHex returns the known display name for id, falling back to
// its hyphenated hex form if unknown.
func LookupOrHex(id uuid.UUID) string {
	if name, ok := names[id]; ok {
		return name
	}
	return id.String()
}
