package config

import (
	"fmt"
	"strings"
)

const (
	DriverSim   = "sim"
	DriverMalgo = "malgo"
)

func NormalizeDriver(raw string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(raw))
	if backend == "" {
		backend = DriverSim
	}
	switch backend {
	case DriverSim, DriverMalgo:
		return backend, nil
	case "device", "host":
		return DriverMalgo, nil
	default:
		return "", fmt.Errorf(
			"invalid driver %q (expected %s|%s|device)",
			raw,
			DriverSim,
			DriverMalgo,
		)
	}
}
