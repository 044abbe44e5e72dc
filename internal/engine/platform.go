package engine

import (
	"fmt"
	"strings"
)

// Platform names an engine execution backend.
type Platform string

const (
	CUDA      Platform = "CUDA"
	OpenCL    Platform = "OpenCL"
	CPU       Platform = "CPU"
	Reference Platform = "Reference"
)

var platforms = []Platform{CUDA, OpenCL, CPU, Reference}

func Platforms() []Platform {
	return append([]Platform(nil), platforms...)
}

// ParsePlatform returns the canonical platform for name, ignoring case.
func ParsePlatform(name string) (Platform, error) {
	for _, p := range platforms {
		if strings.EqualFold(name, string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("engine: unknown platform %q (want one of %v)", name, platforms)
}

// Accelerated reports whether the platform runs on a GPU.
func (p Platform) Accelerated() bool {
	return p == CUDA || p == OpenCL
}

func (p Platform) String() string {
	return string(p)
}
