//go:build !linux

package bus

import (
	"context"
	"fmt"

	"github.com/austinkregel/local-media/audiod/internal/ipc"
)

// New reports that the D-Bus transport is unavailable on this platform
func New(ctx context.Context, router *ipc.Router) (Bus, error) {
	return nil, fmt.Errorf("d-bus transport not supported on this platform")
}
