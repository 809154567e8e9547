package main

import (
	"context"
	"fmt"
	"testing"

	"github.com/matzehuels/tileroute/internal/cli"
	tferrors "github.com/matzehuels/tileroute/pkg/errors"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"ok", nil, 0},
		{"cancelled", fmt.Errorf("route: %w", context.Canceled), 130},
		{"tile failed", &cli.ExitError{Code: cli.ExitTileFailed, Msg: "1 of 2 tiles failed"}, cli.ExitTileFailed},
		{"markers", &cli.ExitError{Code: cli.ExitMarkers, Msg: "3 markers"}, cli.ExitMarkers},
		{"error", tferrors.New(tferrors.ErrCodeInvalidTech, "bad"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
