package kafkaenv

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors_matchThroughWrapping(t *testing.T) {
	t.Parallel()

	sentinels := map[string]error{
		"port allocation": ErrPortAllocation,
		"filesystem":      ErrFilesystem,
		"config":          ErrConfig,
		"storage init":    ErrStorageInit,
		"process spawn":   ErrProcessSpawn,
	}

	for name, sentinel := range sentinels {
		sentinel := sentinel
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			wrapped := fmt.Errorf("%w: %w", sentinel, errors.New("underlying cause"))
			if !errors.Is(wrapped, sentinel) {
				t.Errorf("errors.Is(%v, sentinel) = false", wrapped)
			}
		})
	}
}

func TestSentinelErrors_distinct(t *testing.T) {
	t.Parallel()

	if errors.Is(ErrConfig, ErrFilesystem) {
		t.Error("ErrConfig matches ErrFilesystem")
	}
	if errors.Is(ErrStorageInit, ErrProcessSpawn) {
		t.Error("ErrStorageInit matches ErrProcessSpawn")
	}
}
