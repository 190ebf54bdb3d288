package main

import (
	"fmt"
	"os"
	"strings"

	"mindmovie/internal/config"
	"mindmovie/internal/services"
	"mindmovie/internal/state"
)

// resolvePathFlag expands ~ in a user-supplied path. Empty stays empty.
func resolvePathFlag(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	return config.ExpandPath(value)
}

// resolveMusicFlag expands --music and requires the file to exist.
func resolveMusicFlag(value string) (string, error) {
	path, err := resolvePathFlag(value)
	if err != nil || path == "" {
		return path, err
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", services.Wrap(services.ErrConfiguration, "", "", fmt.Sprintf("Music file not found: %s", path), nil)
	}
	return path, nil
}

func errNoState() error {
	return services.Wrap(services.ErrNotFound, "", "",
		"No pipeline state found. Run 'mindmovie generate' to start a new mind movie.", nil)
}

func stageName(stage state.Stage) string {
	return strings.ReplaceAll(string(stage), "_", " ")
}

func formatUSD(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}
