// Package deps checks that the external binaries composition shells out to
// are installed, and that ffmpeg was built with the filters it needs.
package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"mindmovie/internal/config"
)

// RequiredFilters are the ffmpeg filters the composer's graph uses.
var RequiredFilters = []string{"xfade", "drawtext", "acrossfade", "amix", "afade"}

// Requirement defines an external binary mindmovie relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the binaries the configured pipeline needs.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: cfg.FFmpegBinary(), Description: "Composes the final movie"},
		{Name: "FFprobe", Command: cfg.FFprobeBinary(), Description: "Inspects generated clips"},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		default:
			if resolved, err := exec.LookPath(cmd); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else {
				status.Command = resolved
				status.Available = true
			}
		}
		results = append(results, status)
	}
	return results
}

// CheckFFmpegFilters runs `ffmpeg -filters` and reports which of the wanted
// filters are missing from the build. drawtext in particular is absent from
// ffmpeg builds without libfreetype.
func CheckFFmpegFilters(ctx context.Context, binary string, wanted []string) Status {
	status := Status{Name: "FFmpeg filters", Command: binary, Description: strings.Join(wanted, ", ")}
	output, err := exec.CommandContext(ctx, binary, "-hide_banner", "-filters").Output()
	if err != nil {
		status.Detail = fmt.Sprintf("list filters: %v", err)
		return status
	}
	available := ParseFilterList(output)
	var missing []string
	for _, name := range wanted {
		if _, ok := available[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		status.Detail = "missing filters: " + strings.Join(missing, ", ")
		return status
	}
	status.Available = true
	return status
}

// ParseFilterList extracts filter names from `ffmpeg -filters` output. Filter
// rows look like " TSC xfade             VV->V      Cross fade ...".
func ParseFilterList(output []byte) map[string]struct{} {
	names := make(map[string]struct{})
	scanner := bufio.NewScanner(bytes.NewReader(output))
	inTable := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "---") {
			inTable = true
			continue
		}
		if !inTable {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 || !strings.Contains(fields[2], "->") {
			continue
		}
		names[fields[1]] = struct{}{}
	}
	return names
}
