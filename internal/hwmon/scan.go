package hwmon

import (
	"os"
	"path/filepath"
	"regexp"
)

// Modality classifies a sensor channel by the physical quantity it measures.
type Modality string

const (
	ModalityTemperature Modality = "temperature"
	ModalityPressure    Modality = "pressure"
	ModalityHumidity    Modality = "humidity"
)

// Rule couples a channel filename pattern with the modality it implies.
type Rule struct {
	Pattern  *regexp.Regexp
	Modality Modality
}

// DefaultRules matches the raw and processed value files the kernel IIO
// subsystem exposes for temperature, pressure and humidity channels.
var DefaultRules = []Rule{
	{regexp.MustCompile(`^in_temp\d*_(input|raw)$`), ModalityTemperature},
	{regexp.MustCompile(`^in_pressure\d*_(input|raw)$`), ModalityPressure},
	{regexp.MustCompile(`^in_humidity\d*_(input|raw)$`), ModalityHumidity},
}

// ChannelPath is one discovered channel value file plus its modality.
type ChannelPath struct {
	Path     string
	Modality Modality
}

// The IIO device directory is a shallow tree of symlinks into the real
// device hierarchy; a small depth bound is enough and guards against
// symlink loops.
const maxScanDepth = 6

// Scanner walks a sysfs-style hardware tree and collects channel value
// files matching the configured rules.
type Scanner struct {
	root  string
	rules []Rule
}

// NewScanner returns a Scanner over root. A nil rules slice selects
// DefaultRules.
func NewScanner(root string, rules []Rule) *Scanner {
	if rules == nil {
		rules = DefaultRules
	}
	return &Scanner{root: root, rules: rules}
}

// Scan returns every channel file under the root matching one of the rules.
// The result is unordered and may be empty; an empty result is not an error.
// Unreadable subdirectories are skipped.
func (s *Scanner) Scan() ([]ChannelPath, error) {
	var channels []ChannelPath
	for _, rule := range s.rules {
		paths, err := findFiles(s.root, rule.Pattern, maxScanDepth)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			channels = append(channels, ChannelPath{Path: p, Modality: rule.Modality})
		}
	}
	return channels, nil
}

// findFiles recursively collects files whose base name matches pattern,
// following directory symlinks up to the given depth.
func findFiles(dir string, pattern *regexp.Regexp, depth int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var found []string
	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())

		// Stat (not Lstat) so that symlinked device directories are
		// traversed like real ones.
		info, err := os.Stat(full)
		if err != nil {
			continue
		}

		if info.IsDir() {
			if depth == 0 {
				continue
			}
			sub, err := findFiles(full, pattern, depth-1)
			if err != nil {
				continue
			}
			found = append(found, sub...)
			continue
		}

		if pattern.MatchString(entry.Name()) {
			found = append(found, full)
		}
	}
	return found, nil
}
