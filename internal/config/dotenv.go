package config

import (
	"bufio"
	"bytes"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// loadDotEnvFile applies KEY=VALUE pairs from path without overriding
// anything getenv already reports. Lines that are not assignments are
// skipped and empty values are ignored.
func loadDotEnvFile(path string, setenv func(string, string) error, getenv func(string) string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var kept bytes.Buffer
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || !strings.Contains(line, "=") {
			continue
		}
		kept.WriteString(line)
		kept.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return err
	}

	vars, err := godotenv.Unmarshal(kept.String())
	if err != nil {
		return err
	}
	for k, v := range vars {
		if v == "" || getenv(k) != "" {
			continue
		}
		if err := setenv(k, v); err != nil {
			return err
		}
	}
	return nil
}
