package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

var stdout io.Writer = os.Stdout

func writeJSON(payload any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(stdout, format, args...)
	return err
}
