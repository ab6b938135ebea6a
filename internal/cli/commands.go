package cli

import (
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Execute runs the root command and exits with a non-zero status on failure.
// This is called by main.main().
func Execute() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		jsonOutput, _ := cmd.PersistentFlags().GetBool("json")
		if jsonOutput {
			printJSON(os.Stdout, map[string]string{
				"error": err.Error(),
			})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// printJSON prints the given value as indented JSON
func printJSON(w io.Writer, data any) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(jsonData))
	return err
}
