package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	revbrief "github.com/alnah/go-revbrief"
)

// runNormalize prints the normalized markup for a brief file, or for stdin
// when no file (or "-") is given.
func runNormalize(args []string, env *Environment) error {
	_, positional, err := parseCommonOnly("normalize", args)
	if err != nil {
		return err
	}
	if len(positional) > 1 {
		return fmt.Errorf("%w: normalize takes at most one file", ErrUsage)
	}

	var raw []byte
	if len(positional) == 0 || positional[0] == "-" {
		raw, err = io.ReadAll(env.Stdin)
	} else {
		raw, err = os.ReadFile(positional[0]) // #nosec G304 -- user-provided path
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReadBrief, err)
	}

	out := revbrief.Normalize(string(raw))
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	_, err = io.WriteString(env.Stdout, out)
	return err
}
