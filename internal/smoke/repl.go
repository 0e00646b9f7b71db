package smoke

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"gemmad/pkg/types"
)

// Interactive reads prompts from in until quit, exit, salir or EOF. Each
// prompt is followed by optional max length and temperature answers. An
// invalid max length skips the temperature question; any invalid number
// makes the request fall back to the defaults.
func (r *Runner) Interactive(ctx context.Context, in io.Reader) error {
	r.printf("interactive mode, type 'quit' to leave\n\n")
	if !r.CheckHealth(ctx) {
		r.printf("[fail] the API is not available\n")
		return ErrUnhealthy
	}
	sc := bufio.NewScanner(in)
	ask := func(label string) (string, bool) {
		r.printf("%s", label)
		if !sc.Scan() {
			return "", false
		}
		return strings.TrimSpace(sc.Text()), true
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		prompt, ok := ask("\nprompt: ")
		if !ok {
			r.printf("\nbye\n")
			return sc.Err()
		}
		switch strings.ToLower(prompt) {
		case "quit", "exit", "salir":
			r.printf("bye\n")
			return nil
		case "":
			r.printf("please enter a non-empty prompt\n")
			continue
		}
		req := types.NewGenerateRequest(prompt)
		ml, ok := ask("max length (default 512): ")
		if !ok {
			r.printf("\nbye\n")
			return sc.Err()
		}
		n, err := parseMaxLength(ml)
		if err == nil {
			var temp string
			if temp, ok = ask("temperature (default 0.7): "); !ok {
				r.printf("\nbye\n")
				return sc.Err()
			}
			var t float64
			if t, err = parseTemperature(temp); err == nil {
				req.MaxLength, req.Temperature = n, t
			}
		}
		if err != nil {
			r.printf("invalid values, using defaults\n")
		}
		_, _ = r.Generate(ctx, req)
	}
}

// parseMaxLength parses the optional max length answer; blank keeps the default.
func parseMaxLength(s string) (int, error) {
	if s == "" {
		return types.DefaultMaxLength, nil
	}
	return strconv.Atoi(s)
}

// parseTemperature parses the optional temperature answer; blank keeps the default.
func parseTemperature(s string) (float64, error) {
	if s == "" {
		return types.DefaultTemperature, nil
	}
	return strconv.ParseFloat(s, 64)
}
