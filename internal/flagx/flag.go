// Package flagx lets several components share os.Args, each parsing only the
// flags it owns with its own flag.FlagSet.
package flagx

import (
	"flag"
	"strings"
)

// name returns the flag name of arg without dashes or an inline value, and
// whether arg looks like a flag at all.
func name(arg string) (string, bool) {
	if !strings.HasPrefix(arg, "-") || arg == "-" || arg == "--" {
		return "", false
	}
	n := strings.TrimLeft(arg, "-")
	n, _, _ = strings.Cut(n, "=")
	return n, n != ""
}

// FilterArgs keeps the flags in allowed together with their values and drops
// everything else. As with package flag, "-x" and "--x" name the same flag,
// so allowed may list either form.
//
// A value is taken from "-x=v" or from the next argument when that argument
// does not itself start with a dash. The result is never nil.
func FilterArgs(args []string, allowed []string) []string {
	keep := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		if n, ok := name(a); ok {
			keep[n] = struct{}{}
		}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		n, ok := name(arg)
		if !ok {
			continue
		}
		if _, ok := keep[n]; !ok {
			continue
		}

		filtered = append(filtered, arg)
		if strings.Contains(arg, "=") {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}
	return filtered
}

// ConfigPath returns the value of -c/-config in args, or "" when neither is
// present. The last occurrence wins.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	return path
}
