// Package flagx lets several independent flag sets share one command line.
// Each consumer picks out only the flags it owns, so configuration flags and
// subcommands can be mixed freely.
package flagx

import (
	"flag"
	"strings"
)

// ConfigFlags are the flags that name a JSON configuration file.
var ConfigFlags = []string{"-c", "-config"}

func index(flags []string) map[string]struct{} {
	m := make(map[string]struct{}, len(flags))
	for _, f := range flags {
		m[f] = struct{}{}
	}
	return m
}

// takesValue reports whether args[i] is a separate value for the flag
// preceding it.
func takesValue(args []string, i int) bool {
	return i < len(args) && !strings.HasPrefix(args[i], "-")
}

// FilterArgs keeps only the flags listed in allowed together with their
// values. Both "-f value" and "-f=value" forms are recognised; a value is
// never taken from a token that itself starts with "-".
func FilterArgs(args []string, allowed []string) []string {
	known := index(allowed)
	out := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if _, hit := known[name]; hit {
				out = append(out, arg)
			}
			continue
		}

		if _, hit := known[arg]; !hit {
			continue
		}
		out = append(out, arg)
		if takesValue(args, i+1) {
			out = append(out, args[i+1])
			i++
		}
	}

	return out
}

// Positional returns the arguments that are neither flags nor values of
// the flags in valueFlags, in their original order.
func Positional(args []string, valueFlags []string) []string {
	known := index(valueFlags)
	var out []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			out = append(out, arg)
			continue
		}
		if strings.Contains(arg, "=") {
			continue
		}
		if _, hit := known[arg]; hit && takesValue(args, i+1) {
			i++
		}
	}

	return out
}

// ConfigPath extracts the configuration file given by -c or -config.
// The last occurrence wins; an empty string means none was given.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "Path to config file")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, ConfigFlags))

	return path
}
