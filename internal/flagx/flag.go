// Package flagx holds small helpers for layering command-line flags over
// defaults and JSON config files. Each config layer parses only the flags
// it owns, so one binary's flags never trip another layer's parser.
package flagx

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// FilterArgs keeps the arguments that belong to allowedFlags and drops
// everything else. A kept flag takes its value either inline ("-c=x.json")
// or from the next argument when that argument does not start with "-".
// The result is never nil.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; !ok {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// ConfigPath returns the JSON config path given with -c or -config in args,
// or "" when neither is present. The last occurrence wins.
func ConfigPath(args []string) string {
	var config string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	return config
}

// JsonConfigFlags is ConfigPath over os.Args.
func JsonConfigFlags() string {
	return ConfigPath(os.Args[1:])
}

// seconds is a flag.Value holding a duration written as whole seconds.
type seconds struct {
	d *time.Duration
}

func (s seconds) String() string {
	if s.d == nil {
		return "0"
	}
	return strconv.FormatInt(int64(s.d.Seconds()), 10)
}

func (s seconds) Set(v string) error {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("expected whole seconds: %w", err)
	}
	if n < 0 {
		return fmt.Errorf("negative interval %d", n)
	}
	*s.d = time.Duration(n) * time.Second
	return nil
}

// SecondsVar defines a flag that sets *p from a number of seconds. The
// current value of *p is the default.
func SecondsVar(fs *flag.FlagSet, p *time.Duration, name, usage string) {
	fs.Var(seconds{d: p}, name, usage)
}
