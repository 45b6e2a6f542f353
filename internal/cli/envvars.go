package cli

import (
	"flag"
	"fmt"
	"strings"
)

// FileFlag is implemented by flags whose value is a file that provides the values of other flags, e.g. a configuration file.
// File flags are applied before any other flag or environment variable so that those override the file's values.
type FileFlag interface {
	IsFileFlag() bool
}

// ParseFlagsWithEnvVars parses the given arguments after applying the environment variables as flag defaults.
// The environment variable of a flag is its name in upper case, prefixed with envVarPrefix, with dashes replaced by underscores.
// Values are applied in the following order: file flags (argument, else environment variable), environment variables, arguments.
// Unknown environment variables with the given prefix are rejected.
// A log level flag is added to the flag set.
func ParseFlagsWithEnvVars(flags *flag.FlagSet, envVarPrefix string, args, environ []string) error {
	addLogLevelFlag(flags)

	env := make(map[string]string, len(environ))
	for _, entry := range environ {
		kv := strings.SplitN(entry, "=", 2)
		if len(kv) == 2 {
			env[kv[0]] = kv[1]
		}
	}

	supportedEnvVars := map[string]struct{}{}
	flags.VisitAll(func(f *flag.Flag) {
		envVarName := EnvVarName(envVarPrefix, f.Name)
		f.Usage = fmt.Sprintf("%s (%s)", f.Usage, envVarName)
		supportedEnvVars[envVarName] = struct{}{}
	})

	for name := range env {
		if strings.HasPrefix(name, envVarPrefix) {
			if _, ok := supportedEnvVars[name]; !ok {
				return fmt.Errorf("unsupported environment variable provided: %s", name)
			}
		}
	}

	explicit, positional, err := scanArgs(flags, args)
	if err != nil {
		return err
	}

	for _, fileFlags := range []bool{true, false} {
		flags.VisitAll(func(f *flag.Flag) {
			if err == nil && isFileFlag(f) == fileFlags {
				err = applyFlag(flags, f, EnvVarName(envVarPrefix, f.Name), env[EnvVarName(envVarPrefix, f.Name)], explicit[f.Name])
			}
		})

		if err != nil {
			return err
		}
	}

	if len(positional) == 0 {
		return flags.Parse(nil)
	}

	// Only the positional arguments are left, "--" stops them from being parsed as flags.
	return flags.Parse(append([]string{"--"}, positional...))
}

func applyFlag(flags *flag.FlagSet, f *flag.Flag, envVarName, envVarValue string, values []string) error {
	if envVarValue != "" {
		f.DefValue = envVarValue

		if len(values) == 0 {
			err := f.Value.Set(envVarValue)
			if err != nil {
				return fmt.Errorf("invalid environment variable %s value %q provided: %w", envVarName, envVarValue, err)
			}
		}
	}

	for _, v := range values {
		err := flags.Set(f.Name, v)
		if err != nil {
			return fmt.Errorf("invalid value %q for flag -%s: %w", v, f.Name, err)
		}
	}

	return nil
}

// scanArgs parses the arguments without applying them and returns the values per flag name and the positional arguments.
func scanArgs(flags *flag.FlagSet, args []string) (map[string][]string, []string, error) {
	values := map[string][]string{}
	scan := flag.NewFlagSet(flags.Name(), flags.ErrorHandling())
	scan.SetOutput(flags.Output())
	scan.Usage = flags.Usage

	flags.VisitAll(func(f *flag.Flag) {
		scan.Var(&argRecorder{name: f.Name, boolFlag: isBoolFlag(f), values: values}, f.Name, f.Usage)
	})

	err := scan.Parse(args)
	if err != nil {
		return nil, nil, err
	}

	return values, scan.Args(), nil
}

type argRecorder struct {
	name     string
	boolFlag bool
	values   map[string][]string
}

func (r *argRecorder) Set(v string) error {
	r.values[r.name] = append(r.values[r.name], v)
	return nil
}

func (r *argRecorder) String() string {
	return ""
}

func (r *argRecorder) IsBoolFlag() bool {
	return r.boolFlag
}

func isBoolFlag(f *flag.Flag) bool {
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

func isFileFlag(f *flag.Flag) bool {
	ff, ok := f.Value.(FileFlag)
	return ok && ff.IsFileFlag()
}

func EnvVarName(prefix, flagName string) string {
	return prefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}
