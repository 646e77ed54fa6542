package ffmpeg

import (
	"fmt"
	"strings"

	"github.com/google/shlex"
)

// Options the runner sets itself; overriding them would break input, output
// or progress handling.
var reservedArgs = map[string]bool{
	"-i":        true,
	"-y":        true,
	"-n":        true,
	"-progress": true,
	"-b:a":      true,
}

// SplitCommand securely splits an argument string without involving a shell.
func SplitCommand(command string) ([]string, error) {
	args, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("invalid command syntax: %w", err)
	}
	return args, nil
}

// ValidateExtraArgs rejects reserved options and shell-like metacharacters.
func ValidateExtraArgs(args []string) error {
	for _, arg := range args {
		if reservedArgs[arg] {
			return fmt.Errorf("argument %s is managed by the service", arg)
		}
		if strings.ContainsAny(arg, "|&;`$()<>") {
			return fmt.Errorf("disallowed character found in argument: %s", arg)
		}
	}
	return nil
}
