package middleware

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"tnctl/constants"

	"go.uber.org/zap"
)

// Runner runs a command and returns stdout and stderr interleaved. A non-zero exit
// is reported as an *ExitError, with the output still returned.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type ExitError struct {
	Status int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Status)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, &ExitError{Status: exitErr.ExitCode()}
	}

	return out, err
}

// Midclt calls middlewared by running "midclt call" on the local host
type Midclt struct {
	runner Runner
	logger *zap.SugaredLogger
}

// NewMidclt fails straight away if midclt isn't on PATH, rather than on the first call
func NewMidclt(logger *zap.SugaredLogger) (*Midclt, error) {
	if _, err := exec.LookPath(constants.MidcltCmd); err != nil {
		return nil, fmt.Errorf("can't find command %s: %w", constants.MidcltCmd, err)
	}

	return NewMidcltWithRunner(execRunner{}, logger), nil
}

func NewMidcltWithRunner(r Runner, logger *zap.SugaredLogger) *Midclt {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Midclt{runner: r, logger: logger}
}

// midclt prints failures as "[ERRNAME] reason"
var errnameRe = regexp.MustCompile(`^\[([A-Z0-9_]+)\]\s*`)

func (m *Midclt) run(ctx context.Context, opts []string, method string, args []any) (string, error) {
	cmdArgs := append([]string{"call"}, opts...)
	cmdArgs = append(cmdArgs, method)

	for _, arg := range args {
		b, err := json.Marshal(arg)

		if err != nil {
			return "", fmt.Errorf("failed to encode argument for %s: %w", method, err)
		}

		cmdArgs = append(cmdArgs, string(b))
	}

	m.logger.Debugw("Running midclt", zap.Strings("args", cmdArgs))

	out, err := m.runner.Run(ctx, constants.MidcltCmd, cmdArgs...)

	if err != nil {
		var exitErr *ExitError
		if !errors.As(err, &exitErr) {
			return "", fmt.Errorf("failed to run %s: %w", constants.MidcltCmd, err)
		}

		output := strings.TrimSpace(string(out))

		if strings.HasPrefix(output, "[ENOMETHOD]") {
			return "", &MethodNotFoundError{Method: method, Message: output}
		}

		callErr := &CallError{
			Method:     method,
			Reason:     output,
			ExitStatus: exitErr.Status,
		}

		if match := errnameRe.FindStringSubmatch(output); match != nil {
			callErr.Errname = match[1]
			callErr.Reason = strings.TrimSpace(output[len(match[0]):])
		}

		return "", callErr
	}

	return string(out), nil
}

// Some methods print True or False, which isn't JSON
func parseOutput(method, out string) (any, error) {
	out = strings.TrimSpace(out)

	if out == "True" || out == "False" {
		out = strings.ToLower(out)
	}

	var v any
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		return nil, fmt.Errorf("can't parse %s output for %s: %q: %w", constants.MidcltCmd, method, out, err)
	}

	return v, nil
}

func (m *Midclt) Call(ctx context.Context, method string, args ...any) (any, error) {
	out, err := m.run(ctx, nil, method, args)

	if err != nil {
		return nil, err
	}

	return parseOutput(method, out)
}

func (m *Midclt) CallString(ctx context.Context, method string, args ...any) (string, error) {
	out, err := m.run(ctx, nil, method, args)

	if err != nil {
		return "", err
	}

	return strings.TrimRight(out, " \t\r\n"), nil
}

// Job runs method with "-job -jp description". midclt prints progress lines while the
// job runs and the JSON result on the last line.
func (m *Midclt) Job(ctx context.Context, method string, args ...any) (any, error) {
	out, err := m.run(ctx, []string{"-job", "-jp", "description"}, method, args)

	if err != nil {
		return nil, err
	}

	lines := strings.Split(strings.TrimRight(out, " \t\r\n"), "\n")

	for _, line := range lines[:len(lines)-1] {
		m.logger.Debugw("Job progress", zap.String("method", method), zap.String("line", line))
	}

	last := lines[len(lines)-1]

	if strings.TrimSpace(last) == "" {
		return nil, fmt.Errorf("%s printed nothing for job %s", constants.MidcltCmd, method)
	}

	return parseOutput(method, last)
}

func (m *Midclt) Close() error {
	return nil
}
