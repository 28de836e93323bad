package infratest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/driftkit/driftkit/internal/capability"
)

// DefaultRegistry builds the built-in capability backends. The set is
// assembled once at startup; probes themselves run lazily per check.
func DefaultRegistry() *capability.Registry {
	r := capability.NewRegistry()
	r.Register(FileBackend())
	r.Register(PortBackend())
	r.Register(CommandBackend())
	return r
}

// FileBackend probes a file path target.
func FileBackend() *capability.Backend {
	b := capability.NewBackend("file")

	b.Register("exists", capability.Property(func(_ context.Context, target string) (any, error) {
		_, err := os.Stat(target)
		if err != nil {
			if os.IsNotExist(err) {
				return false, nil
			}
			return nil, err
		}
		return true, nil
	}))

	b.Register("is_file", capability.Property(func(_ context.Context, target string) (any, error) {
		info, err := os.Stat(target)
		if err != nil {
			if os.IsNotExist(err) {
				return false, nil
			}
			return nil, err
		}
		return info.Mode().IsRegular(), nil
	}))

	b.Register("is_directory", capability.Property(func(_ context.Context, target string) (any, error) {
		info, err := os.Stat(target)
		if err != nil {
			if os.IsNotExist(err) {
				return false, nil
			}
			return nil, err
		}
		return info.IsDir(), nil
	}))

	b.Register("mode", capability.Property(func(_ context.Context, target string) (any, error) {
		info, err := os.Stat(target)
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("%04o", info.Mode().Perm()), nil
	}))

	b.Register("size", capability.Property(func(_ context.Context, target string) (any, error) {
		info, err := os.Stat(target)
		if err != nil {
			return nil, err
		}
		return info.Size(), nil
	}))

	b.Register("contains", capability.Method(func(_ context.Context, target, parameter string) (any, error) {
		data, err := os.ReadFile(target)
		if err != nil {
			return nil, err
		}
		re, err := regexp.Compile(parameter)
		if err != nil {
			return nil, err
		}
		return re.Match(data), nil
	}))

	return b
}

// PortBackend probes a TCP port target ("8500" or "host:8500").
func PortBackend() *capability.Backend {
	b := capability.NewBackend("port")

	b.Register("is_listening", capability.Property(func(ctx context.Context, target string) (any, error) {
		addr := target
		if !strings.Contains(addr, ":") {
			addr = net.JoinHostPort("127.0.0.1", addr)
		}
		var d net.Dialer
		d.Timeout = 3 * time.Second
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return false, nil
		}
		conn.Close()
		return true, nil
	}))

	return b
}

// CommandBackend probes a shell command target.
func CommandBackend() *capability.Backend {
	b := capability.NewBackend("command")

	b.Register("succeeds", capability.Property(func(ctx context.Context, target string) (any, error) {
		err := exec.CommandContext(ctx, "sh", "-c", target).Run()
		return err == nil, nil
	}))

	b.Register("return_code", capability.Property(func(ctx context.Context, target string) (any, error) {
		err := exec.CommandContext(ctx, "sh", "-c", target).Run()
		if err == nil {
			return 0, nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return nil, err
	}))

	b.Register("stdout", capability.Property(func(ctx context.Context, target string) (any, error) {
		out, err := exec.CommandContext(ctx, "sh", "-c", target).Output()
		if err != nil {
			return nil, err
		}
		return strings.TrimRight(string(out), "\n"), nil
	}))

	b.Register("stdout_matches", capability.Method(func(ctx context.Context, target, parameter string) (any, error) {
		out, err := exec.CommandContext(ctx, "sh", "-c", target).Output()
		if err != nil {
			return nil, err
		}
		re, err := regexp.Compile(parameter)
		if err != nil {
			return nil, err
		}
		return re.Match(out), nil
	}))

	return b
}
