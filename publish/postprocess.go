package publish

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/teranos/redpen/errors"
	"go.uber.org/zap"
)

// runPostProcess runs the configured command inside dir. The command line is
// split with shell quoting rules but never passed through a shell.
func runPostProcess(ctx context.Context, cmdline, dir string, timeout time.Duration, inj Injections, log *zap.SugaredLogger) error {
	args, err := shellquote.Split(cmdline)
	if err != nil {
		return errors.Wrapf(err, "invalid post-process command %q", cmdline)
	}
	if len(args) == 0 {
		return nil
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"REDPEN_STAGING_DIR="+dir,
		"REDPEN_API_BASE_URL="+inj.APIBaseURL,
	)
	out := &lineLogger{logger: log, name: args[0]}
	cmd.Stdout = out
	cmd.Stderr = out
	// Grandchildren may hold the output pipes open after a kill
	cmd.WaitDelay = time.Second

	start := time.Now()
	err = cmd.Run()
	out.flush()
	if ctx.Err() == context.DeadlineExceeded {
		return errors.Newf("post-process command timed out after %s", timeout)
	}
	if err != nil {
		return errors.Wrapf(err, "post-process command %s failed", args[0])
	}

	log.Debugw("Post-process command finished", "command", args[0], "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// lineLogger forwards subprocess output to the logger one line at a time.
type lineLogger struct {
	logger *zap.SugaredLogger
	name   string

	mu  sync.Mutex
	buf strings.Builder
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf.Write(p)
	for {
		line, rest, found := strings.Cut(l.buf.String(), "\n")
		if !found {
			break
		}
		l.buf.Reset()
		l.buf.WriteString(rest)
		l.emit(line)
	}
	return len(p), nil
}

func (l *lineLogger) flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.emit(l.buf.String())
	l.buf.Reset()
}

func (l *lineLogger) emit(line string) {
	if line = strings.TrimSpace(line); line != "" {
		l.logger.Infow("Post-process output", "command", l.name, "message", line)
	}
}
