package notifier_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/m-mizutani/gitdub/pkg/domain/model"
	"github.com/m-mizutani/gitdub/pkg/infra/notifier"
	"github.com/m-mizutani/gt"
)

type mockRunner struct {
	calls  []*model.Command
	result *model.CommandResult
	err    error
}

func (m *mockRunner) Run(ctx context.Context, cmd *model.Command) (*model.CommandResult, error) {
	m.calls = append(m.calls, cmd)
	if m.result == nil {
		return &model.CommandResult{}, m.err
	}
	return m.result, m.err
}

var testPaths = &model.MirrorPaths{
	Checkout: "/srv/gitdub/acme/widgets",
	Bare:     "/srv/gitdub/acme/widgets_bare",
}

func TestGitNotifier_Args(t *testing.T) {
	n := notifier.NewGitNotifier(&mockRunner{}, notifier.WithLogFile("/tmp/notifier.log"))

	tests := []struct {
		name string
		opts *model.NotifierOptions
		want []string
	}{
		{
			name: "renames keys and joins recipients",
			opts: &model.NotifierOptions{
				Values: map[string]any{
					"from":    "git@example.com",
					"to":      []any{"dev@example.com", "ops@example.com"},
					"subject": "[widgets]",
				},
			},
			want: []string{
				"--emailprefix", "[widgets]",
				"--mailinglist", "dev@example.com,ops@example.com",
				"--sender", "git@example.com",
				"--log", "/tmp/notifier.log",
			},
		},
		{
			name: "booleans are bare flags and falsy values are omitted",
			opts: &model.NotifierOptions{
				Values: map[string]any{
					"ignoremerge": true,
					"debug":       false,
					"manualrange": nil,
					"maxdiffsize": 10000,
				},
			},
			want: []string{
				"--ignoremerge",
				"--maxdiffsize", "10000",
				"--log", "/tmp/notifier.log",
			},
		},
		{
			name: "link and update-only flag",
			opts: &model.NotifierOptions{
				Values:     map[string]any{"to": "dev@example.com"},
				Link:       "https://github.com/acme/widgets/compare/a...b",
				UpdateOnly: true,
			},
			want: []string{
				"--link", "https://github.com/acme/widgets/compare/a...b",
				"--mailinglist", "dev@example.com",
				"--updateonly",
				"--log", "/tmp/notifier.log",
			},
		},
		{
			name: "log destination is always appended",
			opts: &model.NotifierOptions{},
			want: []string{"--log", "/tmp/notifier.log"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, n.Args(tt.opts)).Equal(tt.want)
		})
	}
}

func TestGitNotifier_Notify(t *testing.T) {
	ctx := context.Background()

	wd, err := os.Getwd()
	gt.NoError(t, err)

	t.Run("runs in bare mirror", func(t *testing.T) {
		runner := &mockRunner{}
		n := notifier.NewGitNotifier(runner, notifier.WithBinary("/usr/local/bin/git-notifier"))

		gt.NoError(t, n.Notify(ctx, testPaths, &model.NotifierOptions{}))
		gt.A(t, runner.calls).Length(1)
		gt.Value(t, runner.calls[0].Name).Equal("/usr/local/bin/git-notifier")
		gt.Value(t, runner.calls[0].Dir).Equal(testPaths.Bare)
		gt.Value(t, runner.calls[0].Args).Equal([]string{"--log", notifier.DefaultGitNotifierLog})
	})

	t.Run("failure is reported as notifier error", func(t *testing.T) {
		runner := &mockRunner{
			result: &model.CommandResult{Stderr: []byte("boom")},
			err:    errors.New("exit status 1"),
		}
		n := notifier.NewGitNotifier(runner)

		err := n.Notify(ctx, testPaths, &model.NotifierOptions{})
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrNotifierFailed))
	})

	after, err := os.Getwd()
	gt.NoError(t, err)
	gt.Value(t, after).Equal(wd)
}

func TestGitNotifier_MarkerPath(t *testing.T) {
	n := notifier.NewGitNotifier(&mockRunner{})
	gt.Value(t, n.MarkerPath(testPaths)).Equal("/srv/gitdub/acme/widgets_bare/.git-notifier.dat")
	gt.Value(t, n.Kind()).Equal(model.BackendGitNotifier)
	gt.Value(t, n.Executable()).Equal("git-notifier")
}

func TestNewGitCommitNotifier_RequiresConfig(t *testing.T) {
	_, err := notifier.NewGitCommitNotifier(&mockRunner{}, "", "/opt/gcn", nil)
	gt.Error(t, err)

	_, err = notifier.NewGitCommitNotifier(&mockRunner{}, "notify.rb", "", nil)
	gt.Error(t, err)
}

func TestGitCommitNotifier_Command(t *testing.T) {
	n, err := notifier.NewGitCommitNotifier(&mockRunner{}, "notify.rb", "/opt/gcn", nil)
	gt.NoError(t, err)

	opts := &model.NotifierOptions{
		Before: "aaaa111",
		After:  "bbbb222",
		Ref:    "refs/heads/main",
	}

	t.Run("positional arguments under wrapper", func(t *testing.T) {
		cmd := n.Command(testPaths, opts)
		gt.Value(t, cmd.Name).Equal("bundle")
		gt.Value(t, cmd.Args).Equal([]string{
			"exec", "notify.rb", testPaths.Checkout, "aaaa111", "bbbb222", "refs/heads/main",
		})
		gt.Value(t, cmd.Dir).Equal("/opt/gcn")
		gt.Value(t, cmd.Env).Equal([]string{notifier.HomeEnv + "=/opt/gcn"})
	})

	t.Run("update-only collapses the range", func(t *testing.T) {
		bootstrap := *opts
		bootstrap.UpdateOnly = true
		cmd := n.Command(testPaths, &bootstrap)
		gt.Value(t, cmd.Args[3:]).Equal([]string{"bbbb222", "bbbb222", "refs/heads/main"})
	})

	t.Run("empty wrapper runs script directly", func(t *testing.T) {
		direct, err := notifier.NewGitCommitNotifier(&mockRunner{}, "/opt/gcn/notify.rb", "/opt/gcn", []string{})
		gt.NoError(t, err)
		cmd := direct.Command(testPaths, opts)
		gt.Value(t, cmd.Name).Equal("/opt/gcn/notify.rb")
		gt.A(t, cmd.Args).Length(4)
		gt.Value(t, direct.Executable()).Equal("/opt/gcn/notify.rb")
	})

	t.Run("executable is the wrapper", func(t *testing.T) {
		gt.Value(t, n.Executable()).Equal("bundle")
	})
}

func TestGitCommitNotifier_Notify(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		runner := &mockRunner{result: &model.CommandResult{Stdout: []byte("sent 2 mails")}}
		n, err := notifier.NewGitCommitNotifier(runner, "notify.rb", "/opt/gcn", nil)
		gt.NoError(t, err)

		gt.NoError(t, n.Notify(ctx, testPaths, &model.NotifierOptions{After: "bbbb222"}))
		gt.A(t, runner.calls).Length(1)
	})

	t.Run("non-zero exit", func(t *testing.T) {
		runner := &mockRunner{err: errors.New("exit status 1")}
		n, err := notifier.NewGitCommitNotifier(runner, "notify.rb", "/opt/gcn", nil)
		gt.NoError(t, err)

		err = n.Notify(ctx, testPaths, &model.NotifierOptions{})
		gt.True(t, errors.Is(err, model.ErrNotifierFailed))
	})

	n, err := notifier.NewGitCommitNotifier(&mockRunner{}, "notify.rb", "/opt/gcn", nil)
	gt.NoError(t, err)
	gt.Value(t, n.MarkerPath(testPaths)).Equal("/srv/gitdub/acme/widgets/.git-commit-notifier.dat")
}
