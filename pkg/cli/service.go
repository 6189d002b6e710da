package cli

import (
	"github.com/m-mizutani/gitdub/pkg/cli/config"
	"github.com/m-mizutani/gitdub/pkg/domain/interfaces"
	"github.com/m-mizutani/gitdub/pkg/domain/model"
	"github.com/m-mizutani/gitdub/pkg/infra/mirror"
	"github.com/m-mizutani/gitdub/pkg/infra/notifier"
	"github.com/m-mizutani/gitdub/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
)

// service is the dispatcher wired from a loaded configuration file
type service struct {
	matcher  *usecase.Matcher
	dispatch interfaces.DispatchUseCase

	// executables must be resolvable in $PATH before serving
	executables []string
}

func newService(cfg *model.Config, runner interfaces.CommandRunner) (*service, error) {
	rules, err := config.Rules(cfg)
	if err != nil {
		return nil, err
	}
	matcher := usecase.NewMatcher(cfg.Notifier, rules)

	kinds, err := matcher.Kinds()
	if err != nil {
		return nil, err
	}

	mirrors, err := mirror.New(runner, cfg.GitDub.Directory,
		mirror.WithGitBinary(cfg.Git.Binary),
		mirror.WithHost(cfg.Git.Host),
	)
	if err != nil {
		return nil, err
	}

	svc := &service{
		matcher:     matcher,
		executables: []string{cfg.Git.Binary},
	}
	opts := []usecase.DispatchOption{
		usecase.WithSilentInit(cfg.GitDub.SilentInit),
	}

	for _, kind := range kinds {
		switch kind {
		case model.BackendGitNotifier:
			n := notifier.NewGitNotifier(runner,
				notifier.WithBinary(cfg.GitNotifier.Binary),
				notifier.WithLogFile(cfg.GitNotifier.LogFile),
			)
			opts = append(opts, usecase.WithNotifier(n))
			svc.executables = append(svc.executables, n.Executable())

		case model.BackendGitCommitNotifier:
			gcn := cfg.GitCommitNotifier
			n, err := notifier.NewGitCommitNotifier(runner, gcn.Script, gcn.Home, gcn.Wrapper)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to configure git-commit-notifier")
			}
			opts = append(opts, usecase.WithNotifier(n))
			svc.executables = append(svc.executables, n.Executable())
		}
	}

	svc.dispatch = usecase.NewDispatch(matcher, mirrors, opts...)
	return svc, nil
}
