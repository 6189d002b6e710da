package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/fatih/color"
	"github.com/m-mizutani/gitdub/pkg/cli/config"
	"github.com/m-mizutani/gitdub/pkg/domain/model"
	"github.com/m-mizutani/gitdub/pkg/infra/command"
	"github.com/m-mizutani/gitdub/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdCheck() *cli.Command {
	var fileCfg config.File

	return &cli.Command{
		Name:      "check",
		Usage:     "Validate the config file and show which rule each repository hits",
		ArgsUsage: "[owner/repo ...]",
		Flags:     fileCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := fileCfg.Load()
			if err != nil {
				return err
			}

			svc, err := newService(cfg, command.New())
			if err != nil {
				return err
			}

			return runCheck(os.Stdout, svc.matcher, c.Args().Slice())
		},
	}
}

var (
	checkOK    = color.New(color.FgGreen).SprintFunc()
	checkNG    = color.New(color.FgRed).SprintFunc()
	checkLabel = color.New(color.Bold).SprintFunc()
)

// runCheck lists the rules, then reports the rule and options each name resolves to
func runCheck(w io.Writer, matcher *usecase.Matcher, names []string) error {
	fmt.Fprintln(w, checkLabel("Rules (first match wins):"))
	for i, rule := range matcher.Rules() {
		fmt.Fprintf(w, "  %d. %s\n", i+1, rule.ID)
	}

	var unmatched []string
	for _, name := range names {
		m, err := matcher.Match(name)
		switch {
		case errors.Is(err, model.ErrNoMatchingRepository):
			fmt.Fprintf(w, "%s %s: no matching rule\n", checkNG("NG"), name)
			unmatched = append(unmatched, name)
			continue
		case err != nil:
			fmt.Fprintf(w, "%s %s: %v\n", checkNG("NG"), name, err)
			unmatched = append(unmatched, name)
			continue
		}

		fmt.Fprintf(w, "%s %s -> %s (%s)\n", checkOK("OK"), name, m.Rule.ID, m.Kind)
		for _, key := range slices.Sorted(maps.Keys(m.Values)) {
			fmt.Fprintf(w, "     %s: %v\n", key, m.Values[key])
		}
	}

	if len(unmatched) > 0 {
		return goerr.New("some repositories do not match any rule", goerr.V("repositories", unmatched))
	}
	return nil
}
