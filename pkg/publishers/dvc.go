package publishers

import (
	"context"
	"fmt"
	"strings"
)

// dvcPublisher tracks the output file with DVC and pushes it to the remote.
type dvcPublisher struct {
	id      string
	workDir string
	remote  string
	runner  CommandRunner
	log     Logger
}

func newDVCPublisher(runner CommandRunner) Builder {
	return func(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
		if runner == nil {
			runner = ExecRunner{}
		}
		p := &dvcPublisher{id: cfg.ID, runner: runner, log: ensureLogger(log)}
		if cfg.DVC != nil {
			p.workDir = cfg.DVC.WorkDir
			p.remote = cfg.DVC.Remote
		}
		return p, nil
	}
}

func (d *dvcPublisher) ID() string   { return d.id }
func (d *dvcPublisher) Type() string { return TypeDVC }

// Publish runs `dvc add <output>` then `dvc push`; the first failing command stops it.
func (d *dvcPublisher) Publish(ctx context.Context, evt Event) (string, error) {
	if strings.TrimSpace(evt.OutputPath) == "" {
		return "", fmt.Errorf("dvc publisher %q: event has no output path", d.id)
	}

	output := relativeTo(d.workDir, evt.OutputPath)
	if _, err := d.runner.Run(ctx, d.workDir, "dvc", "add", output); err != nil {
		return "", err
	}

	pushArgs := []string{"push"}
	if d.remote != "" {
		pushArgs = append(pushArgs, "-r", d.remote)
	}
	if _, err := d.runner.Run(ctx, d.workDir, "dvc", pushArgs...); err != nil {
		return "", err
	}

	d.log.DebugObj("dvc publisher pushed output", "publisher_dvc", map[string]any{
		"publisher_id": d.id,
		"output_path":  output,
	})
	return fmt.Sprintf("tracked and pushed %s", output), nil
}
