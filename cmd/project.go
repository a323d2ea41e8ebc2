package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jywlabs/scriptwiz/internal/catalog"
	"github.com/jywlabs/scriptwiz/internal/config"
	"github.com/jywlabs/scriptwiz/internal/display"
	"github.com/jywlabs/scriptwiz/internal/llm"
	"github.com/jywlabs/scriptwiz/internal/pipeline"
	"github.com/jywlabs/scriptwiz/internal/session"
	"github.com/jywlabs/scriptwiz/internal/storage"
	"github.com/jywlabs/scriptwiz/internal/template"
)

// catalogs is shared by every command run in this process.
var catalogs = catalog.NewLoader()

// project is everything a stage command needs: configuration, the stored
// session and a wizard bound to the prompt catalog.
type project struct {
	dir     string
	cfg     *config.Config
	store   storage.Store
	invoker llm.Invoker
	wizard  *pipeline.Wizard
	sess    *session.Session
	display *display.Display

	logCloser io.Closer
}

func openProject(cmd *cobra.Command) (*project, error) {
	dir := dirFlag
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s not found. Run 'scriptwiz init' first", dir)
	}
	if err := storage.ValidateID(sessionFlag); err != nil {
		return nil, err
	}

	if err := config.LoadEnv(dir); err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	closer, err := config.SetupLogging(cfg.Log, verboseFlag)
	if err != nil {
		return nil, err
	}

	p := &project{dir: dir, cfg: cfg, logCloser: closer}
	out := cmd.OutOrStdout()
	p.display = display.New(out, out == os.Stdout && display.IsTerminal())

	c, err := catalogs.Load(cfg.PromptsPath(dir))
	if err != nil {
		p.close()
		return nil, err
	}

	engine := "openai"
	if dryRunFlag {
		engine = "dryrun"
	}
	p.invoker, err = llm.New(engine, llm.Config{Timeout: cfg.LLMTimeout})
	if err != nil {
		p.close()
		return nil, err
	}
	p.wizard = pipeline.New(c, p.invoker, cfg)

	ctx := cmd.Context()
	p.store, err = storage.Open(ctx, storage.Options{Backend: cfg.Storage.Backend, DSN: cfg.Storage.DSN, Dir: dir})
	if err != nil {
		p.close()
		return nil, err
	}
	p.sess, err = storage.LoadOrNew(ctx, p.store, sessionFlag)
	if err != nil {
		p.close()
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"session": p.sess.ID,
		"storage": cfg.Storage.Backend,
		"engine":  engine,
	}).Debug("project opened")
	return p, nil
}

func (p *project) save(ctx context.Context) error {
	if err := p.store.Save(ctx, p.sess); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (p *project) close() {
	if p.store != nil {
		p.store.Close()
	}
	if p.logCloser != nil {
		p.logCloser.Close()
	}
}

// withProject opens the project, runs fn and always saves the session, so a
// failed call still leaves its recorded request behind.
func withProject(fn func(cmd *cobra.Command, p *project, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		p, err := openProject(cmd)
		if err != nil {
			return err
		}
		defer p.close()

		runErr := fn(cmd, p, args)
		if err := p.save(context.WithoutCancel(cmd.Context())); err != nil && runErr == nil {
			runErr = err
		}
		return runErr
	}
}

// run shows a spinner around a stage operation and reports its notices,
// warnings and token usage.
func (p *project) run(msg string, op func() (*pipeline.Result, error)) (*pipeline.Result, error) {
	p.display.StartSpinner(msg)
	res, err := op()
	p.display.StopSpinner()
	if err != nil {
		return nil, p.explain(err)
	}
	p.report(res)
	return res, nil
}

func (p *project) report(res *pipeline.Result) {
	for _, n := range res.Notices {
		p.display.ShowNotice("%s", n)
	}
	for _, w := range res.Warnings {
		p.display.ShowWarning("%s", w)
	}
	if res.Model != "" {
		p.display.ShowUsage(res.Model, res.Usage, res.Duration)
	}
}

// explain shows provider failures with their user-facing wording.
func (p *project) explain(err error) error {
	var le *llm.Error
	if errors.As(err, &le) {
		p.display.ShowError(llm.UserMessage(err))
	}
	return err
}

func (p *project) showNext(stages []pipeline.Stage) {
	if len(stages) == 0 {
		return
	}
	cmds := make([]string, len(stages))
	for i, s := range stages {
		cmds[i] = s.Command()
	}
	p.display.ShowInfo("\nNext: %s\n", strings.Join(cmds, "  or  "))
}

// writeExport writes data to path, or to the project's exports directory when
// path is empty.
func (p *project) writeExport(path, name string, data []byte) (string, error) {
	if path == "" {
		path = filepath.Join(p.dir, template.ExportsDir, name)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// readText returns the text given as arguments, read from file, or read from
// stdin when neither is given.
func readText(cmd *cobra.Command, args []string, file string) (string, error) {
	switch {
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		return string(data), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

// confirmCmd builds the "confirm" subcommand of a stage.
func confirmCmd(stage pipeline.Stage) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm",
		Short: fmt.Sprintf("Mark the %s as reviewed", strings.ToLower(stage.Title())),
		Args:  cobra.NoArgs,
		RunE: withProject(func(cmd *cobra.Command, p *project, args []string) error {
			res, err := p.wizard.Confirm(p.sess, stage)
			if err != nil {
				return err
			}
			p.display.ShowSuccess("%s confirmed", stage.Title())
			p.showNext(res.Next)
			return nil
		}),
	}
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
