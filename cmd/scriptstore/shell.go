package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/suyash-sneo/scriptstore"
)

const (
	shellPrompt     = "scripts> "
	contentPrompt   = "...> "
	contentTerminus = "."
)

// NewShellCommand creates the shell command.
func NewShellCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Browse and edit scripts interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := rootOpts.load()
			if err != nil {
				return err
			}
			b, err := openBackend(cmd.Context(), cfg, rootOpts.Memory, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          shellPrompt,
				HistoryFile:     historyFile(),
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return err
			}
			defer rl.Close()

			sh := &shell{
				repo: b.repo,
				out:  rl.Stdout(),
				read: func(prompt string) (string, error) {
					rl.SetPrompt(prompt)
					defer rl.SetPrompt(shellPrompt)
					return rl.Readline()
				},
			}
			return sh.run(cmd.Context())
		},
	}
}

func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "scriptstore_history")
}

type shellRepo interface {
	List(ctx context.Context) (map[string]scriptstore.Script, error)
	Get(ctx context.Context, id string) (scriptstore.Script, error)
	Lookup(ctx context.Context, slug string) (scriptstore.Script, error)
	Create(ctx context.Context, in scriptstore.CreateInput) (scriptstore.Script, error)
	Update(ctx context.Context, in scriptstore.UpdateInput) (scriptstore.Script, error)
	Delete(ctx context.Context, id string) error
	Reconcile(ctx context.Context) (scriptstore.ReconcileReport, error)
}

type shell struct {
	repo shellRepo
	out  io.Writer
	read func(prompt string) (string, error)
}

var errQuit = errors.New("quit")

func (s *shell) run(ctx context.Context) error {
	fmt.Fprintln(s.out, `type "help" for commands`)
	for {
		line, err := s.read(shellPrompt)
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.exec(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintln(s.out, "error:", err)
		}
	}
}

func (s *shell) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "help", "?":
		s.help()
		return nil
	case "exit", "quit":
		return errQuit
	case "ls":
		return s.list(ctx)
	case "cat":
		if len(args) != 1 {
			return errors.New("usage: cat <id>")
		}
		sc, err := s.repo.Get(ctx, args[0])
		if err != nil {
			return err
		}
		s.show(sc)
		return nil
	case "find":
		if len(args) != 1 {
			return errors.New("usage: find <name>")
		}
		sc, err := s.repo.Lookup(ctx, scriptstore.Slugify(args[0]))
		if err != nil {
			return err
		}
		s.show(sc)
		return nil
	case "new":
		if len(args) == 0 {
			return errors.New("usage: new <name>")
		}
		content, err := s.readContent()
		if err != nil {
			return err
		}
		sc, err := s.repo.Create(ctx, scriptstore.CreateInput{Name: strings.Join(args, " "), Content: content})
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "created %s (%s)\n", sc.ID, sc.Name)
		return nil
	case "edit":
		if len(args) != 1 {
			return errors.New("usage: edit <id>")
		}
		if _, err := s.repo.Get(ctx, args[0]); err != nil {
			return err
		}
		content, err := s.readContent()
		if err != nil {
			return err
		}
		sc, err := s.repo.Update(ctx, scriptstore.UpdateInput{ID: args[0], Content: content})
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "updated %s at %s\n", sc.ID, sc.Updated.Format(time.RFC3339))
		return nil
	case "rm":
		if len(args) != 1 {
			return errors.New("usage: rm <id>")
		}
		if err := s.repo.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "deleted %s\n", args[0])
		return nil
	case "repair":
		report, err := s.repo.Reconcile(ctx)
		if err != nil {
			return err
		}
		printReport(s.out, report)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (s *shell) help() {
	fmt.Fprint(s.out, `commands:
  ls                list scripts
  cat <id>          print a script
  find <name>       look a script up by name
  new <name>        create a script; content ends with a line containing "."
  edit <id>         replace a script's content
  rm <id>           delete a script
  repair            reconcile the name index
  exit              leave the shell
`)
}

func (s *shell) list(ctx context.Context) error {
	scripts, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	if len(scripts) == 0 {
		fmt.Fprintln(s.out, "no scripts")
		return nil
	}
	rows := make([]scriptstore.Script, 0, len(scripts))
	for _, sc := range scripts {
		rows = append(rows, sc)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].ID < rows[j].ID
	})

	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tUPDATED")
	for _, sc := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", sc.ID, sc.Name, sc.Updated.Format(time.RFC3339))
	}
	return tw.Flush()
}

func (s *shell) show(sc scriptstore.Script) {
	fmt.Fprintf(s.out, "# %s (%s) %s\n", sc.Name, sc.ID, sc.OriginalName)
	fmt.Fprintln(s.out, sc.Content)
}

// readContent collects lines until a lone ".".
func (s *shell) readContent() (string, error) {
	var lines []string
	for {
		line, err := s.read(contentPrompt)
		if err != nil {
			return "", err
		}
		if line == contentTerminus {
			break
		}
		lines = append(lines, line)
	}
	content := strings.Join(lines, "\n")
	if strings.TrimSpace(content) == "" {
		return "", errors.New("content is empty")
	}
	return content, nil
}
