package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/petasbytes/theraia/internal/fsops"
	"github.com/petasbytes/theraia/internal/log"
	"github.com/petasbytes/theraia/internal/session"
)

const (
	cmdConclude = "/conclude"
	cmdQuit     = "/quit"
	youPrompt   = "\u001b[94mYou\u001b[0m: "
	sagePrefix  = "\u001b[93mSage\u001b[0m: "
)

func (a *app) chatCmd() *cobra.Command {
	var recordPath string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run a session in the terminal",
		Long: `Run one session in the terminal. Pass --record to continue from a record file
saved by an earlier session. Type /conclude to finish and save the record, /quit to leave
without saving.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := a.deps()
			if err != nil {
				return err
			}
			store, err := fsops.NewStore(a.cfg.RecordsDir)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			sigch := make(chan os.Signal, 1)
			signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigch)
			go func() {
				select {
				case <-sigch:
					fmt.Fprintln(cmd.OutOrStdout(), "\nExiting...")
					cancel()
				case <-ctx.Done():
				}
			}()

			m := session.NewMachine("terminal", deps)
			return runChat(ctx, m, store, recordPath, a.stdin, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&recordPath, "record", "", "record file from a previous session")
	return cmd
}

// runChat drives m from lines on in until the session concludes, the user
// quits, or input ends.
func runChat(ctx context.Context, m *session.Machine, store *fsops.Store, recordPath string, in io.Reader, out io.Writer) error {
	var opening string
	if recordPath != "" {
		rel, err := store.Rel(recordPath)
		if err != nil {
			return err
		}
		blob, err := store.Read(rel)
		if err != nil {
			return fmt.Errorf("read record: %w", err)
		}
		if opening, err = m.Upload(ctx, blob); err != nil {
			return fmt.Errorf("%s: %w", session.UserMessage(err), err)
		}
	} else {
		var err error
		if opening, err = m.Begin(ctx); err != nil {
			return err
		}
	}
	fmt.Fprintln(out, sagePrefix+opening)
	fmt.Fprintf(out, "(type %s to finish and save your record, %s to leave)\n", cmdConclude, cmdQuit)

	inputCh := make(chan string)
	scanner := bufio.NewScanner(in)
	go func() {
		defer close(inputCh)
		for scanner.Scan() {
			select {
			case inputCh <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(out, youPrompt)
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-inputCh:
			if !ok {
				fmt.Fprintln(out, "\nSession ended without saving a record.")
				return nil
			}
		}
		line = strings.TrimSpace(line)

		switch line {
		case "":
			continue
		case cmdQuit:
			fmt.Fprintln(out, "Session ended without saving a record.")
			return nil
		case cmdConclude:
			c, err := m.Conclude(ctx)
			if err != nil {
				fmt.Fprintln(out, sagePrefix+session.UserMessage(err))
				continue
			}
			fmt.Fprintln(out, sagePrefix+c.Message)
			path, err := store.Write(c.Artifact.Filename, c.Artifact.Content)
			if err != nil {
				// The record only exists in memory; print it rather than lose it.
				fmt.Fprintln(out, "Could not save the record file. Copy the record below and keep it safe:")
				fmt.Fprintln(out, c.Artifact.Content)
				return fmt.Errorf("save record: %w", err)
			}
			log.Info().Str("file", c.Artifact.Filename).Msg("record saved")
			fmt.Fprintln(out, sagePrefix+strings.Replace(c.Final, "downloaded", "saved to "+path, 1))
			return nil
		default:
			reply, err := m.Send(ctx, line)
			if err != nil {
				fmt.Fprintln(out, sagePrefix+session.UserMessage(err))
				continue
			}
			fmt.Fprintln(out, sagePrefix+reply)
		}
	}
}
