package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petasbytes/theraia/internal/fsops"
	"github.com/petasbytes/theraia/internal/obfuscate"
	"github.com/petasbytes/theraia/internal/record"
)

func (a *app) recordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Work with session record files",
		Long: `Decode, encode and inspect record files with the configured cipher.
Paths are resolved inside the records directory (THERAIA_RECORDS_DIR).`,
	}
	cmd.AddCommand(a.recordDecodeCmd(), a.recordEncodeCmd(), a.recordInspectCmd())
	return cmd
}

// recordIO opens the records directory and the configured codec.
func (a *app) recordIO() (*fsops.Store, obfuscate.Codec, error) {
	store, err := fsops.NewStore(a.cfg.RecordsDir)
	if err != nil {
		return nil, nil, err
	}
	codec, err := a.cfg.Codec()
	if err != nil {
		return nil, nil, err
	}
	return store, codec, nil
}

func (a *app) readDecoded(path string) (string, error) {
	store, codec, err := a.recordIO()
	if err != nil {
		return "", err
	}
	rel, err := store.Rel(path)
	if err != nil {
		return "", err
	}
	blob, err := store.Read(rel)
	if err != nil {
		return "", err
	}
	return codec.Decode(strings.TrimSpace(blob))
}

func (a *app) recordDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode PATH",
		Short: "Print the plain text of a record file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := a.readDecoded(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func (a *app) recordEncodeCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "encode PATH",
		Short: "Encode a plain-text record into a record file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, codec, err := a.recordIO()
			if err != nil {
				return err
			}
			rel, err := store.Rel(args[0])
			if err != nil {
				return err
			}
			text, err := store.Read(rel)
			if err != nil {
				return err
			}
			blob, err := codec.Encode(text)
			if err != nil {
				return err
			}
			if outPath == "" {
				fmt.Fprintln(cmd.OutOrStdout(), blob)
				return nil
			}
			outRel, err := store.Rel(outPath)
			if err != nil {
				return err
			}
			written, err := store.Write(outRel, blob)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", filepath.Base(written))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the encoded record here instead of stdout")
	return cmd
}

func (a *app) recordInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect PATH",
		Short: "Summarize the structure of a record file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := a.readDecoded(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			r, perr := record.Parse(text)
			if perr != nil {
				fmt.Fprintf(out, "format: unstructured (%v)\n", perr)
				r = record.Recover(text)
			} else {
				fmt.Fprintln(out, "format: structured")
			}
			if r.Patient != nil {
				fmt.Fprintf(out, "patient: %s\n", orDash(r.Patient.Name))
				fmt.Fprintf(out, "introduction: %s\n", orDash(r.Patient.InitialIntroduction))
			} else {
				fmt.Fprintln(out, "patient: -")
			}
			fmt.Fprintf(out, "entries: %d\n", len(r.Entries))
			for i, e := range r.Entries {
				date := e.Date
				if date == "" {
					date = record.UnknownDate
				}
				fmt.Fprintf(out, "  %d. %s (%d chars summary, %d chars notes)\n", i+1, date, len([]rune(e.Summary)), len([]rune(e.TherapeuticNotes)))
			}
			return nil
		},
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
