/*
Copyright © 2026 Baterdene Ganbold <baterdene.ganbold@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/baterdene/nomtran/internal/checkpoint"
)

var patchCmd = &cobra.Command{
	Use:   "patch <book title>",
	Short: "Re-translate missing spans in a translated book",
	Long: `Load a book's translated checkpoint, re-request every span that still
lacks target text, and write the checkpoint back. Spans that already
have translations are left untouched; a fully translated book makes
no endpoint calls at all.

The argument is the book title, i.e. the source PDF name without
its extension.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tk, err := newToolkit(cfg)
		if err != nil {
			return err
		}
		defer tk.close()

		cp := tk.store.Book(args[0])
		if !cp.Valid(checkpoint.Translated) {
			return fmt.Errorf("no translated checkpoint for %q", args[0])
		}
		doc, err := cp.ReadDoc(checkpoint.Translated)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		missing := len(doc.MissingSpans())
		patched, n, err := tk.patcher.Run(ctx, doc)
		if n > 0 {
			if werr := cp.WriteDoc(checkpoint.Translated, patched); werr != nil {
				return werr
			}
		}
		if err != nil {
			return err
		}

		fmt.Printf("%s: %d missing, %d patched, %d still missing\n",
			args[0], missing, n, len(patched.MissingSpans()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(patchCmd)
}
