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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baterdene/nomtran/internal/checkpoint"
)

var assembleCmd = &cobra.Command{
	Use:   "assemble <book title>",
	Short: "Render a book's final PDF and EPUB",
	Long: `Render the final artifacts for one book from its refined checkpoint,
falling back to the translated checkpoint when no refined one exists.
Useful after tweaking fonts or output settings without re-translating.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tk, err := newToolkit(cfg)
		if err != nil {
			return err
		}
		defer tk.close()

		cp := tk.store.Book(args[0])
		kind := checkpoint.Refined
		if !cp.Valid(kind) {
			kind = checkpoint.Translated
			if !cp.Valid(kind) {
				return fmt.Errorf("no refined or translated checkpoint for %q", args[0])
			}
		}
		doc, err := cp.ReadDoc(kind)
		if err != nil {
			return err
		}

		if err := tk.assembler.Run(doc, cp.Path(checkpoint.Final), cp.EPUBPath()); err != nil {
			return err
		}
		fmt.Printf("%s: rendered from %s checkpoint\n  %s\n  %s\n",
			args[0], kind, cp.Path(checkpoint.Final), cp.EPUBPath())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(assembleCmd)
}
