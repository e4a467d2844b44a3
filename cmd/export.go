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
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/baterdene/nomtran/internal/checkpoint"
)

var (
	exportKind   string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export <book title>",
	Short: "Export a book's sentence pairs as JSON",
	Long: `Dump a book's block list, with aligned source and target sentences, as
a JSON array. The output is suitable as parallel-corpus training data
or for inspection with jq.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var kind checkpoint.Kind
		switch exportKind {
		case "translated":
			kind = checkpoint.Translated
		case "refined":
			kind = checkpoint.Refined
		default:
			return fmt.Errorf("unknown checkpoint kind %q (want translated or refined)", exportKind)
		}

		tk, err := newToolkit(cfg)
		if err != nil {
			return err
		}
		defer tk.close()

		cp := tk.store.Book(args[0])
		if !cp.Valid(kind) {
			return fmt.Errorf("no %s checkpoint for %q", kind, args[0])
		}
		doc, err := cp.ReadDoc(kind)
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(doc.Blocks, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal blocks: %w", err)
		}
		data = append(data, '\n')

		if exportOutput == "" || exportOutput == "-" {
			_, err = os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(exportOutput, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %d blocks to %s\n", len(doc.Blocks), exportOutput)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportKind, "kind", "refined", "checkpoint to export: translated or refined")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
