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
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [pdf...]",
	Short: "Show pipeline state per book",
	Long: `Report, without running anything, which stage each book has reached
based on its checkpoints on disk.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := findBooks(cfg, args)
		if err != nil {
			return err
		}

		tk, err := newToolkit(cfg)
		if err != nil {
			return err
		}
		defer tk.close()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "BOOK\tSTATE")
		for _, res := range tk.pipeline.Status(paths) {
			fmt.Fprintf(w, "%s\t%s\n", res.Book, res.State)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
