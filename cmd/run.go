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
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/baterdene/nomtran/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run [pdf...]",
	Short: "Translate books end to end",
	Long: `Run the full pipeline over the given PDFs, or over every PDF in the
input directory when no arguments are given.

Books are processed one at a time. A book that already has valid
checkpoints resumes from the stage after its last completed one;
fully assembled books are skipped. Press Ctrl-C to stop after the
current book.`,
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

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		start := time.Now()
		slog.Info("starting run", "books", len(paths), "endpoint", cfg.Endpoint.URL, "model", cfg.Endpoint.Model)

		results := tk.pipeline.Run(ctx, paths)

		var done, failed, pending int
		for _, res := range results {
			switch {
			case res.Err != nil && res.State == pipeline.Failed:
				failed++
				fmt.Printf("  %-40s %s: %v\n", res.Book, res.State, res.Err)
			case res.Err != nil:
				pending++
				fmt.Printf("  %-40s %s (retry next run): %v\n", res.Book, res.State, res.Err)
			case res.State == pipeline.Assembled:
				done++
				fmt.Printf("  %-40s %s\n", res.Book, res.State)
			default:
				pending++
				fmt.Printf("  %-40s %s\n", res.Book, res.State)
			}
		}

		fmt.Printf("\n%d assembled, %d pending, %d failed in %s\n",
			done, pending, failed, time.Since(start).Round(time.Second))

		if failed > 0 {
			return fmt.Errorf("%d book(s) failed", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
