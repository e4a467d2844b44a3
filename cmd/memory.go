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

	"github.com/spf13/cobra"

	"github.com/baterdene/nomtran/internal/memory"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Manage the translation memory",
	Long: `Inspect or clear the SQLite translation memory that caches sentence
translations across books. Requires memory_db to be set in the config.`,
}

var memoryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show translation memory statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		mem, err := openMemory()
		if err != nil {
			return err
		}
		defer mem.Close()

		st, err := mem.Stats(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("entries: %d\ncache hits: %d\nbooks: %d\n", st.Entries, st.TotalUsage, st.Books)
		return nil
	},
}

var memoryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all translation memory entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		mem, err := openMemory()
		if err != nil {
			return err
		}
		defer mem.Close()

		n, err := mem.Clear(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("deleted %d entries\n", n)
		return nil
	},
}

func openMemory() (*memory.Store, error) {
	if cfg.MemoryDB == "" {
		return nil, fmt.Errorf("translation memory disabled: set memory_db in the config")
	}
	return memory.Open(cfg.MemoryDB)
}

func init() {
	memoryCmd.AddCommand(memoryStatsCmd)
	memoryCmd.AddCommand(memoryClearCmd)
	rootCmd.AddCommand(memoryCmd)
}
