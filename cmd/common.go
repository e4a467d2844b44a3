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
	"path/filepath"
	"sort"

	"github.com/baterdene/nomtran/internal/assemble"
	"github.com/baterdene/nomtran/internal/checkpoint"
	"github.com/baterdene/nomtran/internal/config"
	"github.com/baterdene/nomtran/internal/extract"
	"github.com/baterdene/nomtran/internal/language"
	"github.com/baterdene/nomtran/internal/memory"
	"github.com/baterdene/nomtran/internal/patch"
	"github.com/baterdene/nomtran/internal/pipeline"
	"github.com/baterdene/nomtran/internal/refine"
	"github.com/baterdene/nomtran/internal/translate"
)

// toolkit bundles everything a command may need so each command builds only
// once and closes resources in one place.
type toolkit struct {
	store      *checkpoint.Store
	mem        *memory.Store
	client     translate.Client
	translator *translate.Translator
	patcher    *patch.Patcher
	refiner    *refine.Refiner
	assembler  *assemble.Assembler
	pipeline   *pipeline.Pipeline
}

func newToolkit(cfg *config.Config) (*toolkit, error) {
	store, err := checkpoint.NewStore(checkpoint.Dirs{
		Cache: cfg.CacheDir,
		Post:  cfg.PostDir,
		Out:   cfg.OutDir,
	})
	if err != nil {
		return nil, err
	}

	var mem *memory.Store
	if cfg.MemoryDB != "" {
		mem, err = memory.Open(cfg.MemoryDB)
		if err != nil {
			return nil, fmt.Errorf("failed to open translation memory: %w", err)
		}
	}

	client := translate.NewOllamaClient(cfg.Endpoint.URL, cfg.Endpoint.Model, cfg.Endpoint.Timeout())
	translator := translate.New(client, mem, translate.Config{
		BatchSize: cfg.BatchSize,
		Workers:   cfg.Workers,
	})

	var verifier *language.Verifier
	if cfg.VerifyLanguage {
		verifier = language.NewMongolian()
	}
	patcher := patch.New(translator, verifier)

	refiner := refine.New(client, cfg.ChunkBlocks)
	assembler := assemble.New(assemble.Fonts{
		Regular: cfg.Fonts.Regular,
		Bold:    cfg.Fonts.Bold,
	})

	return &toolkit{
		store:      store,
		mem:        mem,
		client:     client,
		translator: translator,
		patcher:    patcher,
		refiner:    refiner,
		assembler:  assembler,
		pipeline:   pipeline.New(store, extract.New(), translator, patcher, refiner, assembler),
	}, nil
}

func (t *toolkit) close() {
	if t.mem != nil {
		t.mem.Close()
	}
}

// findBooks resolves the source PDFs for a run: explicit arguments win,
// otherwise every *.pdf under the input directory, sorted by name.
func findBooks(cfg *config.Config, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	paths, err := filepath.Glob(filepath.Join(cfg.InputDir, "*.pdf"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", cfg.InputDir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no PDF files found in %s", cfg.InputDir)
	}
	sort.Strings(paths)
	return paths, nil
}
