package extract

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// imageFileRe parses the page number out of pdfcpu's extracted image file
// names, which end in _<pageNr>_<resourceID>.<ext>.
var imageFileRe = regexp.MustCompile(`_(\d+)_[^_.]+\.(?i:png|jpe?g|tiff?|webp)$`)

// extractImages dumps every image in the PDF into outDir via pdfcpu and
// returns the written file paths keyed by page number.
func extractImages(pdfPath, outDir string) (map[int][]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}

	conf := model.NewDefaultConfiguration()
	// Books from scanners and old presses rarely pass strict PDF validation.
	conf.ValidationMode = model.ValidationRelaxed

	if err := api.ExtractImagesFile(pdfPath, outDir, nil, conf); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, err
	}

	byPage := make(map[int][]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := imageFileRe.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		page, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		byPage[page] = append(byPage[page], filepath.Join(outDir, entry.Name()))
	}
	return byPage, nil
}
