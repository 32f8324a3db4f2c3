package multinbs

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// GeneNaming selects which MAF column names genes in converted output.
type GeneNaming string

const (
	// GeneSymbol uses the Hugo_Symbol column.
	GeneSymbol GeneNaming = "symbol"
	// GeneEntrez uses the Entrez_Gene_Id column.
	GeneEntrez GeneNaming = "entrez"
)

const mafBarcodeLen = 12

// ReadMAF converts a TCGA Mutation Annotation Format file into a binary
// somatic mutation profile. Tumor sample barcodes are trimmed to their
// 12-character patient prefix; when several distinct barcodes collapse onto
// one prefix, that patient is ambiguous and all of its calls are dropped.
// The dropped patient prefixes are returned alongside the profile, and genes
// left without any call are omitted. Rows and columns come out sorted.
func ReadMAF(r io.Reader, naming GeneNaming) (*Profile, []string, error) {
	geneCol := "Hugo_Symbol"
	switch naming {
	case GeneSymbol, "":
		// default
	case GeneEntrez:
		geneCol = "Entrez_Gene_Id"
	default:
		return nil, nil, fmt.Errorf("multinbs: gene naming must be %q or %q, got %q", GeneSymbol, GeneEntrez, naming)
	}

	sc := lineScanner(r)
	var header []string
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if skippableLine(line) {
			continue
		}
		header = splitFields(line, "\t")
		break
	}
	if header == nil {
		return nil, nil, fmt.Errorf("multinbs: MAF file is empty")
	}
	barcodeIdx, geneIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "Tumor_Sample_Barcode":
			barcodeIdx = i
		case geneCol:
			geneIdx = i
		}
	}
	if barcodeIdx < 0 {
		return nil, nil, fmt.Errorf("multinbs: MAF header is missing Tumor_Sample_Barcode")
	}
	if geneIdx < 0 {
		return nil, nil, fmt.Errorf("multinbs: MAF header is missing %s", geneCol)
	}

	minFields := max(barcodeIdx, geneIdx) + 1
	// patient prefix -> mutated genes, and prefix -> full barcodes seen
	calls := make(map[string]map[string]bool)
	barcodes := make(map[string]map[string]bool)
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if skippableLine(line) {
			continue
		}
		fields := splitFields(line, "\t")
		if len(fields) < minFields {
			return nil, nil, fmt.Errorf("multinbs: MAF line %d: want at least %d fields, got %d", lineNo, minFields, len(fields))
		}
		barcode := strings.TrimSpace(fields[barcodeIdx])
		gene := strings.TrimSpace(fields[geneIdx])
		if barcode == "" || gene == "" {
			continue
		}
		prefix := barcode
		if len(prefix) > mafBarcodeLen {
			prefix = prefix[:mafBarcodeLen]
		}
		if calls[prefix] == nil {
			calls[prefix] = make(map[string]bool)
			barcodes[prefix] = make(map[string]bool)
		}
		calls[prefix][gene] = true
		barcodes[prefix][barcode] = true
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("multinbs: read MAF: %w", err)
	}

	var dropped []string
	for prefix, full := range barcodes {
		if len(full) > 1 {
			dropped = append(dropped, prefix)
			delete(calls, prefix)
		}
	}
	sort.Strings(dropped)
	if len(calls) == 0 {
		return nil, nil, fmt.Errorf("multinbs: MAF contains no usable samples")
	}

	samples := make([]string, 0, len(calls))
	geneSet := make(map[string]bool)
	for prefix, genes := range calls {
		samples = append(samples, prefix)
		for g := range genes {
			geneSet[g] = true
		}
	}
	sort.Strings(samples)
	genes := make([]string, 0, len(geneSet))
	for g := range geneSet {
		genes = append(genes, g)
	}
	sort.Strings(genes)

	p, err := NewProfile(samples, genes)
	if err != nil {
		return nil, nil, err
	}
	for i, s := range samples {
		for g := range calls[s] {
			j, _ := p.GeneIndex(g)
			p.Set(i, j, 1)
		}
	}
	return p, dropped, nil
}

// LoadMAF reads a MAF file from disk. See [ReadMAF].
func LoadMAF(path string, naming GeneNaming) (*Profile, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("multinbs: open MAF file: %w", err)
	}
	defer f.Close()
	p, dropped, err := ReadMAF(f, naming)
	if err != nil {
		return nil, nil, fmt.Errorf("multinbs: %s: %w", path, err)
	}
	return p, dropped, nil
}
