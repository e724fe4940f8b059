package model

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"docchunker/types"
)

const pdfMIME = "application/pdf"

// Inspector checks that an upload is a readable PDF and reports its page count.
type Inspector interface {
	Inspect(path string) (int, error)
}

type PDFInspector struct {
	conf *pdfmodel.Configuration
}

func NewPDFInspector() *PDFInspector {
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	return &PDFInspector{conf: conf}
}

func (p *PDFInspector) Inspect(path string) (int, error) {
	if err := api.ValidateFile(path, p.conf); err != nil {
		return 0, fmt.Errorf("%w: %v", types.ErrInvalidDocument, err)
	}
	pages, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", types.ErrInvalidDocument, err)
	}
	return pages, nil
}

// IsPDF accepts an upload when the declared content type, the file extension
// or the sniffed content says it is a PDF.
func IsPDF(filename, declaredType string, head []byte) bool {
	if strings.EqualFold(strings.TrimSpace(strings.Split(declaredType, ";")[0]), pdfMIME) {
		return true
	}
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return true
	}
	return len(head) > 0 && mimetype.Detect(head).Is(pdfMIME)
}
