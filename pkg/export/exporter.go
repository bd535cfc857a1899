package export

import "fmt"

// Dataset defines tabular export content.
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
}

// Artifact is a rendered export ready to serve.
type Artifact struct {
	ContentType string
	Extension   string
	Bytes       []byte
}

// Exporter renders a dataset into a downloadable artifact.
type Exporter interface {
	Render(data Dataset) (*Artifact, error)
}

// ForFormat returns the exporter for the named format.
func ForFormat(format string) (Exporter, error) {
	switch format {
	case "csv", "":
		return NewCSVExporter(), nil
	case "pdf":
		return NewPDFExporter(), nil
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}
