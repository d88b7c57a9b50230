// Package viewmodel defines presentation-ready structs for templ components.
// View models never carry a secret in clear text.
package viewmodel

// PreviewViewModel summarises a pasted export: the detected dialect plus a
// masked sample of the rows.
type PreviewViewModel struct {
	HasHeader   bool
	Header      []string
	ColumnCount int
	UsesQuoting bool
	RecordCount int
	Sample      []RecordRowViewModel
	Truncated   bool
	ExportParts int
	Diverged    bool
	Error       string
}

// RecordRowViewModel is one masked record row.
type RecordRowViewModel struct {
	Profile      string
	Site         string
	Username     string
	MaskedSecret string
	UsageCount   int
}

// PageViewModel holds the data for the review page.
type PageViewModel struct {
	Title     string
	CSRFToken string
	HelpHTML  string
	Preview   *PreviewViewModel
}
