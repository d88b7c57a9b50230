package web

import (
	"strings"
	"unicode/utf8"

	vm "github.com/ericfisherdev/credreview/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/credreview/internal/csvcodec"
	"github.com/ericfisherdev/credreview/internal/domain/model"
)

// previewSampleRows caps how many rows the preview renders.
const previewSampleRows = 20

// toPreviewViewModel converts an import into its masked summary. partLimit
// is the export size threshold used to predict the number of files.
func toPreviewViewModel(records []model.Record, dialect model.Dialect, partLimit int) vm.PreviewViewModel {
	export := csvcodec.Serialize(records, &dialect)

	out := vm.PreviewViewModel{
		HasHeader:   dialect.HasHeader(),
		Header:      dialect.Header,
		ColumnCount: dialect.ColumnCount,
		UsesQuoting: dialect.UsesQuoting,
		RecordCount: len(records),
		Truncated:   len(records) > previewSampleRows,
		ExportParts: len(export.Parts(partLimit)),
		Diverged:    export.Diverged,
	}

	for _, rec := range records[:min(len(records), previewSampleRows)] {
		out.Sample = append(out.Sample, vm.RecordRowViewModel{
			Profile:      rec.Profile,
			Site:         rec.Site,
			Username:     rec.Username,
			MaskedSecret: maskSecret(rec.Secret),
			UsageCount:   rec.UsageCount,
		})
	}
	return out
}

// maskSecret hides every character of s. Lengths above 12 are capped so the
// mask does not leak long secrets' exact length.
func maskSecret(s string) string {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return ""
	}
	return strings.Repeat("•", min(n, 12))
}
