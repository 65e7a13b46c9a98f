package domain

// Source identifies the upstream adapter a pool row came from.
type Source string

const (
	SourceDefiLlama Source = "defillama"
	SourceHyperlend Source = "hyperlend"
	SourceHypurrfi  Source = "hypurrfi"
	SourceFelix     Source = "felix"
	SourceHyperbeat Source = "hyperbeat"
)

// String returns the string representation of Source.
func (s Source) String() string {
	return string(s)
}

// MergeOrder is the fixed precedence order for pool reconciliation.
// Later sources overwrite earlier ones on identifier collision: a
// protocol-specific adapter is considered more accurate for its own
// protocol than the aggregator's best-effort listing.
var MergeOrder = []Source{
	SourceDefiLlama,
	SourceHyperlend,
	SourceHypurrfi,
	SourceFelix,
	SourceHyperbeat,
}
