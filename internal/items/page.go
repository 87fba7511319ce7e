package items

// Page is one rasterized page of the source document.
type Page struct {
	Number int
	Image  []byte
	// RawText holds partitioner output for the page, if any.
	RawText string
}
