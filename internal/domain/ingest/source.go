package ingest

// Marketplace identifies the marketplace a document originates from.
// It is the partitioning component of the sales register natural key.
type Marketplace string

const (
	MarketplaceOzon Marketplace = "OZON"
	MarketplaceWB   Marketplace = "WB"
	MarketplaceYM   Marketplace = "YM"
)

// String returns the string representation of Marketplace
func (m Marketplace) String() string {
	return string(m)
}

// Source identifies one external feed. Ozon contributes two sources
// because its FBS and FBO schemes are separate APIs with separate
// document namespaces.
type Source string

const (
	SourceOzonFBS  Source = "OZON_FBS"
	SourceOzonFBO  Source = "OZON_FBO"
	SourceWBSales  Source = "WB_SALES"
	SourceYMOrders Source = "YM_ORDERS"
)

// AllSources lists every known source in stable order.
func AllSources() []Source {
	return []Source{SourceOzonFBS, SourceOzonFBO, SourceWBSales, SourceYMOrders}
}

// IsValid returns true if the source is one of the known feeds
func (s Source) IsValid() bool {
	switch s {
	case SourceOzonFBS, SourceOzonFBO, SourceWBSales, SourceYMOrders:
		return true
	default:
		return false
	}
}

// String returns the string representation of Source
func (s Source) String() string {
	return string(s)
}

// Marketplace returns the marketplace a source belongs to.
func (s Source) Marketplace() Marketplace {
	switch s {
	case SourceOzonFBS, SourceOzonFBO:
		return MarketplaceOzon
	case SourceWBSales:
		return MarketplaceWB
	case SourceYMOrders:
		return MarketplaceYM
	default:
		return Marketplace(s)
	}
}

// DocumentType names the business object a raw payload describes.
type DocumentType string

const (
	DocumentTypeOzonFBSPosting DocumentType = "OZON_FBS_POSTING"
	DocumentTypeOzonFBOPosting DocumentType = "OZON_FBO_POSTING"
	DocumentTypeWBSaleEvent    DocumentType = "WB_SALE_EVENT"
	DocumentTypeYMOrder        DocumentType = "YM_ORDER"
)

// DocumentType returns the document type produced by this source.
func (s Source) DocumentType() DocumentType {
	switch s {
	case SourceOzonFBS:
		return DocumentTypeOzonFBSPosting
	case SourceOzonFBO:
		return DocumentTypeOzonFBOPosting
	case SourceWBSales:
		return DocumentTypeWBSaleEvent
	case SourceYMOrders:
		return DocumentTypeYMOrder
	default:
		return DocumentType(s)
	}
}
