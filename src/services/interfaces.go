package services

import (
	"errors"
	"io"

	"github.com/username/pitfolio/src/models"
	"github.com/username/pitfolio/src/processors"
)

var (
	ErrParsingFailed  = errors.New("parsing failed")
	ErrUnknownSource  = errors.New("unknown data source")
	ErrAggregation    = errors.New("aggregation failed")
	ErrNoStoredReport = errors.New("no stored tax records for user")
)

// UploadResult is what one processed upload hands back to the caller: the
// per-year report for that source, the informational remaining positions and
// any classification diagnostics.
type UploadResult struct {
	Source      string                         `json:"source"`
	Report      models.TaxReport               `json:"report"`
	Remaining   []processors.RemainingPosition `json:"remaining,omitempty"`
	Diagnostics []models.Diagnostic            `json:"diagnostics,omitempty"`
}

// ReportService is the core application surface: ingest one source's files,
// persist its per-year records, and serve the merged report across sources.
type ReportService interface {
	ProcessUpload(fileReader io.Reader, userID int64, source string) (*UploadResult, error)
	SaveManualRecord(userID int64, year int, record models.TaxRecord) error
	GetTaxReport(userID int64) (models.TaxReport, error)
	InvalidateUserCache(userID int64)
}

// PriceService supplies current market prices for the remaining-position
// valuation. It satisfies processors.PriceSource.
type PriceService interface {
	CurrentPrice(symbol string) (price float64, currency string, err error)
}
