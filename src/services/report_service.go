package services

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/pitfolio/src/database"
	"github.com/username/pitfolio/src/logger"
	"github.com/username/pitfolio/src/models"
	"github.com/username/pitfolio/src/processors"
	"github.com/username/pitfolio/src/reporters"
)

const (
	ckMergedReport = "res_merged_report_user_%d"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

const manualSource = "manual"

type reportServiceImpl struct {
	rates       *processors.RateTable
	prices      PriceService
	reportCache *cache.Cache
}

// NewReportService wires the engine's collaborators once at startup. The rate
// table and price service are injected so every aggregation run stays
// deterministic and testable without network access.
func NewReportService(rates *processors.RateTable, prices PriceService, reportCache *cache.Cache) ReportService {
	return &reportServiceImpl{
		rates:       rates,
		prices:      prices,
		reportCache: reportCache,
	}
}

// ProcessUpload replays one source file through the engine, stores the
// resulting per-year records under (user, source) and returns the result.
func (s *reportServiceImpl) ProcessUpload(fileReader io.Reader, userID int64, source string) (*UploadResult, error) {
	start := time.Now()
	logger.L.Info("ProcessUpload START", "userID", userID, "source", source)

	var reporter interface {
		GenerateDetailed() (*processors.AggregationResult, error)
	}
	// minYear 0: the upload keeps every year so old filings stay queryable.
	switch source {
	case "schwab":
		reporter = reporters.NewSchwabReporter([]io.Reader{fileReader}, s.rates, s.prices, 0)
	case "coinbase":
		reporter = reporters.NewCoinbaseReporter([]io.Reader{fileReader}, s.rates, 0)
	case "ibkr":
		reporter = reporters.NewIBKRReporter([]io.Reader{fileReader}, s.rates, s.prices, 0)
	case "revolut":
		reporter = reporters.NewRevolutReporter([]io.Reader{fileReader}, s.rates, 0)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}

	result, err := reporter.GenerateDetailed()
	if err != nil {
		if errors.Is(err, reporters.ErrParse) {
			return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrAggregation, err)
	}

	if err := s.storeReport(userID, source, result.Report); err != nil {
		return nil, err
	}
	s.InvalidateUserCache(userID)

	logger.L.Info("ProcessUpload END", "userID", userID, "source", source,
		"years", len(result.Report), "diagnostics", len(result.Diagnostics),
		"duration", time.Since(start))
	return &UploadResult{
		Source:      source,
		Report:      result.Report,
		Remaining:   result.Remaining,
		Diagnostics: result.Diagnostics,
	}, nil
}

// SaveManualRecord stores hand-entered figures for one year (employment
// income, carryforwards, donations) as their own data source.
func (s *reportServiceImpl) SaveManualRecord(userID int64, year int, record models.TaxRecord) error {
	reporter := &reporters.ManualReporter{Year: year, Record: record}
	report, err := reporter.Generate()
	if err != nil {
		return err
	}
	if err := s.storeReport(userID, manualSource, report); err != nil {
		return err
	}
	s.InvalidateUserCache(userID)
	return nil
}

// GetTaxReport merges the stored per-source reports into the user's combined
// filing. Records for the same year across sources are added field-wise.
func (s *reportServiceImpl) GetTaxReport(userID int64) (models.TaxReport, error) {
	cacheKey := fmt.Sprintf(ckMergedReport, userID)
	if cached, found := s.reportCache.Get(cacheKey); found {
		logger.L.Debug("Cache hit for merged report", "userID", userID)
		return cached.(models.TaxReport), nil
	}

	rows, err := database.DB.Query(`SELECT year, trade_revenue, trade_cost, trade_loss_prev_years,
		crypto_revenue, crypto_cost, crypto_cost_excess_prev_years,
		domestic_interest, foreign_interest, foreign_interest_withholding_tax,
		employment_revenue, employment_cost, social_security_contributions, donations
		FROM tax_records WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying tax records: %w", err)
	}
	defer rows.Close()

	merged := make(models.TaxReport)
	found := false
	for rows.Next() {
		var year int
		var r models.TaxRecord
		if err := rows.Scan(&year, &r.TradeRevenue, &r.TradeCost, &r.TradeLossFromPreviousYears,
			&r.CryptoRevenue, &r.CryptoCost, &r.CryptoCostExcessFromPreviousYears,
			&r.DomesticInterest, &r.ForeignInterest, &r.ForeignInterestWithholdingTax,
			&r.EmploymentRevenue, &r.EmploymentCost, &r.SocialSecurityContributions, &r.Donations); err != nil {
			return nil, fmt.Errorf("error scanning tax record: %w", err)
		}
		merged = merged.Add(models.TaxReport{year: r})
		found = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tax records: %w", err)
	}
	if !found {
		return nil, ErrNoStoredReport
	}

	s.reportCache.Set(cacheKey, merged, cache.DefaultExpiration)
	return merged, nil
}

// InvalidateUserCache clears cached data for a user, forcing a rebuild on the
// next request.
func (s *reportServiceImpl) InvalidateUserCache(userID int64) {
	s.reportCache.Delete(fmt.Sprintf(ckMergedReport, userID))
	logger.L.Info("Invalidated caches for user", "userID", userID)
}

// storeReport replaces one source's per-year records wholesale. A corrected
// re-upload covering fewer years must not leave the dropped years' old rows
// behind, so the source's rows are cleared before inserting.
func (s *reportServiceImpl) storeReport(userID int64, source string, report models.TaxReport) error {
	dbTx, err := database.DB.Begin()
	if err != nil {
		return fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.Exec(`DELETE FROM tax_records WHERE user_id = ? AND source = ?`, userID, source); err != nil {
		return fmt.Errorf("error clearing previous tax records: %w", err)
	}

	stmt, err := dbTx.Prepare(`INSERT INTO tax_records (user_id, source, year,
		trade_revenue, trade_cost, trade_loss_prev_years,
		crypto_revenue, crypto_cost, crypto_cost_excess_prev_years,
		domestic_interest, foreign_interest, foreign_interest_withholding_tax,
		employment_revenue, employment_cost, social_security_contributions, donations)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("error preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for year, r := range report {
		if _, err := stmt.Exec(userID, source, year,
			r.TradeRevenue, r.TradeCost, r.TradeLossFromPreviousYears,
			r.CryptoRevenue, r.CryptoCost, r.CryptoCostExcessFromPreviousYears,
			r.DomesticInterest, r.ForeignInterest, r.ForeignInterestWithholdingTax,
			r.EmploymentRevenue, r.EmploymentCost, r.SocialSecurityContributions, r.Donations); err != nil {
			return fmt.Errorf("error inserting tax record for year %d: %w", year, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("error committing tax records: %w", err)
	}
	return nil
}
