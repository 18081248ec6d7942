// Package reporters defines the boundary between data sources and the tax
// engine: one TaxReporter per independent source (broker export, manual
// figures, raw overrides), each producing a TaxReport that callers fold into
// the final filing with Combine.
package reporters

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/username/pitfolio/src/models"
	"github.com/username/pitfolio/src/parsers"
	"github.com/username/pitfolio/src/processors"
)

// ErrParse marks a broker file that could not be parsed, as opposed to a
// failure while aggregating already-parsed actions. Callers branch on it
// with errors.Is.
var ErrParse = errors.New("broker file parse failed")

type TaxReporter interface {
	Generate() (models.TaxReport, error)
}

// Combine folds any number of reporters into a single report. The merge is
// order-independent, so reporters may be listed in any order.
func Combine(taxReporters ...TaxReporter) (models.TaxReport, error) {
	combined := make(models.TaxReport)
	for _, reporter := range taxReporters {
		report, err := reporter.Generate()
		if err != nil {
			return nil, err
		}
		combined = combined.Add(report)
	}
	return combined, nil
}

// brokerReporter is the shared aggregator path: parse every file, merge the
// action streams chronologically, replay them through one aggregator run.
// minYear trims the report to years >= minYear after aggregation; the full
// stream is still replayed so earlier acquisitions keep feeding later
// disposals. Zero means no trimming.
type brokerReporter struct {
	source     string
	files      []io.Reader
	classifier processors.ActionClassifier
	rates      *processors.RateTable
	prices     processors.PriceSource
	minYear    int
}

func (r *brokerReporter) GenerateDetailed() (*processors.AggregationResult, error) {
	parser, err := parsers.GetParser(r.source)
	if err != nil {
		return nil, err
	}

	var actions []models.RawAction
	for _, file := range r.files {
		parsed, err := parser.Parse(file)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrParse, r.source, err)
		}
		actions = append(actions, parsed...)
	}
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Date.Before(actions[j].Date)
	})

	aggregator := processors.NewAggregator(r.classifier, r.rates, r.prices)
	result, err := aggregator.Aggregate(actions)
	if err != nil {
		return nil, err
	}
	if r.minYear > 0 {
		for year := range result.Report {
			if year < r.minYear {
				delete(result.Report, year)
			}
		}
	}
	return result, nil
}

func (r *brokerReporter) Generate() (models.TaxReport, error) {
	result, err := r.GenerateDetailed()
	if err != nil {
		return nil, err
	}
	return result.Report, nil
}

// SchwabReporter covers Charles Schwab employee-sponsored equity awards:
// deposits and sales are lot-matched, dividends and withholding feed the
// foreign-interest basket, wire fees reduce trade profit.
type SchwabReporter struct {
	brokerReporter
}

func NewSchwabReporter(files []io.Reader, rates *processors.RateTable, prices processors.PriceSource, minYear int) *SchwabReporter {
	return &SchwabReporter{brokerReporter{
		source:     "schwab",
		files:      files,
		classifier: processors.NewSchwabClassifier(),
		rates:      rates,
		prices:     prices,
		minYear:    minYear,
	}}
}

// CoinbaseReporter covers Coinbase crypto trades. No lot matching: crypto
// costs are deductible the year they are incurred.
type CoinbaseReporter struct {
	brokerReporter
}

func NewCoinbaseReporter(files []io.Reader, rates *processors.RateTable, minYear int) *CoinbaseReporter {
	return &CoinbaseReporter{brokerReporter{
		source:     "coinbase",
		files:      files,
		classifier: processors.NewCoinbaseClassifier(),
		rates:      rates,
		minYear:    minYear,
	}}
}

// IBKRReporter covers Interactive Brokers Flex Query reports: lot-matched
// stock trades plus dividends, broker interest and withholding tax.
type IBKRReporter struct {
	brokerReporter
}

func NewIBKRReporter(files []io.Reader, rates *processors.RateTable, prices processors.PriceSource, minYear int) *IBKRReporter {
	return &IBKRReporter{brokerReporter{
		source:     "ibkr",
		files:      files,
		classifier: processors.NewIBKRClassifier(),
		rates:      rates,
		prices:     prices,
		minYear:    minYear,
	}}
}

// RevolutReporter covers Revolut savings statements: domestic gross interest
// only.
type RevolutReporter struct {
	brokerReporter
}

func NewRevolutReporter(files []io.Reader, rates *processors.RateTable, minYear int) *RevolutReporter {
	return &RevolutReporter{brokerReporter{
		source:     "revolut",
		files:      files,
		classifier: processors.NewRevolutClassifier(),
		rates:      rates,
		minYear:    minYear,
	}}
}

// ManualReporter wraps one year's figures entered by hand (employment
// income, social security, donations, carryforwards).
type ManualReporter struct {
	Year   int
	Record models.TaxRecord
}

func (r *ManualReporter) Generate() (models.TaxReport, error) {
	return models.TaxReport{r.Year: r.Record}, nil
}

// RawReporter wraps already-computed records per year, e.g. an override
// imported from a previous filing.
type RawReporter struct {
	Records map[int]models.TaxRecord
}

func (r *RawReporter) Generate() (models.TaxReport, error) {
	report := make(models.TaxReport, len(r.Records))
	for year, record := range r.Records {
		report[year] = record
	}
	return report, nil
}
