package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/username/pitfolio/src/logger"
	"github.com/username/pitfolio/src/models"
	"github.com/username/pitfolio/src/services"
	"github.com/username/pitfolio/src/utils"
)

type ReportHandler struct {
	reportService services.ReportService
}

func NewReportHandler(service services.ReportService) *ReportHandler {
	return &ReportHandler{
		reportService: service,
	}
}

// yearSummary is one year of the merged report with the derived filing
// figures spelled out alongside the raw inputs.
type yearSummary struct {
	Year                        int              `json:"year"`
	Record                      models.TaxRecord `json:"record"`
	TradeProfit                 float64          `json:"trade_profit"`
	TradeLoss                   float64          `json:"trade_loss"`
	TradeTax                    float64          `json:"trade_tax"`
	CryptoProfit                float64          `json:"crypto_profit"`
	CryptoCostExcess            float64          `json:"crypto_cost_excess"`
	CryptoTax                   float64          `json:"crypto_tax"`
	DomesticInterestTax         float64          `json:"domestic_interest_tax"`
	ForeignInterestTax          float64          `json:"foreign_interest_tax"`
	ForeignInterestRemainingTax float64          `json:"foreign_interest_remaining_tax"`
	SolidarityTax               float64          `json:"solidarity_tax"`
	TotalTax                    float64          `json:"total_tax"`
}

// summarize rounds the derived figures to grosze for display; the stored
// record keeps full precision.
func summarize(year int, record models.TaxRecord) yearSummary {
	grosze := func(v float64) float64 { return utils.RoundFloat(v, 2) }
	return yearSummary{
		Year:                        year,
		Record:                      record,
		TradeProfit:                 grosze(record.TradeProfit()),
		TradeLoss:                   grosze(record.TradeLoss()),
		TradeTax:                    grosze(record.TradeTax()),
		CryptoProfit:                grosze(record.CryptoProfit()),
		CryptoCostExcess:            grosze(record.CryptoCostExcess()),
		CryptoTax:                   grosze(record.CryptoTax()),
		DomesticInterestTax:         grosze(record.DomesticInterestTax()),
		ForeignInterestTax:          grosze(record.ForeignInterestTax()),
		ForeignInterestRemainingTax: grosze(record.ForeignInterestRemainingTax()),
		SolidarityTax:               grosze(record.SolidarityTax()),
		TotalTax:                    grosze(record.TotalTax()),
	}
}

// HandleGetTaxReport serves the merged per-year report across every source
// the user has uploaded, plus manual entries, sorted by year.
func (h *ReportHandler) HandleGetTaxReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	report, err := h.reportService.GetTaxReport(userID)
	if err != nil {
		if errors.Is(err, services.ErrNoStoredReport) {
			utils.SendJSONError(w, "No tax records stored yet. Upload a broker export first.", http.StatusNotFound)
			return
		}
		logger.L.Error("Error retrieving tax report", "userID", userID, "error", err)
		utils.SendJSONError(w, "Error retrieving tax report", http.StatusInternalServerError)
		return
	}

	years := report.Years()
	sort.Ints(years)
	summaries := make([]yearSummary, 0, len(years))
	for _, year := range years {
		summaries = append(summaries, summarize(year, report.Record(year)))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"years": summaries}); err != nil {
		logger.L.Error("Error encoding tax report response", "userID", userID, "error", err)
	}
}

// HandleSaveManualRecord stores user-entered figures (employment income,
// social security, donations, carried-forward losses) for one year. Saving a
// year again replaces the previous manual entry for that year.
func (h *ReportHandler) HandleSaveManualRecord(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	var payload struct {
		Year   int              `json:"year"`
		Record models.TaxRecord `json:"record"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if payload.Year < 1990 || payload.Year > 2100 {
		utils.SendJSONError(w, "Year out of range", http.StatusBadRequest)
		return
	}

	if err := h.reportService.SaveManualRecord(userID, payload.Year, payload.Record); err != nil {
		logger.L.Error("Error saving manual record", "userID", userID, "year", payload.Year, "error", err)
		utils.SendJSONError(w, "Error saving manual record", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(summarize(payload.Year, payload.Record))
}
