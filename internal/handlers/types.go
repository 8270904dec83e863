package handlers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/SanathAishu/clinic-administration-sub006/internal/analytics/abc"
	"github.com/SanathAishu/clinic-administration-sub006/internal/analytics/spc"
	"github.com/SanathAishu/clinic-administration-sub006/internal/analytics/waittime"
)

// WaitTimeRequest carries a queue snapshot for estimation
type WaitTimeRequest struct {
	AppointmentID     string  `json:"appointment_id" binding:"required"`
	ArrivalRate       float64 `json:"arrival_rate" binding:"required"`
	ServiceRate       float64 `json:"service_rate" binding:"required"`
	QueuePosition     int     `json:"queue_position" binding:"required,min=1"`
	HistoricalSamples int     `json:"historical_samples" binding:"min=0"`
}

func (r *WaitTimeRequest) toSnapshot() waittime.QueueSnapshot {
	return waittime.QueueSnapshot{
		AppointmentID:     r.AppointmentID,
		ArrivalRate:       r.ArrivalRate,
		ServiceRate:       r.ServiceRate,
		QueuePosition:     r.QueuePosition,
		HistoricalSamples: r.HistoricalSamples,
	}
}

// ABCItemRequest is one inventory item submitted for classification
type ABCItemRequest struct {
	ItemID       string          `json:"item_id" binding:"required"`
	ItemName     string          `json:"item_name"`
	AnnualDemand int64           `json:"annual_demand" binding:"min=0"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
}

// ABCRequest carries the inventory to classify and, optionally, the
// classifications from the previous run for change tracking
type ABCRequest struct {
	Items    []ABCItemRequest  `json:"items" binding:"required,min=1,dive"`
	Previous map[string]string `json:"previous_classifications"`
}

func (r *ABCRequest) toItems() []abc.InventoryItem {
	items := make([]abc.InventoryItem, len(r.Items))
	for i, item := range r.Items {
		items[i] = abc.InventoryItem{
			ItemID:       item.ItemID,
			ItemName:     item.ItemName,
			AnnualDemand: item.AnnualDemand,
			UnitPrice:    item.UnitPrice,
		}
	}
	return items
}

func (r *ABCRequest) toPrevious() (map[string]abc.Classification, error) {
	if len(r.Previous) == 0 {
		return nil, nil
	}
	previous := make(map[string]abc.Classification, len(r.Previous))
	for itemID, raw := range r.Previous {
		classification, err := abc.ParseClassification(raw)
		if err != nil {
			return nil, err
		}
		previous[itemID] = classification
	}
	return previous, nil
}

// ABCResponse wraps the full recomputed ranking
type ABCResponse struct {
	Rankings []abc.Ranking `json:"rankings"`
	Changes  int           `json:"classification_changes"`
}

// ComplianceSampleRequest is one daily compliance observation
type ComplianceSampleRequest struct {
	MetricType string    `json:"metric_type" binding:"required"`
	Date       time.Time `json:"date" binding:"required"`
	Rate       float64   `json:"rate"`
}

// DashboardRequest carries the observation window for a dashboard build
type DashboardRequest struct {
	Samples      []ComplianceSampleRequest `json:"samples" binding:"required,min=1,dive"`
	DaysAnalyzed int                       `json:"days_analyzed" binding:"required,min=1"`
	CacheScope   string                    `json:"cache_scope"`
}

func (r *DashboardRequest) toSeries() map[string][]spc.Sample {
	series := make(map[string][]spc.Sample)
	for _, sample := range r.Samples {
		series[sample.MetricType] = append(series[sample.MetricType], spc.Sample{
			MetricType: sample.MetricType,
			Date:       sample.Date,
			Rate:       sample.Rate,
		})
	}
	return series
}

// DashboardResponse pairs the dashboard with its per-metric analyses
type DashboardResponse struct {
	Dashboard *spc.Dashboard                 `json:"dashboard"`
	Analyses  map[string]*spc.MetricAnalysis `json:"analyses"`
	Cached    bool                           `json:"cached"`
}

// StartExecutionRequest begins tracking an archival run
type StartExecutionRequest struct {
	PolicyID      string     `json:"policy_id" binding:"required"`
	EntityType    string     `json:"entity_type" binding:"required"`
	ExecutionDate *time.Time `json:"execution_date"`
}

// ProgressRequest updates in-flight counts
type ProgressRequest struct {
	RecordsProcessed int64 `json:"records_processed" binding:"min=0"`
	RecordsArchived  int64 `json:"records_archived" binding:"min=0"`
	RecordsFailed    int64 `json:"records_failed" binding:"min=0"`
}

// CompleteRequest finalizes a run as COMPLETED
type CompleteRequest struct {
	RecordsArchived int64      `json:"records_archived" binding:"min=0"`
	RecordsFailed   int64      `json:"records_failed" binding:"min=0"`
	EndTime         *time.Time `json:"end_time"`
}

// FailRequest finalizes a run as FAILED
type FailRequest struct {
	ErrorMessage string     `json:"error_message" binding:"required"`
	EndTime      *time.Time `json:"end_time"`
}

// ErrorResponse is the uniform error payload
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
