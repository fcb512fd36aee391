package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xelth-com/centerhub/internal/models"
)

// Period is the age filter of the business report
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

// ParsePeriod maps a query value onto a Period, defaulting to PeriodAll
func ParsePeriod(s string) Period {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case PeriodWeek:
		return PeriodWeek
	case PeriodMonth:
		return PeriodMonth
	case PeriodYear:
		return PeriodYear
	default:
		return PeriodAll
	}
}

// MaxAgeDays is the oldest record, in whole days, the period keeps; 0 keeps everything
func (p Period) MaxAgeDays() int {
	switch p {
	case PeriodWeek:
		return 7
	case PeriodMonth:
		return 30
	case PeriodYear:
		return 365
	default:
		return 0
	}
}

// Includes reports whether a record dated t is inside the period at now
func (p Period) Includes(t, now time.Time) bool {
	limit := p.MaxAgeDays()
	if limit == 0 {
		return true
	}
	days := int(now.Sub(t) / (24 * time.Hour))
	return days <= limit
}

// CenterStats are one center's figures in the business report
type CenterStats struct {
	CenterName  string  `json:"centerName"`
	Items       int     `json:"items"`
	Sales       int     `json:"sales"`
	Maintenance int     `json:"maintenance"`
	Revenue     float64 `json:"revenue"`
}

// TechnicianStats counts a technician's jobs
type TechnicianStats struct {
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

// BusinessStats is the Reports screen
type BusinessStats struct {
	Period               Period                           `json:"period"`
	TotalItems           int                              `json:"totalItems"`
	LowStockItems        int                              `json:"lowStockItems"`
	TotalSales           int                              `json:"totalSales"`
	TotalRevenue         float64                          `json:"totalRevenue"`
	TotalMaintenance     int                              `json:"totalMaintenance"`
	CompletedMaintenance int                              `json:"completedMaintenance"`
	PendingMaintenance   int                              `json:"pendingMaintenance"`
	MaintenanceByStatus  map[models.MaintenanceStatus]int `json:"maintenanceByStatus"`
	TechnicianStats      map[string]TechnicianStats       `json:"technicianStats"`
	PartsUsed            map[string]int                   `json:"partsUsed"`
	CenterStats          map[string]*CenterStats          `json:"centerStats"`
}

// BusinessReport computes inventory, sales and maintenance figures. An empty
// centerID covers every center. Inventory is a snapshot and ignores period.
func (a *Aggregator) BusinessReport(ctx context.Context, centerID string, period Period) (*BusinessStats, error) {
	now := a.now()

	centers, err := a.st.Centers.ListCenters(ctx)
	if err != nil {
		return nil, fmt.Errorf("list centers: %w", err)
	}
	names := make(map[string]string, len(centers))
	for _, c := range centers {
		names[c.ID] = c.Name
	}

	r := &BusinessStats{
		Period:              period,
		MaintenanceByStatus: make(map[models.MaintenanceStatus]int),
		TechnicianStats:     make(map[string]TechnicianStats),
		PartsUsed:           make(map[string]int),
		CenterStats:         make(map[string]*CenterStats),
	}
	center := func(id string) *CenterStats {
		cs, ok := r.CenterStats[id]
		if !ok {
			name, known := names[id]
			if !known {
				name = models.UnknownCenterName
			}
			cs = &CenterStats{CenterName: name}
			r.CenterStats[id] = cs
		}
		return cs
	}

	items, err := a.st.Inventory.List(ctx, centerID)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	r.TotalItems = len(items)
	for _, it := range items {
		if it.Quantity < models.LowStockThreshold {
			r.LowStockItems++
		}
		center(it.CenterID).Items++
	}

	sales, err := a.st.Sales.List(ctx, centerID)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	for _, s := range sales {
		if !period.Includes(s.Date, now) {
			continue
		}
		r.TotalSales++
		r.TotalRevenue += s.TotalPrice
		cs := center(s.CenterID)
		cs.Sales++
		cs.Revenue += s.TotalPrice
	}

	jobs, err := a.st.Maintenance.List(ctx, centerID)
	if err != nil {
		return nil, fmt.Errorf("list maintenance: %w", err)
	}
	for _, m := range jobs {
		if !period.Includes(m.CreatedAt, now) {
			continue
		}
		r.TotalMaintenance++
		r.MaintenanceByStatus[m.Status]++
		center(m.CenterID).Maintenance++

		tech := m.TechnicianName
		if tech == "" {
			tech = "unassigned"
		}
		ts := r.TechnicianStats[tech]
		if m.Status == models.MaintenanceCompleted {
			r.CompletedMaintenance++
			ts.Completed++
		} else {
			ts.Pending++
		}
		r.TechnicianStats[tech] = ts

		for _, p := range m.Parts {
			r.PartsUsed[p.ItemName] += p.Quantity
		}
	}
	r.PendingMaintenance = r.TotalMaintenance - r.CompletedMaintenance

	return r, nil
}
