package checklist

import (
	"time"

	"checkround/pkg/store"
)

// Container keys in the local key-value area.
const (
	MachinesContainer store.Container = "machines"
	ItemsContainer    store.Container = "checklist_items"
	ReportsContainer  store.Container = "checklist_reports"
	DetailsContainer  store.Container = "checklist_details"
)

// ReportStatus is the lifecycle state of a ChecklistReport.
type ReportStatus string

const (
	ReportDraft     ReportStatus = "draft"
	ReportCompleted ReportStatus = "completed"
)

func (s ReportStatus) Valid() bool {
	return s == ReportDraft || s == ReportCompleted
}

// DetailStatus is the answer recorded for one checklist item.
type DetailStatus string

const (
	StatusOK            DetailStatus = "OK"
	StatusNotOK         DetailStatus = "Not OK"
	StatusNotApplicable DetailStatus = "N/A"
)

func (s DetailStatus) Valid() bool {
	switch s {
	case StatusOK, StatusNotOK, StatusNotApplicable:
		return true
	}
	return false
}

// Machine is a piece of equipment subject to inspection.
type Machine struct {
	ID        int        `json:"id"`
	Name      string     `json:"nama_mesin"`
	Barcode   string     `json:"kode_barcode"`
	Location  string     `json:"lokasi"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// ChecklistItem is one inspection question bound to a machine.
type ChecklistItem struct {
	ID        int        `json:"id"`
	MachineID int        `json:"id_mesin"`
	Prompt    string     `json:"item_pengecekan"`
	Ordinal   int        `json:"urutan"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// ChecklistReport is one inspection round of one machine by one operator.
type ChecklistReport struct {
	ID          int          `json:"id"`
	MachineID   int          `json:"id_mesin"`
	OperatorID  int          `json:"id_operator"`
	InspectedAt time.Time    `json:"tanggal_pengecekan"`
	Status      ReportStatus `json:"status"`
}

// ChecklistDetail is one answered item within a report.
type ChecklistDetail struct {
	ID       int          `json:"id"`
	ReportID int          `json:"id_report"`
	ItemID   int          `json:"id_item"`
	Status   DetailStatus `json:"status"`
	Note     string       `json:"catatan,omitempty"`
	PhotoURL string       `json:"url_foto,omitempty"`
}

// NewReport carries the fields of a report before an id is assigned.
type NewReport struct {
	MachineID   int
	OperatorID  int
	InspectedAt time.Time
	Status      ReportStatus
}

// NewDetail carries the fields of a detail before an id is assigned.
type NewDetail struct {
	ReportID int
	ItemID   int
	Status   DetailStatus
	Note     string
	PhotoURL string
}

type NewMachine struct {
	Name     string
	Barcode  string
	Location string
}

type NewItem struct {
	MachineID int
	Prompt    string
	// Ordinal of zero appends after the machine's last item.
	Ordinal int
}

// ReportFilter narrows ListReports. The zero value matches every report.
type ReportFilter struct {
	OperatorID int
}

// Response answers one checklist item in a submission.
type Response struct {
	ItemID   int          `json:"item" yaml:"item"`
	Status   DetailStatus `json:"status" yaml:"status"`
	Note     string       `json:"note,omitempty" yaml:"note,omitempty"`
	PhotoURL string       `json:"photo,omitempty" yaml:"photo,omitempty"`
}

// Submission is a completed checklist for one machine.
type Submission struct {
	MachineID  int
	OperatorID int
	Responses  []Response
}

// SubmitResult reports the ids assigned by SubmitChecklist.
type SubmitResult struct {
	ReportID  int
	DetailIDs []int
}

// MachineIssues counts Not OK answers for one machine.
type MachineIssues struct {
	Machine string `json:"machine"`
	Issues  int    `json:"issues"`
}

// DashboardStats is the supervisor overview.
type DashboardStats struct {
	TotalReports    int             `json:"total_reports"`
	ReportsToday    int             `json:"reports_today"`
	NotOKItems      int             `json:"not_ok_items"`
	ActiveOperators int             `json:"active_operators"`
	TopIssues       []MachineIssues `json:"top_issues"`
}
