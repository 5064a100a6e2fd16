package checklist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"checkround/pkg/store"
)

func TestSubmitChecklist(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.seed(t)

	// answered out of order; details are saved in ordinal order
	res, err := f.repo.SubmitChecklist(ctx, Submission{
		MachineID:  1,
		OperatorID: 1,
		Responses: []Response{
			{ItemID: 3, Status: StatusOK},
			{ItemID: 1, Status: StatusNotOK, Note: "low", PhotoURL: "file:///oil.jpg"},
			{ItemID: 2, Status: StatusOK},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.ReportID)
	require.Equal(t, []int{1, 2, 3}, res.DetailIDs)

	report, found, err := f.repo.GetReport(ctx, res.ReportID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, ReportCompleted, report.Status)
	require.True(t, report.InspectedAt.Equal(fixedNow))

	details, err := f.repo.ListChecklistDetails(ctx, res.ReportID)
	require.NoError(t, err)
	require.Len(t, details, 3)
	require.Equal(t, []int{1, 2, 3}, []int{details[0].ItemID, details[1].ItemID, details[2].ItemID})
	require.Equal(t, StatusNotOK, details[0].Status)
	require.Equal(t, "low", details[0].Note)
	require.Equal(t, "file:///oil.jpg", details[0].PhotoURL)
}

func TestSubmitChecklistIncomplete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.seed(t)

	_, err := f.repo.SubmitChecklist(ctx, Submission{
		MachineID:  1,
		OperatorID: 1,
		Responses: []Response{
			{ItemID: 1, Status: StatusOK},
			{ItemID: 2, Status: StatusNotApplicable},
		},
	})
	var incomplete *IncompleteError
	require.ErrorAs(t, err, &incomplete)
	require.Equal(t, 2, incomplete.Remaining)

	reports, err := store.Read[ChecklistReport](ctx, f.store, ReportsContainer)
	require.NoError(t, err)
	require.Empty(t, reports)
}

func TestSubmitChecklistRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.seed(t)

	_, err := f.repo.SubmitChecklist(ctx, Submission{MachineID: 9, OperatorID: 1})
	require.ErrorIs(t, err, ErrMachineNotFound)

	// item 4 belongs to machine 2
	_, err = f.repo.SubmitChecklist(ctx, Submission{
		MachineID:  3,
		OperatorID: 1,
		Responses:  []Response{{ItemID: 4, Status: StatusOK}},
	})
	require.ErrorIs(t, err, ErrUnknownItem)

	_, err = f.repo.SubmitChecklist(ctx, Submission{
		MachineID:  3,
		OperatorID: 1,
		Responses:  []Response{{ItemID: 6, Status: "fine"}},
	})
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestAddMachine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.seed(t)

	m, err := f.repo.AddMachine(ctx, NewMachine{Name: " Drill Press 04 ", Barcode: "DRL004", Location: "Workshop C"})
	require.NoError(t, err)
	require.Equal(t, 4, m.ID)
	require.Equal(t, "Drill Press 04", m.Name)
	require.NotNil(t, m.CreatedAt)

	found, ok, err := f.repo.FindMachineByBarcode(ctx, "DRL004")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, m.ID, found.ID)

	_, err = f.repo.AddMachine(ctx, NewMachine{Name: "Copy", Barcode: "CNC001"})
	require.ErrorIs(t, err, ErrDuplicateBarcode)

	_, err = f.repo.AddMachine(ctx, NewMachine{Name: "", Barcode: "X"})
	require.ErrorIs(t, err, ErrInvalidInput)

	got, ok, err := f.repo.GetMachine(ctx, 4)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Workshop C", got.Location)
}

func TestAddChecklistItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.seed(t)

	item, err := f.repo.AddChecklistItem(ctx, NewItem{MachineID: 2, Prompt: "Check Guard Rails"})
	require.NoError(t, err)
	require.Equal(t, 7, item.ID)
	require.Equal(t, 3, item.Ordinal)

	item, err = f.repo.AddChecklistItem(ctx, NewItem{MachineID: 3, Prompt: "Check Vise", Ordinal: 10})
	require.NoError(t, err)
	require.Equal(t, 8, item.ID)
	require.Equal(t, 10, item.Ordinal)

	_, err = f.repo.AddChecklistItem(ctx, NewItem{MachineID: 99, Prompt: "Check Nothing"})
	require.ErrorIs(t, err, ErrMachineNotFound)

	_, err = f.repo.AddChecklistItem(ctx, NewItem{MachineID: 1, Prompt: "   "})
	require.ErrorIs(t, err, ErrInvalidInput)

	items, err := f.repo.ListChecklistItems(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, "Check Guard Rails", items[len(items)-1].Prompt)
}

func TestMetricsRecordOperations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	_, err := f.repo.CreateReport(ctx, NewReport{MachineID: 1, OperatorID: 1})
	require.NoError(t, err)
	require.NoError(t, f.backend.Put(ctx, string(MachinesContainer), []byte("{")))
	_, err = f.repo.ListMachines(ctx)
	require.Error(t, err)

	families, err := f.metrics.Gatherer().Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range m.GetLabel() {
				key += "|" + lp.GetName() + "=" + lp.GetValue()
			}
			if c := m.GetCounter(); c != nil {
				counts[key] = c.GetValue()
			}
		}
	}
	require.Equal(t, 1.0, counts["checkround_repository_operations_total|op=create_report|result=ok"])
	require.Equal(t, 1.0, counts["checkround_repository_operations_total|op=list_machines|result=error"])
	require.Equal(t, 1.0, counts["checkround_store_errors_total|container=machines|kind=corrupt|op=read"])
}
