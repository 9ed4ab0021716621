package store

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"dokan/backend/internal/domain"
	"dokan/backend/internal/events"
	"dokan/backend/internal/sequence"
)

func itemIDs(c domain.Challan) []string {
	ids := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		ids = append(ids, item.InventoryItemID)
	}
	return ids
}

func TestBillingEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.challan(t, f.line("SN-1"), f.line("SN-2"))
	if c.ChallanNumber != "CH-02102024-001" {
		t.Fatalf("expected challan number in the business time zone, got %s", c.ChallanNumber)
	}
	if c.Status != domain.ChallanPending || len(c.Items) != 2 {
		t.Fatalf("unexpected new challan %+v", c)
	}
	billable, err := f.st.BillableItems(c.ID)
	if err != nil || len(billable) != 2 {
		t.Fatalf("expected 2 billable items, got %d (%v)", len(billable), err)
	}
	ids := itemIDs(c)

	tendered := decimal.NewFromInt(3000)
	first, err := f.st.AddOrder(ctx, domain.Order{AmountTendered: &tendered}, ids[:1])
	if err != nil {
		t.Fatalf("bill first item: %v", err)
	}
	if first.OrderNumber != "02102024-0001" {
		t.Fatalf("unexpected order number %s", first.OrderNumber)
	}
	if first.CustomerID != f.customer.ID || first.ChallanID != c.ID {
		t.Fatalf("expected customer and challan inherited, got %+v", first)
	}
	if len(first.Items) != 1 || first.Items[0].InventoryItemID != ids[0] || first.Items[0].Quantity != 1 {
		t.Fatalf("expected lines built from the challan, got %+v", first.Items)
	}
	if !first.Total.Equal(decimal.NewFromInt(2500)) || !first.ChangeDue.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("unexpected totals: total %s change %s", first.Total, first.ChangeDue)
	}
	if first.TenderStatus != domain.TenderPaid {
		t.Fatalf("expected paid, got %s", first.TenderStatus)
	}

	got, _ := f.st.Challan(c.ID)
	if got.Status != domain.ChallanPartiallyBilled {
		t.Fatalf("expected partially-billed, got %s", got.Status)
	}
	item, _ := f.st.InventoryItem(ids[0])
	if item.Status != domain.InventorySold || item.OrderID != first.ID {
		t.Fatalf("expected sold item linked to the order, got %+v", item)
	}
	billable, _ = f.st.BillableItems(c.ID)
	if len(billable) != 1 || billable[0].ID != ids[1] {
		t.Fatalf("expected only the second item billable, got %+v", billable)
	}

	if _, err := f.st.AddOrder(ctx, domain.Order{}, ids[1:]); err != nil {
		t.Fatalf("bill second item: %v", err)
	}
	got, _ = f.st.Challan(c.ID)
	if got.Status != domain.ChallanFullyBilled {
		t.Fatalf("expected fully-billed, got %s", got.Status)
	}
	if problems := f.st.Verify(); len(problems) != 0 {
		t.Fatalf("expected a consistent snapshot, got %v", problems)
	}
}

func TestAddOrderRejectsOverBilling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.challan(t, f.line("SN-1"))
	other := f.challan(t, f.line("SN-2"))
	ids := itemIDs(c)

	tests := []struct {
		name string
		ids  []string
	}{
		{"duplicate", []string{ids[0], ids[0]}},
		{"unknown", []string{"inv-missing"}},
		{"two challans", []string{ids[0], itemIDs(other)[0]}},
	}
	for _, tc := range tests {
		if _, err := f.st.AddOrder(ctx, domain.Order{}, tc.ids); !errors.Is(err, ErrPrecondition) {
			t.Fatalf("%s: expected precondition error, got %v", tc.name, err)
		}
	}

	if _, err := f.st.AddOrder(ctx, domain.Order{}, ids); err != nil {
		t.Fatalf("bill: %v", err)
	}
	if _, err := f.st.AddOrder(ctx, domain.Order{}, ids); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected billing a sold item to fail, got %v", err)
	}
	if n := len(f.st.Orders("")); n != 1 {
		t.Fatalf("expected one order, got %d", n)
	}
}

func TestAddOrderLinesMustCarryBilledItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cable := domain.ChallanLine{ProductID: f.secondary.ID, Name: "Patch cable", Price: decimal.NewFromInt(150)}
	c := f.challan(t, f.line("SN-1"), cable)
	ids := itemIDs(c)
	routerLine := domain.OrderLine{ProductID: f.product.ID, InventoryItemID: ids[0], Name: "Router", SerialNumber: "SN-1", Quantity: 1, Price: decimal.NewFromInt(2400)}
	cableLine := domain.OrderLine{ProductID: f.secondary.ID, InventoryItemID: ids[1], Name: "Patch cable", Quantity: 1, Price: decimal.NewFromInt(150)}

	tests := []struct {
		name   string
		lines  []domain.OrderLine
		billed []string
	}{
		{"unrelated line", []domain.OrderLine{{Name: "freebie", Quantity: 1}}, ids[:1]},
		{"line for an unbilled item", []domain.OrderLine{routerLine, cableLine}, ids[:1]},
		{"item on two lines", []domain.OrderLine{routerLine, routerLine}, ids[:1]},
		{"item line without billing", []domain.OrderLine{cableLine}, nil},
	}
	for _, tc := range tests {
		if _, err := f.st.AddOrder(ctx, domain.Order{Items: tc.lines}, tc.billed); !errors.Is(err, ErrPrecondition) {
			t.Fatalf("%s: expected precondition error, got %v", tc.name, err)
		}
	}
	bulk := routerLine
	bulk.Quantity = 2
	if _, err := f.st.AddOrder(ctx, domain.Order{Items: []domain.OrderLine{bulk}}, ids[:1]); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected an item line with quantity 2 to be invalid, got %v", err)
	}
	if item, _ := f.st.InventoryItem(ids[0]); item.Status != domain.InventoryAllocated {
		t.Fatalf("rejected orders must not sell items, got %s", item.Status)
	}
	if n := len(f.st.Orders("")); n != 0 {
		t.Fatalf("rejected orders must not be stored, got %d", n)
	}

	labour := domain.OrderLine{Name: "Installation", Quantity: 1, Price: decimal.NewFromInt(300)}
	o, err := f.st.AddOrder(ctx, domain.Order{Items: []domain.OrderLine{routerLine, labour}}, ids[:1])
	if err != nil {
		t.Fatalf("add order: %v", err)
	}
	if !o.Total.Equal(decimal.NewFromInt(2700)) {
		t.Fatalf("expected the given lines to be charged, got %s", o.Total)
	}
	got, _ := f.st.Challan(c.ID)
	if got.Status != domain.ChallanPartiallyBilled {
		t.Fatalf("expected partially-billed, got %s", got.Status)
	}
}

func TestAddOrderRejectsItemsOfAnotherChallan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.challan(t, f.line("SN-1"))
	b := f.challan(t, f.line("SN-2"))

	if _, err := f.st.AddOrder(ctx, domain.Order{ChallanID: a.ID}, itemIDs(b)); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected items of another challan to be rejected, got %v", err)
	}
	if _, err := f.st.AddOrder(ctx, domain.Order{ChallanID: a.ID, Items: []domain.OrderLine{{Name: "Labour", Quantity: 1}}}, nil); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected a challan order without items to be rejected, got %v", err)
	}
	if got, _ := f.st.Challan(b.ID); got.Status != domain.ChallanPending {
		t.Fatalf("expected the other challan untouched, got %s", got.Status)
	}

	o, err := f.st.AddOrder(ctx, domain.Order{ChallanID: a.ID}, itemIDs(a))
	if err != nil {
		t.Fatalf("add order: %v", err)
	}
	if o.ChallanID != a.ID {
		t.Fatalf("expected order on challan %s, got %s", a.ID, o.ChallanID)
	}
}

func TestAddOrderPricing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	line := domain.OrderLine{ProductID: f.secondary.ID, Name: "Patch cable", Quantity: 4, Price: decimal.NewFromInt(150)}

	tendered := decimal.NewFromInt(200)
	o, err := f.st.AddOrder(ctx, domain.Order{
		Items:          []domain.OrderLine{line},
		DiscountAmount: decimal.NewFromInt(100),
		AmountTendered: &tendered,
		Subtotal:       decimal.NewFromInt(1),
	}, nil)
	if err != nil {
		t.Fatalf("add order: %v", err)
	}
	if !o.Subtotal.Equal(decimal.NewFromInt(600)) || !o.Total.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected recomputed totals, got subtotal %s total %s", o.Subtotal, o.Total)
	}
	if !o.ChangeDue.IsZero() || o.TenderStatus != domain.TenderPartial {
		t.Fatalf("expected partial tender without change, got %s %s", o.ChangeDue, o.TenderStatus)
	}

	invalid := []domain.Order{
		{},
		{Items: []domain.OrderLine{{Name: "x", Quantity: 0, Price: decimal.NewFromInt(1)}}},
		{Items: []domain.OrderLine{line}, DiscountAmount: decimal.NewFromInt(601)},
		{Items: []domain.OrderLine{line}, DiscountAmount: decimal.NewFromInt(-1)},
	}
	for i, order := range invalid {
		if _, err := f.st.AddOrder(ctx, order, nil); !errors.Is(err, ErrInvalid) {
			t.Fatalf("case %d: expected invalid, got %v", i, err)
		}
	}
}

func TestCustomerDueSeparatesTenderFromCollections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.challan(t, f.line("SN-1"))

	tendered := decimal.NewFromInt(1000)
	o, err := f.st.AddOrder(ctx, domain.Order{AmountTendered: &tendered}, itemIDs(c))
	if err != nil {
		t.Fatalf("add order: %v", err)
	}
	if o.TenderStatus != domain.TenderPartial {
		t.Fatalf("expected partial tender, got %s", o.TenderStatus)
	}
	due, err := f.st.CustomerDue(f.customer.ID)
	if err != nil || !due.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("expected due 1500, got %s (%v)", due, err)
	}

	if _, err := f.st.AddCollection(ctx, domain.Collection{CustomerID: f.customer.ID, Amount: decimal.NewFromInt(1500)}); err != nil {
		t.Fatalf("add collection: %v", err)
	}
	due, _ = f.st.CustomerDue(f.customer.ID)
	if !due.IsZero() {
		t.Fatalf("expected settled due, got %s", due)
	}
	stored, _ := f.st.Order(o.ID)
	if stored.TenderStatus != domain.TenderPartial {
		t.Fatalf("collections must not rewrite the order's tender status, got %s", stored.TenderStatus)
	}

	if _, err := f.st.AddCollection(ctx, domain.Collection{CustomerID: f.customer.ID}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected invalid zero collection, got %v", err)
	}
	if _, err := f.st.CustomerDue("cus-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteOrderRevertsBilling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.challan(t, f.line("SN-1"), f.line("SN-2"))
	job, err := f.st.AddServiceJob(ctx, domain.ServiceJobRequest{CustomerID: f.customer.ID, Device: "Router"})
	if err != nil {
		t.Fatalf("add job: %v", err)
	}
	o, err := f.st.AddOrder(ctx, domain.Order{ServiceJobID: job.ID}, itemIDs(c))
	if err != nil {
		t.Fatalf("add order: %v", err)
	}
	linked, _ := f.st.ServiceJob(job.ID)
	if linked.OrderID != o.ID {
		t.Fatalf("expected job linked to order, got %q", linked.OrderID)
	}
	if _, err := f.st.AddOrder(ctx, domain.Order{ServiceJobID: job.ID, Items: []domain.OrderLine{{Name: "Labour", Quantity: 1}}}, nil); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected billed job to be rejected, got %v", err)
	}
	if err := f.st.DeleteServiceJob(ctx, job.ID); !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected job delete blocked by order, got %v", err)
	}

	if err := f.st.DeleteOrder(ctx, o.ID); err != nil {
		t.Fatalf("delete order: %v", err)
	}
	got, _ := f.st.Challan(c.ID)
	if got.Status != domain.ChallanPending {
		t.Fatalf("expected challan back to pending, got %s", got.Status)
	}
	billable, _ := f.st.BillableItems(c.ID)
	if len(billable) != 2 || billable[0].OrderID != "" {
		t.Fatalf("expected both items allocated again, got %+v", billable)
	}
	unlinked, _ := f.st.ServiceJob(job.ID)
	if unlinked.OrderID != "" {
		t.Fatalf("expected job unlinked, got %q", unlinked.OrderID)
	}
	if _, err := f.st.Order(o.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected order gone, got %v", err)
	}
	if f.events.count(events.Deleted, FamilyOrders) != 1 {
		t.Fatal("expected an order deleted event")
	}
	if problems := f.st.Verify(); len(problems) != 0 {
		t.Fatalf("expected a consistent snapshot, got %v", problems)
	}
}

func TestChallanPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.st.AddChallan(ctx, domain.ChallanBlueprint{CustomerID: f.customer.ID}); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected precondition for empty blueprint, got %v", err)
	}
	if _, err := f.st.AddChallan(ctx, domain.ChallanBlueprint{CustomerID: "cus-missing", Lines: []domain.ChallanLine{f.line("")}}); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected precondition for unknown customer, got %v", err)
	}
	f.challan(t, f.line("SN-1"))
	if _, err := f.st.AddChallan(ctx, domain.ChallanBlueprint{CustomerID: f.customer.ID, Lines: []domain.ChallanLine{f.line("SN-1")}}); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected duplicate serial to be rejected, got %v", err)
	}
	if n := len(f.st.Challans("")); n != 1 {
		t.Fatalf("rejected challans must not be stored, got %d", n)
	}
	if cursor := f.st.Snapshot().ChallanSequence; cursor.Serial != 1 {
		t.Fatalf("rejected challans must not advance the cursor, got %+v", cursor)
	}
}

func TestCancelAndDeleteChallan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.challan(t, f.line("SN-1"))
	cancelled, err := f.st.CancelChallan(ctx, c.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.ChallanCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if items := f.st.InventoryItems(domain.InventoryReleased); len(items) != 1 {
		t.Fatalf("expected released item, got %d", len(items))
	}
	if _, err := f.st.AddOrder(ctx, domain.Order{}, itemIDs(c)); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected released item not billable, got %v", err)
	}
	if _, err := f.st.CancelChallan(ctx, c.ID); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected second cancel to fail, got %v", err)
	}
	f.challan(t, f.line("SN-1"))

	billed := f.challan(t, f.line("SN-9"))
	if _, err := f.st.AddOrder(ctx, domain.Order{}, itemIDs(billed)); err != nil {
		t.Fatalf("bill: %v", err)
	}
	var ierr *IntegrityError
	if err := f.st.DeleteChallan(ctx, billed.ID); !errors.As(err, &ierr) || ierr.ReferencedBy != FamilyInventoryItems {
		t.Fatalf("expected delete blocked by a sold item, got %v", err)
	}
	if _, err := f.st.CancelChallan(ctx, billed.ID); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected fully-billed challan not cancellable, got %v", err)
	}

	if err := f.st.DeleteChallan(ctx, c.ID); err != nil {
		t.Fatalf("delete cancelled challan: %v", err)
	}
	if _, err := f.st.InventoryItem(itemIDs(c)[0]); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected inventory items removed with the challan, got %v", err)
	}
}

func TestCancelPartiallyBilledChallan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.challan(t, f.line("SN-1"), f.line("SN-2"))
	ids := itemIDs(c)

	o, err := f.st.AddOrder(ctx, domain.Order{}, ids[:1])
	if err != nil {
		t.Fatalf("bill first item: %v", err)
	}
	cancelled, err := f.st.CancelChallan(ctx, c.ID)
	if err != nil {
		t.Fatalf("cancel partially billed challan: %v", err)
	}
	if cancelled.Status != domain.ChallanCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	sold, _ := f.st.InventoryItem(ids[0])
	released, _ := f.st.InventoryItem(ids[1])
	if sold.Status != domain.InventorySold || sold.OrderID != o.ID || released.Status != domain.InventoryReleased {
		t.Fatalf("expected the sold item kept and the rest released, got %s and %s", sold.Status, released.Status)
	}
	if problems := f.st.Verify(); len(problems) != 0 {
		t.Fatalf("expected a consistent snapshot, got %v", problems)
	}
	if err := f.st.DeleteChallan(ctx, c.ID); !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected delete blocked by the sold item, got %v", err)
	}

	if err := f.st.DeleteOrder(ctx, o.ID); err != nil {
		t.Fatalf("delete order: %v", err)
	}
	reverted, _ := f.st.InventoryItem(ids[0])
	if reverted.Status != domain.InventoryReleased || reverted.OrderID != "" {
		t.Fatalf("expected the reverted item released on a cancelled challan, got %+v", reverted)
	}
	if got, _ := f.st.Challan(c.ID); got.Status != domain.ChallanCancelled {
		t.Fatalf("expected the challan to stay cancelled, got %s", got.Status)
	}
	if billable, _ := f.st.BillableItems(c.ID); len(billable) != 0 {
		t.Fatalf("a cancelled challan has nothing to bill, got %+v", billable)
	}
	if err := f.st.DeleteChallan(ctx, c.ID); err != nil {
		t.Fatalf("delete cancelled challan: %v", err)
	}
}

func TestStaleCursorSkipsTakenNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.challan(t, f.line("SN-1"))

	restored := f.st.Snapshot()
	restored.ChallanSequence.Serial = 0
	if err := f.st.Replace(ctx, restored); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if next, _ := f.st.PeekNumber(sequence.Challan); next != "CH-02102024-002" {
		t.Fatalf("expected the preview to skip %s, got %s", first.ChallanNumber, next)
	}
	if cursor := f.st.Snapshot().ChallanSequence; cursor.Serial != 0 {
		t.Fatalf("a preview must not move the cursor, got %+v", cursor)
	}
	if _, err := f.st.PeekNumber(sequence.Family("invoice")); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected unknown family to be invalid, got %v", err)
	}

	second := f.challan(t, f.line("SN-2"))
	if second.ChallanNumber != "CH-02102024-002" {
		t.Fatalf("expected the taken number to be skipped, got %s", second.ChallanNumber)
	}
	if cursor := f.st.Snapshot().ChallanSequence; cursor.Serial != 2 || cursor.Date != "2024-10-02" {
		t.Fatalf("unexpected cursor %+v", cursor)
	}

	var buf bytes.Buffer
	if err := f.metrics.WriteText(&buf); err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if !strings.Contains(buf.String(), `backoffice_sequence_skips_total{family="challan"} 1`) {
		t.Fatalf("expected one recorded skip:\n%s", buf.String())
	}
}

func TestServiceJobHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	job, err := f.st.AddServiceJob(ctx, domain.ServiceJobRequest{CustomerID: f.customer.ID, Device: "  Laptop ", Problem: "No power"})
	if err != nil {
		t.Fatalf("add job: %v", err)
	}
	if job.JobNumber != "SJ-02102024-001" || job.Device != "Laptop" || job.StatusHistory.Len() != 1 {
		t.Fatalf("unexpected job %+v", job)
	}

	inProgress := domain.JobInProgress
	updated, err := f.st.UpdateServiceJob(ctx, job.ID, domain.ServiceJobUpdate{Status: &inProgress})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.StatusHistory.Len() != 2 || !updated.StatusHistory.Extends(job.StatusHistory) {
		t.Fatalf("expected an appended history entry, got %+v", updated.StatusHistory.Entries())
	}

	problem := "Replaced adapter"
	same, err := f.st.UpdateServiceJob(ctx, job.ID, domain.ServiceJobUpdate{Status: &inProgress, Problem: &problem})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if same.StatusHistory.Len() != 2 || same.Problem != problem {
		t.Fatalf("unchanged status must not append history, got %d entries", same.StatusHistory.Len())
	}

	bogus := domain.ServiceJobStatus("lost")
	if _, err := f.st.UpdateServiceJob(ctx, job.ID, domain.ServiceJobUpdate{Status: &bogus}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected invalid status, got %v", err)
	}

	delivered := domain.JobDelivered
	if _, err := f.st.UpdateServiceJob(ctx, job.ID, domain.ServiceJobUpdate{Status: &delivered}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if _, err := f.st.UpdateServiceJob(ctx, job.ID, domain.ServiceJobUpdate{Problem: &problem}); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected delivered job to be final, got %v", err)
	}
	if jobs := f.st.ServiceJobs(domain.JobDelivered); len(jobs) != 1 {
		t.Fatalf("expected one delivered job, got %d", len(jobs))
	}
}

func TestRepairRederivesStaleStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.challan(t, f.line("SN-1"))

	f.st.mu.Lock()
	f.st.state.Challans[0].Status = domain.ChallanFullyBilled
	f.st.mu.Unlock()

	if problems := f.st.Verify(); len(problems) != 1 || !strings.Contains(problems[0], c.ChallanNumber) {
		t.Fatalf("expected one stale challan reported, got %v", problems)
	}
	changed, err := f.st.Repair(ctx)
	if err != nil || changed != 1 {
		t.Fatalf("expected one repaired challan, got %d (%v)", changed, err)
	}
	if problems := f.st.Verify(); len(problems) != 0 {
		t.Fatalf("expected clean snapshot after repair, got %v", problems)
	}
}
