package store

import (
	"context"
	"strings"

	"dokan/backend/internal/domain"
	"dokan/backend/internal/events"
	"dokan/backend/internal/sequence"
)

func terminal(s domain.ServiceJobStatus) bool {
	return s == domain.JobDelivered || s == domain.JobCancelled
}

// AddServiceJob opens a repair job in the received state.
func (st *Store) AddServiceJob(ctx context.Context, req domain.ServiceJobRequest) (domain.ServiceJob, error) {
	if err := st.check(req); err != nil {
		return domain.ServiceJob{}, err
	}
	var out domain.ServiceJob
	err := st.mutate(ctx, "AddServiceJob", func(t *tx) error {
		if err := requireRef(t, customers, req.CustomerID); err != nil {
			return err
		}
		number, err := t.nextNumber(sequence.ServiceJob)
		if err != nil {
			return err
		}
		job := domain.ServiceJob{
			ID:         t.newID(serviceJobs.prefix),
			JobNumber:  number,
			CustomerID: req.CustomerID,
			Device:     strings.TrimSpace(req.Device),
			Problem:    req.Problem,
			Status:     domain.JobReceived,
			StatusHistory: domain.NewStatusLog(domain.StatusEntry{
				Status:    domain.JobReceived,
				Timestamp: t.now,
			}),
			CreatedAt: t.now,
		}
		serviceJobs.insert(t.s, job)
		t.emit(events.Created, FamilyServiceJobs, job.ID)
		out = job
		return nil
	})
	return out, err
}

// UpdateServiceJob edits a job. A status change appends one history entry;
// delivered and cancelled jobs accept no further changes.
func (st *Store) UpdateServiceJob(ctx context.Context, id string, upd domain.ServiceJobUpdate) (domain.ServiceJob, error) {
	if upd.Status != nil && !upd.Status.Valid() {
		return domain.ServiceJob{}, invalidf("unknown service job status %q", *upd.Status)
	}
	if upd.Device != nil && strings.TrimSpace(*upd.Device) == "" {
		return domain.ServiceJob{}, invalidf("device must not be empty")
	}
	var out domain.ServiceJob
	err := st.mutate(ctx, "UpdateServiceJob", func(t *tx) error {
		job, err := serviceJobs.get(t.s, id)
		if err != nil {
			return err
		}
		if terminal(job.Status) {
			return preconditionf("service job %s is %s", job.JobNumber, job.Status)
		}
		if upd.Device != nil {
			job.Device = strings.TrimSpace(*upd.Device)
		}
		if upd.Problem != nil {
			job.Problem = *upd.Problem
		}
		if upd.Status != nil && *upd.Status != job.Status {
			job.Status = *upd.Status
			job.StatusHistory = job.StatusHistory.Append(domain.StatusEntry{Status: job.Status, Timestamp: t.now})
		}
		if err := serviceJobs.put(t.s, job); err != nil {
			return err
		}
		t.emit(events.Updated, FamilyServiceJobs, id)
		out = job
		return nil
	})
	return out, err
}

func (st *Store) DeleteServiceJob(ctx context.Context, id string) error {
	return st.Delete(ctx, FamilyServiceJobs, id)
}

func (st *Store) ServiceJob(id string) (domain.ServiceJob, error) {
	return getRow(st, serviceJobs, id)
}

func (st *Store) ServiceJobs(status domain.ServiceJobStatus) []domain.ServiceJob {
	return listRows(st, serviceJobs, func(j domain.ServiceJob) bool {
		return status == "" || j.Status == status
	})
}
