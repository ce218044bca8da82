package simulate

import (
	"context"
	"errors"

	repository "github.com/okian/mjledger/internal/adapters/repository"
	service "github.com/okian/mjledger/internal/app"
	"github.com/okian/mjledger/internal/domain/model"
	"github.com/okian/mjledger/internal/domain/stats"
	"github.com/okian/mjledger/internal/domain/types"
)

// Local drives a started service in-process.
type Local struct {
	svc *service.Service
}

// NewLocal wraps svc.
func NewLocal(svc *service.Service) *Local { return &Local{svc: svc} }

// Record submits one round through the service.
func (l *Local) Record(ctx context.Context, req types.RecordRequest) (model.AppendResult, Outcome, error) {
	date, err := l.svc.ParseDate(req.Date)
	if err != nil {
		return model.AppendResult{}, OutcomeRejected, err
	}
	sub, err := req.Submission(date)
	if err != nil {
		return model.AppendResult{}, OutcomeRejected, err
	}
	res, replay, err := l.svc.AddRecord(ctx, sub)
	switch {
	case err != nil && !res.Success:
		if errors.Is(err, service.ErrInvalidSubmission) ||
			errors.Is(err, repository.ErrSheetFull) || errors.Is(err, repository.ErrNoSheetName) {
			return res, OutcomeRejected, err
		}
		return res, OutcomeFailed, err
	case replay:
		return res, OutcomeReplayed, nil
	default:
		return res, OutcomeWritten, nil
	}
}

// Stats returns the unfiltered stats table.
func (l *Local) Stats(ctx context.Context) ([]stats.Row, error) {
	return l.svc.Stats(ctx, service.Query{Sort: stats.ColumnName})
}
