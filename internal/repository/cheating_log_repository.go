package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CheatingLogRepository handles cheating log persistence. One row exists per
// exam and student email; repeated saves merge additively so a late or
// partial report can never shrink an existing log.
type CheatingLogRepository struct {
	pool *pgxpool.Pool
}

// NewCheatingLogRepository creates a new CheatingLogRepository.
func NewCheatingLogRepository(pool *pgxpool.Pool) *CheatingLogRepository {
	return &CheatingLogRepository{pool: pool}
}

const cheatingLogColumns = `id, exam_id, username, email, no_face_count, multiple_face_count,
	        cell_phone_count, prohibited_object_count, screenshots, reason, created_at`

// Upsert inserts or merges a cheating log. Counters add, screenshots append,
// and username is only overwritten by a non-empty value.
func (r *CheatingLogRepository) Upsert(ctx context.Context, l *model.CheatingLog) error {
	shots, err := json.Marshal(l.Screenshots)
	if err != nil {
		return fmt.Errorf("marshal screenshots: %w", err)
	}

	return r.pool.QueryRow(ctx,
		`INSERT INTO cheating_logs (exam_id, username, email, no_face_count, multiple_face_count,
		                            cell_phone_count, prohibited_object_count, screenshots, reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (exam_id, email) DO UPDATE SET
		   no_face_count           = cheating_logs.no_face_count + EXCLUDED.no_face_count,
		   multiple_face_count     = cheating_logs.multiple_face_count + EXCLUDED.multiple_face_count,
		   cell_phone_count        = cheating_logs.cell_phone_count + EXCLUDED.cell_phone_count,
		   prohibited_object_count = cheating_logs.prohibited_object_count + EXCLUDED.prohibited_object_count,
		   screenshots             = cheating_logs.screenshots || EXCLUDED.screenshots,
		   username                = CASE WHEN EXCLUDED.username <> '' THEN EXCLUDED.username
		                                  ELSE cheating_logs.username END,
		   reason                  = CASE WHEN EXCLUDED.reason <> '' THEN EXCLUDED.reason
		                                  ELSE cheating_logs.reason END
		 RETURNING id, created_at`,
		l.ExamID, l.Username, l.Email, l.NoFaceCount, l.MultipleFaceCount,
		l.CellPhoneCount, l.ProhibitedObjectCount, shots, l.Reason,
	).Scan(&l.ID, &l.CreatedAt)
}

// GetByExamAndEmail retrieves the log for one student in one exam.
func (r *CheatingLogRepository) GetByExamAndEmail(ctx context.Context, examID uuid.UUID, email string) (*model.CheatingLog, error) {
	l, err := scanCheatingLog(r.pool.QueryRow(ctx,
		`SELECT `+cheatingLogColumns+`
		 FROM cheating_logs WHERE exam_id = $1 AND email = $2`, examID, email))
	if err != nil {
		return nil, err
	}
	return l, nil
}

// ListByExam retrieves all logs recorded for an exam, worst offenders first.
func (r *CheatingLogRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.CheatingLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+cheatingLogColumns+`
		 FROM cheating_logs WHERE exam_id = $1
		 ORDER BY no_face_count + multiple_face_count + cell_phone_count + prohibited_object_count DESC`,
		examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []model.CheatingLog
	for rows.Next() {
		var l model.CheatingLog
		var shots []byte
		if err := rows.Scan(&l.ID, &l.ExamID, &l.Username, &l.Email, &l.NoFaceCount, &l.MultipleFaceCount,
			&l.CellPhoneCount, &l.ProhibitedObjectCount, &shots, &l.Reason, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cheating log: %w", err)
		}
		if len(shots) > 0 {
			if err := json.Unmarshal(shots, &l.Screenshots); err != nil {
				return nil, fmt.Errorf("unmarshal screenshots: %w", err)
			}
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// ViolationCounts returns total violations per student email for an exam.
// Used by the live monitor to build its subscription snapshot.
func (r *CheatingLogRepository) ViolationCounts(ctx context.Context, examID uuid.UUID) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT email,
		        no_face_count + multiple_face_count + cell_phone_count + prohibited_object_count
		 FROM cheating_logs WHERE exam_id = $1`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var email string
		var n int64
		if err := rows.Scan(&email, &n); err != nil {
			return nil, err
		}
		counts[email] = n
	}
	return counts, rows.Err()
}

func scanCheatingLog(row pgx.Row) (*model.CheatingLog, error) {
	l := &model.CheatingLog{}
	var shots []byte
	err := row.Scan(&l.ID, &l.ExamID, &l.Username, &l.Email, &l.NoFaceCount, &l.MultipleFaceCount,
		&l.CellPhoneCount, &l.ProhibitedObjectCount, &shots, &l.Reason, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(shots) > 0 {
		if err := json.Unmarshal(shots, &l.Screenshots); err != nil {
			return nil, fmt.Errorf("unmarshal screenshots: %w", err)
		}
	}
	return l, nil
}
