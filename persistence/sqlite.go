package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/luoxifan/agentgraph/flow"
	"github.com/luoxifan/agentgraph/types"
)

// flowRun is the snapshot header row.
type flowRun struct {
	RunID        string    `gorm:"primaryKey;column:run_id"`
	CurrentAgent string    `gorm:"column:current_agent"`
	FlowParams   string    `gorm:"column:flow_params"`
	TakenAt      time.Time `gorm:"column:taken_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (flowRun) TableName() string { return "flow_runs" }

// flowStepRecord is one history entry of a run.
type flowStepRecord struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	RunID     string    `gorm:"index;column:run_id"`
	Seq       int       `gorm:"column:seq"`
	AgentName string    `gorm:"column:agent_name"`
	Action    string    `gorm:"column:action"`
	Result    string    `gorm:"column:result"`
	Metadata  string    `gorm:"column:metadata"`
	Timestamp time.Time `gorm:"column:timestamp"`
}

func (flowStepRecord) TableName() string { return "flow_step_records" }

// SQLiteStore persists snapshots in a SQLite database: one header row per run
// plus ordered step rows. Step payloads are JSON-encoded.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (or creates) the database at path and migrates the
// schema. Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, types.NewError(types.ErrStoreUnavailable, "open sqlite database").WithCause(err)
	}
	if err := db.AutoMigrate(&flowRun{}, &flowStepRecord{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, snap *flow.Snapshot) error {
	if snap == nil || snap.RunID == "" {
		return errInvalidSnapshot()
	}

	params, err := json.Marshal(snap.FlowParams)
	if err != nil {
		return fmt.Errorf("marshal flow params: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		run := flowRun{
			RunID:        snap.RunID,
			CurrentAgent: snap.CurrentAgent,
			FlowParams:   string(params),
			TakenAt:      snap.TakenAt,
			UpdatedAt:    time.Now(),
		}
		if err := tx.Save(&run).Error; err != nil {
			return err
		}

		// Saving replaces the whole history: snapshots are whole-state
		// copies, not deltas.
		if err := tx.Where("run_id = ?", snap.RunID).Delete(&flowStepRecord{}).Error; err != nil {
			return err
		}
		for i, rec := range snap.History {
			result, err := json.Marshal(rec.Result)
			if err != nil {
				return fmt.Errorf("marshal step %d result: %w", i, err)
			}
			metadata, err := json.Marshal(rec.Metadata)
			if err != nil {
				return fmt.Errorf("marshal step %d metadata: %w", i, err)
			}
			row := flowStepRecord{
				RunID:     snap.RunID,
				Seq:       i,
				AgentName: rec.AgentName,
				Action:    rec.Action,
				Result:    string(result),
				Metadata:  string(metadata),
				Timestamp: rec.Timestamp,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) Load(ctx context.Context, runID string) (*flow.Snapshot, error) {
	var run flowRun
	err := s.db.WithContext(ctx).First(&run, "run_id = ?", runID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errSnapshotNotFound(runID)
	}
	if err != nil {
		return nil, types.NewError(types.ErrStoreUnavailable, "load run").WithCause(err)
	}

	var rows []flowStepRecord
	if err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("seq asc").
		Find(&rows).Error; err != nil {
		return nil, types.NewError(types.ErrStoreUnavailable, "load steps").WithCause(err)
	}

	snap := &flow.Snapshot{
		RunID:        run.RunID,
		CurrentAgent: run.CurrentAgent,
		TakenAt:      run.TakenAt,
	}
	if run.FlowParams != "" {
		if err := json.Unmarshal([]byte(run.FlowParams), &snap.FlowParams); err != nil {
			return nil, fmt.Errorf("unmarshal flow params: %w", err)
		}
	}
	for _, row := range rows {
		rec := flow.FlowRecord{
			AgentName: row.AgentName,
			Action:    row.Action,
			Timestamp: row.Timestamp,
		}
		if row.Result != "" {
			if err := json.Unmarshal([]byte(row.Result), &rec.Result); err != nil {
				return nil, fmt.Errorf("unmarshal step %d result: %w", row.Seq, err)
			}
		}
		if row.Metadata != "" {
			if err := json.Unmarshal([]byte(row.Metadata), &rec.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal step %d metadata: %w", row.Seq, err)
			}
		}
		snap.History = append(snap.History, rec)
		// Branch decisions are not stored separately: in every snapshot the
		// engine produces, they parallel the history actions one to one.
		snap.BranchDecisions = append(snap.BranchDecisions, row.Action)
	}
	return snap, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, runID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", runID).Delete(&flowStepRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("run_id = ?", runID).Delete(&flowRun{}).Error
	})
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]string, error) {
	var runs []string
	err := s.db.WithContext(ctx).
		Model(&flowRun{}).
		Order("run_id asc").
		Pluck("run_id", &runs).Error
	if err != nil {
		return nil, types.NewError(types.ErrStoreUnavailable, "list runs").WithCause(err)
	}
	return runs, nil
}

func (s *SQLiteStore) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
