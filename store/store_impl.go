package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/M0hammedHaris/snaptrace/internal/model"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultStore 是基于 SQLite 的 Store 默认实现。
type DefaultStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	started_at     INTEGER NOT NULL,
	finished_at    INTEGER NOT NULL,
	status         TEXT NOT NULL,
	export_path    TEXT NOT NULL,
	output_path    TEXT NOT NULL,
	total          INTEGER NOT NULL,
	organized      INTEGER NOT NULL,
	unmatched      INTEGER NOT NULL,
	low_confidence INTEGER NOT NULL,
	exact_id       INTEGER NOT NULL,
	fuzzy_id       INTEGER NOT NULL,
	time_based     INTEGER NOT NULL,
	error          TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS decisions (
	run_id         TEXT NOT NULL,
	file           TEXT NOT NULL,
	contact        TEXT NOT NULL,
	date           TEXT NOT NULL,
	matched        INTEGER NOT NULL,
	tier           TEXT NOT NULL,
	score          REAL NOT NULL,
	low_confidence INTEGER NOT NULL,
	media_id_score REAL NOT NULL,
	time_score     REAL NOT NULL,
	time_seconds   REAL NOT NULL,
	same_day_score REAL NOT NULL,
	freq_score     REAL NOT NULL,
	reason         TEXT NOT NULL,
	candidates     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decisions_run ON decisions(run_id);
`

// NewStore 打开 (必要时创建) 运行历史数据库。
func NewStore(dbPath string) (*DefaultStore, error) {
	dsn := fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("无法打开数据库文件 %s: %w", dbPath, err)
	}
	// SQLite 写入需要串行化
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化数据库结构失败: %w", err)
	}
	return &DefaultStore{db: db}, nil
}

func (s *DefaultStore) Close() error {
	return s.db.Close()
}

// SaveRun 插入或更新一条运行摘要。
func (s *DefaultStore) SaveRun(ctx context.Context, run *model.RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, status, export_path, output_path,
			total, organized, unmatched, low_confidence, exact_id, fuzzy_id, time_based, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			status = excluded.status,
			total = excluded.total,
			organized = excluded.organized,
			unmatched = excluded.unmatched,
			low_confidence = excluded.low_confidence,
			exact_id = excluded.exact_id,
			fuzzy_id = excluded.fuzzy_id,
			time_based = excluded.time_based,
			error = excluded.error`,
		run.ID, run.StartedAt.Unix(), run.FinishedAt.Unix(), string(run.Status),
		run.ExportPath, run.OutputPath,
		run.Stats.Total, run.Stats.Organized, run.Stats.Unmatched, run.Stats.LowConfidence,
		run.Stats.ExactID, run.Stats.FuzzyID, run.Stats.TimeBased, run.Error,
	)
	if err != nil {
		return fmt.Errorf("归档运行记录失败: %w", err)
	}
	return nil
}

// SaveDecisions 批量归档单次运行的裁决记录。
func (s *DefaultStore) SaveDecisions(ctx context.Context, runID string, decisions []*model.Decision) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO decisions (run_id, file, contact, date, matched, tier, score, low_confidence,
			media_id_score, time_score, time_seconds, same_day_score, freq_score, reason, candidates)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("准备语句失败: %w", err)
	}
	defer stmt.Close()

	for _, d := range decisions {
		_, err := stmt.ExecContext(ctx, runID, d.File, d.Contact, d.Date,
			boolToInt(d.Matched), string(d.Tier), d.Score, boolToInt(d.LowConfidence),
			d.Breakdown.MediaIDScore, d.Breakdown.TimeDiffScore, d.Breakdown.TimeDiffSeconds,
			d.Breakdown.SameDayScore, d.Breakdown.ContactFreqScore, d.Reason, d.Candidates)
		if err != nil {
			return fmt.Errorf("归档裁决记录失败: %w", err)
		}
	}
	return tx.Commit()
}

// GetRuns 按开始时间倒序返回最近的运行摘要。
func (s *DefaultStore) GetRuns(ctx context.Context, limit int) ([]*model.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, status, export_path, output_path,
			total, organized, unmatched, low_confidence, exact_id, fuzzy_id, time_based, error
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("查询运行历史失败: %w", err)
	}
	defer rows.Close()

	var runs []*model.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun 返回指定 ID 的运行摘要, 不存在时返回 sql.ErrNoRows。
func (s *DefaultStore) GetRun(ctx context.Context, runID string) (*model.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, status, export_path, output_path,
			total, organized, unmatched, low_confidence, exact_id, fuzzy_id, time_based, error
		FROM runs WHERE id = ?`, runID)
	return scanRun(row)
}

// GetDecisions 返回单次运行的裁决记录, 按插入顺序。
func (s *DefaultStore) GetDecisions(ctx context.Context, runID string, q DecisionQuery) ([]*model.Decision, error) {
	query := `
		SELECT run_id, file, contact, date, matched, tier, score, low_confidence,
			media_id_score, time_score, time_seconds, same_day_score, freq_score, reason, candidates
		FROM decisions WHERE run_id = ?`
	args := []interface{}{runID}
	if q.Contact != "" {
		query += " AND contact = ?"
		args = append(args, q.Contact)
	}
	if q.MatchedOnly {
		query += " AND matched = 1"
	}
	query += " ORDER BY rowid"
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询裁决记录失败: %w", err)
	}
	defer rows.Close()

	var out []*model.Decision
	for rows.Next() {
		var d model.Decision
		var matched, lowConf int
		var tier string
		if err := rows.Scan(&d.RunID, &d.File, &d.Contact, &d.Date, &matched, &tier, &d.Score, &lowConf,
			&d.Breakdown.MediaIDScore, &d.Breakdown.TimeDiffScore, &d.Breakdown.TimeDiffSeconds,
			&d.Breakdown.SameDayScore, &d.Breakdown.ContactFreqScore, &d.Reason, &d.Candidates); err != nil {
			return nil, fmt.Errorf("读取裁决记录失败: %w", err)
		}
		d.Matched = matched == 1
		d.LowConfidence = lowConf == 1
		d.Tier = model.MatchTier(tier)
		out = append(out, &d)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*model.RunRecord, error) {
	var run model.RunRecord
	var started, finished int64
	var status string
	if err := row.Scan(&run.ID, &started, &finished, &status, &run.ExportPath, &run.OutputPath,
		&run.Stats.Total, &run.Stats.Organized, &run.Stats.Unmatched, &run.Stats.LowConfidence,
		&run.Stats.ExactID, &run.Stats.FuzzyID, &run.Stats.TimeBased, &run.Error); err != nil {
		return nil, err
	}
	run.StartedAt = time.Unix(started, 0)
	run.FinishedAt = time.Unix(finished, 0)
	run.Status = model.RunStatus(status)
	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
