package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/iliyamo/clinic-treatment-board/internal/model"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "board.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSnapshotRepo_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewSnapshotRepo(openSQLite(t), DialectSQLite, "clinic_state_v1")
	require.NoError(t, repo.EnsureSchema(ctx))

	_, err := repo.Load(ctx)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	s := model.DefaultState(2)
	s.Bays[0].PatientName = "Park"
	s.Bays[0].Treatments = []model.TreatmentItem{model.NewTreatmentItem("t1", model.TreatmentICT, 600)}
	require.NoError(t, repo.Save(ctx, s))

	s.Bays[0].Note = "second write wins"
	require.NoError(t, repo.Save(ctx, s))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.Bays, got.Bays)
	assert.Equal(t, "second write wins", got.Bays[0].Note)

	require.NoError(t, repo.Delete(ctx))
	_, err = repo.Load(ctx)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestSnapshotRepo_CorruptPayload(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	repo := NewSnapshotRepo(db, DialectSQLite, "k")
	require.NoError(t, repo.EnsureSchema(ctx))
	_, err := db.Exec("INSERT INTO board_snapshots (snapshot_key, payload, updated_at) VALUES ('k', '{\"bays\": [', CURRENT_TIMESTAMP)")
	require.NoError(t, err)

	_, err = repo.Load(ctx)
	assert.ErrorIs(t, err, ErrSnapshotCorrupt)
}

func TestSnapshotRepo_MySQLUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE payload=VALUES(payload)")).
		WithArgs("clinic_state_v1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM board_snapshots WHERE snapshot_key=?")).
		WithArgs("clinic_state_v1").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(`{"bays":[{"id":1,"patientName":"Kim"}]}`))

	repo := NewSnapshotRepo(db, DialectMySQL, "clinic_state_v1")
	require.NoError(t, repo.Save(context.Background(), model.DefaultState(1)))
	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Kim", got.Bays[0].PatientName)
	assert.NotNil(t, got.Bays[0].Treatments)
	assert.NotNil(t, got.History)
	assert.NoError(t, mock.ExpectationsWereMet())
}
