package retrieval

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPGIndexSearchAppliesTenantAndUserFilter(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	idx, err := NewPGIndex(db, "vault_chunks")
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"chunk_id", "tenant_id", "user_id", "source", "content", "embedding", "distance"}).
		AddRow("notes:0", "t1", "u1", "notes", "avoid sugar", "[0.1,0.2]", 0.12)
	mock.ExpectQuery(`SELECT chunk_id.+FROM vault_chunks\s+WHERE tenant_id = \$1 AND user_id = \$2`).
		WithArgs("t1", "u1", sqlmock.AnyArg(), 3).
		WillReturnRows(rows)

	hits, err := idx.Search(context.Background(), []float64{0.1, 0.2}, 3, Filter{TenantID: "t1", UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "notes:0", hits[0].ChunkID)
	assert.Equal(t, "avoid sugar", hits[0].Text)
	assert.InDelta(t, 0.12, hits[0].Distance, 1e-9)
	assert.InDeltaSlice(t, []float64{0.1, 0.2}, hits[0].Embedding, 1e-6)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGIndexSearchRequiresScope(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	idx, err := NewPGIndex(db, "vault_chunks")
	require.NoError(t, err)
	_, err = idx.Search(context.Background(), []float64{1}, 3, Filter{TenantID: "t1"})
	require.Error(t, err)
}

func TestPGIndexReplaceUserDocumentsInTransaction(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	idx, err := NewPGIndex(db, "vault_chunks")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM vault_chunks`).WithArgs("t1", "u1").WillReturnResult(sqlmock.NewResult(0, 2))
	prep := mock.ExpectPrepare(`INSERT INTO vault_chunks`)
	prep.ExpectExec().WithArgs("notes:0", "t1", "u1", "notes", "a", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs("notes:1", "t1", "u1", "notes", "b", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err = idx.ReplaceUserDocuments(context.Background(), "t1", "u1", []Entry{
		{ChunkID: "notes:0", Source: "notes", Text: "a", Embedding: []float64{1}},
		{ChunkID: "notes:1", Source: "notes", Text: "b", Embedding: []float64{0}},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPGIndexRejectsUnsafeTableName(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewPGIndex(db, "vault; DROP TABLE users")
	require.Error(t, err)
	_, err = NewPGIndex(db, "public.vault_chunks")
	require.NoError(t, err)
}
