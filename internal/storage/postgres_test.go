package storage

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func TestPostgresSinkSaveNote(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sink, err := NewPostgresSinkWithPool(mock, nil)
	require.NoError(t, err)

	n := testNote("n1")
	mock.ExpectExec("INSERT INTO notes").
		WithArgs(
			n.NoteID, n.URL, n.Title, n.Body, n.Type, []byte(`["宿舍","攻略"]`),
			n.AuthorID, n.AuthorName,
			n.LikeCount, n.CollectCount, n.CommentCount, n.TotalInteraction,
			string(n.TrafficTier), n.UploadTime, n.CrawledAt, n.KeywordSource,
			n.CrawlBatch, n.FullText,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO comments").
		WithArgs(
			n.Comments[0].CommentID, n.Comments[0].NoteID, n.Comments[0].Text,
			n.Comments[0].AuthorName, n.Comments[0].LikeCount, n.Comments[0].IsReply,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, sink.SaveNote(context.Background(), n))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSinkExists(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sink, err := NewPostgresSinkWithPool(mock, nil)
	require.NoError(t, err)
	ctx := context.Background()

	mock.ExpectQuery("SELECT 1 FROM notes").
		WithArgs("present").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))
	exists, err := sink.Exists(ctx, "present")
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery("SELECT 1 FROM notes").
		WithArgs("absent").
		WillReturnError(pgx.ErrNoRows)
	exists, err = sink.Exists(ctx, "absent")
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSinkRequiresPool(t *testing.T) {
	_, err := NewPostgresSinkWithPool(nil, nil)
	require.Error(t, err)
}
