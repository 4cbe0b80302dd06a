package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/classbridge/reportcard-api/internal/models"
)

func TestGradeScaleRepositoryListBySchool(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeScaleRepository(db)

	rows := sqlmock.NewRows([]string{"id", "school_id", "label", "min_percentage", "max_percentage", "sort_order", "created_at"}).
		AddRow("gt-1", "sch1", "A", 80.0, 100.0, 0, time.Now()).
		AddRow("gt-2", "sch1", "B", 60.0, 80.0, 1, time.Now())
	mock.ExpectQuery(`SELECT .+ FROM grade_thresholds WHERE school_id = \$1 ORDER BY sort_order ASC`).
		WithArgs("sch1").
		WillReturnRows(rows)

	thresholds, err := repo.ListBySchool(context.Background(), "sch1")
	require.NoError(t, err)
	require.Len(t, thresholds, 2)
	require.Equal(t, "A", thresholds[0].Label)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeScaleRepositoryReplace(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeScaleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM grade_thresholds WHERE school_id = \$1`).
		WithArgs("sch1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO grade_thresholds`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO grade_thresholds`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	thresholds := []models.GradeThreshold{
		{Label: "Pass", MinPercentage: 50, MaxPercentage: 100, SortOrder: 0},
		{Label: "Fail", MinPercentage: 0, MaxPercentage: 50, SortOrder: 1},
	}
	require.NoError(t, repo.Replace(context.Background(), "sch1", thresholds))
	require.NotEmpty(t, thresholds[0].ID)
	require.Equal(t, "sch1", thresholds[0].SchoolID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeScaleRepositoryReplaceRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeScaleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM grade_thresholds WHERE school_id = \$1`).
		WithArgs("sch1").
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	err := repo.Replace(context.Background(), "sch1", []models.GradeThreshold{
		{Label: "A", MinPercentage: 80, MaxPercentage: 100},
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
