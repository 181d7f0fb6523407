package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/riskibarqy/rugby-live/internal/domain/team"
)

type TeamRepositoryTestSuite struct {
	suite.Suite
	db   *sqlx.DB
	mock sqlmock.Sqlmock
	repo *TeamRepository
}

func (s *TeamRepositoryTestSuite) SetupTest() {
	mockDB, mock, err := sqlmock.New()
	require.NoError(s.T(), err)

	s.db = sqlx.NewDb(mockDB, "sqlmock")
	s.mock = mock
	s.repo = NewTeamRepository(s.db)
}

func (s *TeamRepositoryTestSuite) TearDownTest() {
	s.db.Close()
}

func (s *TeamRepositoryTestSuite) TestListByLeague() {
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT " + teamColumns + " FROM teams WHERE league_id = $1 AND season = $2 ORDER BY name, id")).
		WithArgs(int64(16), 2024).
		WillReturnRows(sqlmock.NewRows([]string{"id", "league_id", "season", "name", "code", "country", "founded", "national", "logo_url", "updated_at"}).
			AddRow(107, 16, 2024, "Stade Toulousain", "TOU", "France", 1907, false, "https://media.example/107.png", time.Now()).
			AddRow(112, 16, 2024, "Racing 92", nil, nil, nil, false, nil, time.Now()))

	got, found, err := s.repo.ListByLeague(context.Background(), 16, 2024)

	s.Require().NoError(err)
	s.Require().True(found)
	s.Require().Len(got, 2)
	s.Equal("TOU", got[0].Code)
	s.Require().NotNil(got[0].LogoURL)
	s.Nil(got[1].LogoURL)
	s.Zero(got[1].Founded)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *TeamRepositoryTestSuite) TestListByLeague_EmptyIsNotFound() {
	s.mock.ExpectQuery(regexp.QuoteMeta("FROM teams WHERE league_id = $1")).
		WithArgs(int64(16), 2023).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	got, found, err := s.repo.ListByLeague(context.Background(), 16, 2023)

	s.Require().NoError(err)
	s.False(found)
	s.Nil(got)
}

func (s *TeamRepositoryTestSuite) TestReplaceByLeague() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM teams WHERE league_id = $1 AND season = $2")).
		WithArgs(int64(16), 2024).
		WillReturnResult(sqlmock.NewResult(0, 14))
	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO teams (id, league_id, season, name, code, country, founded, national, logo_url) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) ON CONFLICT (league_id, season, id) DO NOTHING")).
		WithArgs(int64(107), int64(16), 2024, "Stade Toulousain", "TOU", nil, nil, false, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	err := s.repo.ReplaceByLeague(context.Background(), 16, 2024, []team.Team{{ID: 107, Name: "Stade Toulousain", Code: "TOU"}})

	s.Require().NoError(err)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *TeamRepositoryTestSuite) TestReplaceByLeague_InvalidTeamRollsBack() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM teams")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectRollback()

	err := s.repo.ReplaceByLeague(context.Background(), 16, 2024, []team.Team{{ID: 0, Name: "nameless"}})

	s.Require().Error(err)
	s.NoError(s.mock.ExpectationsWereMet())
}

func TestTeamRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(TeamRepositoryTestSuite))
}
