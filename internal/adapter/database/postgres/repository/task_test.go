package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"taskboard/internal/adapter/database/postgres"
	"taskboard/internal/adapter/database/postgres/repository"
	"taskboard/internal/core/domain"
	"taskboard/internal/core/port"
	"taskboard/pkg/config"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func strPtr(s string) *string {
	return &s
}

type TaskRepositoryTestSuite struct {
	suite.Suite
	pgContainer testcontainers.Container
	DB          *postgres.DB
	TaskRepo    port.TaskRepository
}

func (s *TaskRepositoryTestSuite) SetupSuite() {
	ctx := context.Background()

	req := testcontainers.GenericContainerRequest{
		Started: true,
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "testdb",
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
	}

	pgContainer, err := testcontainers.GenericContainer(ctx, req)
	s.Require().NoError(err)
	s.pgContainer = pgContainer

	host, err := pgContainer.Host(ctx)
	s.Require().NoError(err)

	mapped, err := pgContainer.MappedPort(ctx, "5432")
	s.Require().NoError(err)

	url := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, mapped.Port())

	s.DB, err = postgres.NewDB(ctx, config.DatabaseConfig{
		Driver:       config.DriverPostgres,
		URL:          url,
		AutoMigrate:  true,
		MaxOpenConns: 4,
	})
	s.Require().NoError(err)

	s.TaskRepo = repository.NewTaskRepository(s.DB, nil)
}

func (s *TaskRepositoryTestSuite) SetupTest() {
	_, err := s.DB.Exec(context.Background(), "TRUNCATE tasks")
	s.Require().NoError(err)
}

func (s *TaskRepositoryTestSuite) TearDownSuite() {
	if s.DB != nil {
		s.DB.Close()
	}

	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(context.Background())
	}
}

func TestTaskRepositoryTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container tests in short mode")
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)

	RegisterTestingT(t)
	suite.Run(t, new(TaskRepositoryTestSuite))
}

func (s *TaskRepositoryTestSuite) TestRepository_CreateAndGet() {
	created, err := s.TaskRepo.Create(context.Background(), domain.NewTask(10, "Ship it", strPtr("v1"), false, strPtr("todo")))

	Expect(err).To(BeNil())
	Expect(created.ID).To(Equal(int64(10)))

	found, err := s.TaskRepo.GetByID(context.Background(), 10)

	Expect(err).To(BeNil())
	Expect(found).To(Equal(created))
}

func (s *TaskRepositoryTestSuite) TestRepository_Create_DuplicateID() {
	_, err := s.TaskRepo.Create(context.Background(), domain.NewTask(1, "First", nil, false, nil))
	Expect(err).To(BeNil())

	_, err = s.TaskRepo.Create(context.Background(), domain.NewTask(1, "Second", nil, false, nil))

	assert.ErrorIs(s.T(), err, domain.ErrTaskConflict)
}

func (s *TaskRepositoryTestSuite) TestRepository_GetAll_OrderedByID() {
	for _, id := range []int64{2, 1} {
		_, err := s.TaskRepo.Create(context.Background(), domain.NewTask(id, "Task", nil, false, nil))
		Expect(err).To(BeNil())
	}

	tasks, err := s.TaskRepo.GetAll(context.Background())

	Expect(err).To(BeNil())
	Expect(tasks).To(HaveLen(2))
	Expect(tasks[0].ID).To(Equal(int64(1)))
}

func (s *TaskRepositoryTestSuite) TestRepository_UpdateByID_NullAndFalse() {
	_, err := s.TaskRepo.Create(context.Background(), domain.NewTask(3, "Review", strPtr("PR"), true, strPtr("doing")))
	Expect(err).To(BeNil())

	updated, err := s.TaskRepo.UpdateByID(context.Background(), 3, domain.TaskPatch{
		Completed:   domain.Some(false),
		Description: domain.Null[string](),
	})

	Expect(err).To(BeNil())
	Expect(updated.Completed).To(BeFalse())
	Expect(updated.Description).To(BeNil())

	stored, _ := s.TaskRepo.GetByID(context.Background(), 3)
	Expect(stored).To(Equal(updated))
}

func (s *TaskRepositoryTestSuite) TestRepository_NotFound() {
	_, err := s.TaskRepo.GetByID(context.Background(), 404)
	assert.ErrorIs(s.T(), err, domain.ErrTaskNotFound)

	_, err = s.TaskRepo.UpdateByID(context.Background(), 404, domain.TaskPatch{Title: domain.Some("x")})
	assert.ErrorIs(s.T(), err, domain.ErrTaskNotFound)

	err = s.TaskRepo.DeleteByID(context.Background(), 404)
	assert.ErrorIs(s.T(), err, domain.ErrTaskNotFound)
}
