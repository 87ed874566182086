package projection_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	coreprojection "github.com/omnicamp/eventcore/projection"
	"github.com/omnicamp/eventcore/infra/postgres"
	"github.com/omnicamp/eventcore/sample/command"
	"github.com/omnicamp/eventcore/sample/domain/domain"
	domrepo "github.com/omnicamp/eventcore/sample/domain/repository"
	"github.com/omnicamp/eventcore/sample/query/projection"
	"github.com/omnicamp/eventcore/sample/query/query"
	"github.com/omnicamp/eventcore/sample/query/repository"
	"github.com/omnicamp/eventcore/testutil"
)

// CampaignPipelineSuite wires the full flow against a real database: command
// handlers append to the event store, the projection manager folds the feed
// into campaign_views, and the query handler reads it back.
type CampaignPipelineSuite struct {
	testutil.DBIntegrationSuite
	db          *postgres.DB
	store       *postgres.Store
	checkpoints *postgres.CheckpointStore
	views       *repository.CampaignViewRepository
	campaigns   *domrepo.CampaignRepository
}

func TestCampaignPipelineSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CampaignPipelineSuite))
}

func (s *CampaignPipelineSuite) SetupSuite() {
	s.DBIntegrationSuite.SetupSuite()
	ctx := context.Background()

	db, err := postgres.NewDB(ctx, s.ConnectionString)
	s.Require().NoError(err)
	s.db = db
	s.store = postgres.NewEventStore(db)
	s.checkpoints = postgres.NewCheckpointStore(db)
	s.views = repository.NewCampaignViewRepository(db)
	s.campaigns = domrepo.NewCampaignRepository(s.store)

	s.Require().NoError(s.store.Initialize(ctx))
	s.Require().NoError(s.checkpoints.Initialize(ctx))
	s.Require().NoError(s.views.Initialize(ctx))
}

func (s *CampaignPipelineSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	s.DBIntegrationSuite.TearDownSuite()
}

func (s *CampaignPipelineSuite) SetupTest() {
	s.TruncateTables("event_store", "projection_checkpoints", "campaign_views")
}

func (s *CampaignPipelineSuite) newManager() *coreprojection.Manager {
	return coreprojection.NewManager(s.store, s.checkpoints, s.db,
		coreprojection.WithPollInterval(20*time.Millisecond),
		coreprojection.WithBatchSize(10),
	)
}

func (s *CampaignPipelineSuite) waitForView(ctx context.Context, id uuid.UUID, name string) {
	s.Require().Eventually(func() bool {
		v, err := s.views.GetByID(ctx, id)
		return err == nil && v != nil && v.Name == name
	}, 10*time.Second, 20*time.Millisecond, "view never reached name %q", name)
}

func (s *CampaignPipelineSuite) TestCommandsProjectIntoQueryableView() {
	ctx := context.Background()
	id := uuid.New()

	s.Require().NoError(command.NewCreateCampaignHandler(s.campaigns).Handle(ctx, command.CreateCampaignCommand{
		ID: id, Name: "Spring", Budget: 1000,
	}))
	s.Require().NoError(command.NewRenameCampaignHandler(s.campaigns).Handle(ctx, command.RenameCampaignCommand{
		ID: id, Name: "Spring Sale",
	}))

	m := s.newManager()
	s.Require().NoError(m.Register(projection.NewCampaignProjection(s.views)))
	m.Start(ctx)
	defer m.Stop()

	s.waitForView(ctx, id, "Spring Sale")

	got, err := query.NewGetCampaignByIDHandler(s.views).Query(ctx, query.GetCampaignByID{ID: id})
	s.Require().NoError(err)
	s.Equal(id, got.ID)
	s.Equal("Spring Sale", got.Name)
	s.Equal(1000.0, got.Budget)
	s.Equal(string(domain.StatusDraft), got.Status)

	checkpoint, err := s.checkpoints.Load(ctx, projection.Name)
	s.Require().NoError(err)
	s.Equal(int64(2), checkpoint)
}

func (s *CampaignPipelineSuite) TestScheduleAndArchiveReachTheView() {
	ctx := context.Background()
	id := uuid.New()
	starts := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	ends := starts.AddDate(0, 1, 0)

	s.Require().NoError(command.NewCreateCampaignHandler(s.campaigns).Handle(ctx, command.CreateCampaignCommand{
		ID: id, Name: "Autumn", Budget: 500,
	}))
	s.Require().NoError(command.NewScheduleCampaignHandler(s.campaigns).Handle(ctx, command.ScheduleCampaignCommand{
		ID: id, StartsAt: starts, EndsAt: ends,
	}))

	m := s.newManager()
	s.Require().NoError(m.Register(projection.NewCampaignProjection(s.views)))
	m.Start(ctx)
	defer m.Stop()

	s.Require().Eventually(func() bool {
		v, err := s.views.GetByID(ctx, id)
		return err == nil && v != nil && v.Status == string(domain.StatusScheduled)
	}, 10*time.Second, 20*time.Millisecond)

	v, err := s.views.GetByID(ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(v.StartsAt)
	s.Equal(starts, v.StartsAt.UTC())
}

func (s *CampaignPipelineSuite) TestQueryUnknownCampaign() {
	_, err := query.NewGetCampaignByIDHandler(s.views).Query(context.Background(), query.GetCampaignByID{
		ID: uuid.New(),
	})
	s.Require().ErrorIs(err, query.ErrCampaignNotFound)
}

func (s *CampaignPipelineSuite) TestStaleUpsertDoesNotRegressTheView() {
	ctx := context.Background()
	id := uuid.New()

	s.Require().NoError(command.NewCreateCampaignHandler(s.campaigns).Handle(ctx, command.CreateCampaignCommand{
		ID: id, Name: "Spring", Budget: 1000,
	}))
	s.Require().NoError(command.NewRenameCampaignHandler(s.campaigns).Handle(ctx, command.RenameCampaignCommand{
		ID: id, Name: "Spring Sale",
	}))

	m := s.newManager()
	s.Require().NoError(m.Register(projection.NewCampaignProjection(s.views)))
	m.Start(ctx)
	defer m.Stop()
	s.waitForView(ctx, id, "Spring Sale")

	// A redelivered version-1 write (at-least-once) must lose to the row's
	// version guard.
	v, err := s.views.GetByID(ctx, id)
	s.Require().NoError(err)
	stale := *v
	stale.Name = "Spring"
	stale.Version = 1
	s.Require().NoError(s.views.Upsert(ctx, stale))

	fresh, err := s.views.GetByID(ctx, id)
	s.Require().NoError(err)
	s.Equal("Spring Sale", fresh.Name)
	s.Equal(2, fresh.Version)
}

func (s *CampaignPipelineSuite) TestRebuildRestoresTheViewFromTheLog() {
	ctx := context.Background()
	id := uuid.New()

	s.Require().NoError(command.NewCreateCampaignHandler(s.campaigns).Handle(ctx, command.CreateCampaignCommand{
		ID: id, Name: "Spring", Budget: 1000,
	}))
	s.Require().NoError(command.NewRenameCampaignHandler(s.campaigns).Handle(ctx, command.RenameCampaignCommand{
		ID: id, Name: "Spring Sale",
	}))

	m := s.newManager()
	s.Require().NoError(m.Register(projection.NewCampaignProjection(s.views)))
	m.Start(ctx)
	defer m.Stop()
	s.waitForView(ctx, id, "Spring Sale")

	s.Require().NoError(m.Rebuild(ctx, projection.Name))

	s.waitForView(ctx, id, "Spring Sale")
	v, err := s.views.GetByID(ctx, id)
	s.Require().NoError(err)
	s.Equal(2, v.Version, "catch-up from sequence zero rebuilt the row")
}
