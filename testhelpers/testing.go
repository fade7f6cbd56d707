package testhelpers

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"reliefledger/internal/models"
	"reliefledger/internal/repositories"
	"reliefledger/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TestDB holds the database connection for testing
type TestDB struct {
	Pool    *pgxpool.Pool
	Cleanup func() error
}

// SetupTestDB migrates and connects to TEST_DATABASE_URL. The test is skipped
// when the variable is not set.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	if err := database.RunMigrations(ctx, connString, "up"); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	pool, err := database.NewPool(ctx, connString, 10)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	return &TestDB{
		Pool: pool,
		Cleanup: func() error {
			pool.Close()
			return nil
		},
	}
}

// SetupTestShelter inserts a shelter row and returns its ID
func SetupTestShelter(t *testing.T, db *TestDB, name string) uuid.UUID {
	t.Helper()

	shelterID := uuid.New()
	query := `
		INSERT INTO shelters (id, name, is_active, created_at, updated_at)
		VALUES ($1, $2, TRUE, $3, $3)
	`
	_, err := db.Pool.Exec(context.Background(), query, shelterID, fmt.Sprintf("%s %s", name, shelterID.String()[:8]), time.Now())
	if err != nil {
		t.Fatalf("Failed to create test shelter: %v", err)
	}
	return shelterID
}

// Fixture is a memory-backed ledger with two shelters and one caller per role.
type Fixture struct {
	Store    *repositories.MemoryStore
	ShelterA *models.Shelter
	ShelterB *models.Shelter
	Admin    models.Caller
	StaffA   models.Caller
	StaffB   models.Caller
	Viewer   models.Caller
}

func NewFixture(t *testing.T) *Fixture {
	t.Helper()

	store := repositories.NewMemoryStore()
	f := &Fixture{Store: store}
	f.ShelterA = CreateShelter(t, store, "Riverside School")
	f.ShelterB = CreateShelter(t, store, "Hillcrest Gym")

	f.Admin = models.Caller{UserID: uuid.New(), Role: models.RoleAdmin}
	f.StaffA = StaffCaller(f.ShelterA.ID)
	f.StaffB = StaffCaller(f.ShelterB.ID)
	f.Viewer = models.Caller{UserID: uuid.New(), Role: models.RoleViewer}
	return f
}

func StaffCaller(shelterID uuid.UUID) models.Caller {
	id := shelterID
	return models.Caller{UserID: uuid.New(), Role: models.RoleStaff, AssignedShelterID: &id}
}

func CreateShelter(t *testing.T, store repositories.LedgerStore, name string) *models.Shelter {
	t.Helper()

	capacity := 200
	shelter := &models.Shelter{ID: uuid.New(), Name: name, Capacity: &capacity, IsActive: true}
	if err := store.Shelters().Create(context.Background(), shelter); err != nil {
		t.Fatalf("Failed to create shelter: %v", err)
	}
	return shelter
}

// ItemSpec describes a seeded stock record.
type ItemSpec struct {
	Name          string
	Category      models.StockCategory
	Provincial    int
	Shelters      map[uuid.UUID]int
	MinStockLevel int
	CriticalLevel int
	Inactive      bool
}

// SeedItem stores a record and one receive movement per non-empty side so the
// ledger reconciles with the stored counters.
func (f *Fixture) SeedItem(t *testing.T, spec ItemSpec) *models.StockRecord {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Add(-time.Hour)

	if spec.Category == "" {
		spec.Category = models.CategoryFood
	}
	rec := &models.StockRecord{
		ID:                 uuid.New(),
		ItemName:           spec.Name,
		Category:           spec.Category,
		Unit:               "units",
		ProvincialQuantity: spec.Provincial,
		ShelterQuantities:  make(map[uuid.UUID]models.ShelterStock),
		MinStockLevel:      spec.MinStockLevel,
		CriticalLevel:      spec.CriticalLevel,
		IsActive:           !spec.Inactive,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	for id, qty := range spec.Shelters {
		rec.ShelterQuantities[id] = models.ShelterStock{Quantity: qty, LastUpdated: now}
	}
	rec.RecomputeTotal()
	rec.TotalReceived = rec.TotalQuantity

	err := f.Store.RunInTx(ctx, func(tx repositories.LedgerTx) error {
		if err := tx.Stock().Create(ctx, rec); err != nil {
			return err
		}
		if spec.Provincial > 0 {
			if err := tx.Movements().Append(ctx, seedMovement(rec, models.ProvincialSide(), spec.Provincial, now)); err != nil {
				return err
			}
		}
		for id, qty := range spec.Shelters {
			if qty == 0 {
				continue
			}
			if err := tx.Movements().Append(ctx, seedMovement(rec, models.ShelterSide(id), qty, now)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to seed stock item: %v", err)
	}
	return rec
}

func seedMovement(rec *models.StockRecord, side models.StockSide, qty int, at time.Time) *models.MovementRecord {
	return &models.MovementRecord{
		ID:           uuid.New(),
		StockItemID:  rec.ID,
		ItemName:     rec.ItemName,
		MovementType: models.MovementReceive,
		Quantity:     qty,
		From:         models.Location{Kind: models.LocationExternal, DisplayName: "Seed"},
		To:           models.SideLocation(side, "seed"),
		PerformedBy:  uuid.Nil,
		PerformedAt:  at,
		ReferenceID:  "RCV-SEED",
		Snapshot:     models.QuantitySnapshot{Before: 0, After: qty},
	}
}

// Stock reads the committed record.
func (f *Fixture) Stock(t *testing.T, id uuid.UUID) *models.StockRecord {
	t.Helper()
	rec, err := f.Store.Stock().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("Failed to load stock item: %v", err)
	}
	return rec
}

// Movements returns every committed movement for id, newest first.
func (f *Fixture) Movements(t *testing.T, id uuid.UUID) []*models.MovementRecord {
	t.Helper()
	out, err := repositories.ListAllMovements(context.Background(), f.Store.Movements(), models.MovementFilter{StockItemID: &id})
	if err != nil {
		t.Fatalf("Failed to load movements: %v", err)
	}
	return out
}
