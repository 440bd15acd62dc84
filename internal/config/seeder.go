package config

import (
	"log"
	"time"

	"cardpool/internal/adapters/persistence/models"
	"cardpool/internal/pkg/password"

	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// Run executes all seeders. Development only; production members sign up
// themselves and the first account becomes ADMIN.
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedDemoMembers(); err != nil {
		log.Printf("⚠️ Demo member seeder skipped: %v", err)
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedDemoMembers seeds a small demo group with a few expenses
func (s *Seeder) seedDemoMembers() error {
	var count int64
	s.db.Model(&models.Member{}).Count(&count)
	if count > 0 {
		return nil // Members already exist
	}

	hashed, err := password.Hash("demo123456")
	if err != nil {
		return err
	}

	members := []models.Member{
		{Email: "alice@example.com", Nickname: "alice", Password: hashed, Role: models.RoleAdmin, IsActive: true},
		{Email: "bob@example.com", Nickname: "bob", Password: hashed, Role: models.RoleMember, IsActive: true},
		{Email: "carol@example.com", Nickname: "carol", Password: hashed, Role: models.RoleMember, IsActive: true},
	}

	if err := s.db.Create(&members).Error; err != nil {
		return err
	}

	expenses := []models.Expense{
		{MemberID: members[1].ID, Amount: 120000, UsedAt: time.Now().AddDate(0, 0, -3), Merchant: "Office Depot", Memo: "Team supplies"},
		{MemberID: members[2].ID, Amount: 45000, UsedAt: time.Now().AddDate(0, 0, -1), Merchant: "Cafe Central"},
	}

	if err := s.db.Create(&expenses).Error; err != nil {
		return err
	}

	log.Printf("🌱 Seeded %d demo members and %d expenses", len(members), len(expenses))
	return nil
}
