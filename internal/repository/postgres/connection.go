package postgres

import (
	"github.com/arjun/temporary-social/internal/domain"
	"github.com/arjun/temporary-social/internal/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewConnection(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// Auto-migrate tables
	err = db.AutoMigrate(
		&domain.User{},
		&domain.Follow{},
		&domain.OTPChallenge{},
		&domain.Message{},
		&domain.Payment{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}

func NewRepositories(db *gorm.DB) *repository.Repositories {
	return &repository.Repositories{
		User:    NewUserRepository(db),
		Follow:  NewFollowRepository(db),
		OTP:     NewOTPRepository(db),
		Message: NewMessageRepository(db),
		Payment: NewPaymentRepository(db),
	}
}
